package engine

import (
	"errors"
	"testing"

	"github.com/medward/triage-server/internal/domain/department"
	"github.com/medward/triage-server/internal/domain/hospital"
	"github.com/medward/triage-server/internal/domain/patient"
	"github.com/medward/triage-server/internal/events"
	"github.com/medward/triage-server/internal/platform/logger"
)

func newTestAdmissionEngine() *AdmissionEngine {
	return NewAdmissionEngine(events.NewEventLog(nil), logger.NewLogger("error"))
}

func testCase() patient.Patient {
	return patient.Patient{
		ID:                "P001_TST",
		Complaint:         "Appendicitis",
		CorrectDepartment: department.Surgery,
		Points:            4,
	}
}

func TestResolveRejectsNegativeElapsed(t *testing.T) {
	ae := newTestAdmissionEngine()
	h := hospital.NewHospital("Hospital 1")

	_, err := ae.Resolve(h, testCase(), department.Surgery, -1, 1)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for negative elapsed time, got %v", err)
	}

	if h.Score != 0 {
		t.Errorf("Rejected input must not change the score, got %d", h.Score)
	}
	if h.BedsRemaining[department.Surgery] != 3 {
		t.Errorf("Rejected input must not change beds, got %d", h.BedsRemaining[department.Surgery])
	}
}

func TestResolveRejectsUnknownDepartment(t *testing.T) {
	ae := newTestAdmissionEngine()
	h := hospital.NewHospital("Hospital 1")

	_, err := ae.Resolve(h, testCase(), "Dermatology", 5, 1)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for unknown department, got %v", err)
	}
	if h.Score != 0 || h.WrongCount != 0 {
		t.Errorf("Rejected input must not count as a diagnosis, got %+v", h)
	}
}

func TestResolveEmitsOutcomeAndScoreEvents(t *testing.T) {
	eventLog := events.NewEventLog(nil)
	ae := NewAdmissionEngine(eventLog, logger.NewLogger("error"))
	h := hospital.NewHospital("Hospital 1")

	result, err := ae.Resolve(h, testCase(), department.Surgery, 5, 1)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Outcome != "Admitted" {
		t.Errorf("Expected Admitted, got %s", result.Outcome)
	}

	replay := eventLog.Replay()
	if len(replay) != 2 {
		t.Fatalf("Expected outcome + score-change events, got %d", len(replay))
	}
	if replay[0].Type != events.EventTypePatientAdmitted {
		t.Errorf("Expected PATIENT_ADMITTED first, got %s", replay[0].Type)
	}
	if replay[1].Type != events.EventTypeScoreChange {
		t.Errorf("Expected SCORE_CHANGE second, got %s", replay[1].Type)
	}
}
