package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/medward/triage-server/internal/domain/department"
	"github.com/medward/triage-server/internal/domain/hospital"
	"github.com/medward/triage-server/internal/domain/patient"
	"github.com/medward/triage-server/internal/domain/rules"
	"github.com/medward/triage-server/internal/events"
	"github.com/medward/triage-server/internal/platform/logger"
	"github.com/medward/triage-server/internal/platform/metrics"
)

// ErrInvalidInput marks requests the engine refuses rather than coerces:
// unknown departments, unknown teams, negative elapsed time.
var ErrInvalidInput = errors.New("invalid input")

// AdmissionEngine resolves one team's diagnosis against the true patient
// and the team's bed state. It owns the only mutation path for hospitals.
type AdmissionEngine struct {
	eventLog *events.EventLog
	logger   *logger.Logger
}

// NewAdmissionEngine creates the admission resolver.
func NewAdmissionEngine(eventLog *events.EventLog, log *logger.Logger) *AdmissionEngine {
	return &AdmissionEngine{
		eventLog: eventLog,
		logger:   log,
	}
}

// OutcomePayload is attached to PATIENT_ADMITTED / PATIENT_REFERRED /
// MISDIAGNOSIS events.
type OutcomePayload struct {
	TeamID            string          `json:"team_id"`
	PatientID         string          `json:"patient_id"`
	Guess             department.Name `json:"guess"`
	CorrectDepartment department.Name `json:"correct_department"`
	Outcome           rules.Outcome   `json:"outcome"`
	ScoreDelta        int             `json:"score_delta"`
	QuickBonus        bool            `json:"quick_bonus"`
	ElapsedSeconds    float64         `json:"elapsed_seconds"`
}

// ScoreChangePayload records a score mutation for the audit trail.
type ScoreChangePayload struct {
	TeamID        string `json:"team_id"`
	PreviousScore int    `json:"previous_score"`
	NewScore      int    `json:"new_score"`
	Delta         int    `json:"delta"`
	Cause         string `json:"cause"`
}

// Resolve validates the guess, applies the admission rule table and mutates
// the hospital. It emits the outcome and score-change events.
func (ae *AdmissionEngine) Resolve(h *hospital.Hospital, p patient.Patient, guess department.Name, elapsedSeconds float64, round int) (rules.RoundResult, error) {
	if !department.IsValid(guess) {
		return rules.RoundResult{}, fmt.Errorf("%w: unknown department %q", ErrInvalidInput, guess)
	}
	if elapsedSeconds < 0 {
		return rules.RoundResult{}, fmt.Errorf("%w: negative elapsed time %.2f", ErrInvalidInput, elapsedSeconds)
	}

	result := rules.ResolveDiagnosis(p, guess, h.BedsRemaining[p.CorrectDepartment], elapsedSeconds)

	previousScore := h.Score
	h.ApplyResult(p, result)

	outcomeEvent := events.GameEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      eventTypeFor(result.Outcome),
		TeamID:    h.Name,
		Round:     round,
		Payload: OutcomePayload{
			TeamID:            h.Name,
			PatientID:         p.ID,
			Guess:             guess,
			CorrectDepartment: p.CorrectDepartment,
			Outcome:           result.Outcome,
			ScoreDelta:        result.ScoreDelta,
			QuickBonus:        result.QuickBonus,
			ElapsedSeconds:    elapsedSeconds,
		},
	}
	ae.eventLog.Append(outcomeEvent)

	ae.eventLog.Append(events.GameEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      events.EventTypeScoreChange,
		TeamID:    h.Name,
		Round:     round,
		Payload: ScoreChangePayload{
			TeamID:        h.Name,
			PreviousScore: previousScore,
			NewScore:      h.Score,
			Delta:         result.ScoreDelta,
			Cause:         string(result.Outcome),
		},
	})

	metrics.Get().RecordDiagnosis(string(result.Outcome), result.QuickBonus)

	switch result.Outcome {
	case rules.OutcomeAdmitted:
		ae.logger.Event("PATIENT_ADMITTED", h.Name, fmt.Sprintf("%s -> %s (+%d)", p.ID, guess, result.ScoreDelta))
	case rules.OutcomeReferred:
		ae.logger.Event("PATIENT_REFERRED", h.Name, fmt.Sprintf("%s correct but no beds in %s", p.ID, guess))
	case rules.OutcomeMisdiagnosed:
		ae.logger.Event("MISDIAGNOSIS", h.Name, fmt.Sprintf("%s guessed %s, actual %s", p.ID, guess, p.CorrectDepartment))
	}

	return result, nil
}

// ForceMisdiagnosis resolves a case nobody answered before the deadline.
// Policy: a missing guess scores like a wrong one. No bed is touched.
func (ae *AdmissionEngine) ForceMisdiagnosis(h *hospital.Hospital, p patient.Patient, round int) rules.RoundResult {
	result := rules.RoundResult{Outcome: rules.OutcomeMisdiagnosed, ScoreDelta: -1}

	previousScore := h.Score
	h.ApplyResult(p, result)

	ae.eventLog.Append(events.GameEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      events.EventTypeMisdiagnosis,
		TeamID:    h.Name,
		Round:     round,
		Payload: OutcomePayload{
			TeamID:            h.Name,
			PatientID:         p.ID,
			CorrectDepartment: p.CorrectDepartment,
			Outcome:           result.Outcome,
			ScoreDelta:        result.ScoreDelta,
		},
	})
	ae.eventLog.Append(events.GameEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      events.EventTypeScoreChange,
		TeamID:    h.Name,
		Round:     round,
		Payload: ScoreChangePayload{
			TeamID:        h.Name,
			PreviousScore: previousScore,
			NewScore:      h.Score,
			Delta:         result.ScoreDelta,
			Cause:         "Timeout",
		},
	})

	metrics.Get().RecordDiagnosis(string(result.Outcome), false)
	metrics.Get().RecordTimeout()
	ae.logger.Event("DIAGNOSIS_TIMEOUT", h.Name, fmt.Sprintf("%s unanswered, scored as misdiagnosis", p.ID))

	return result
}

func eventTypeFor(outcome rules.Outcome) events.EventType {
	switch outcome {
	case rules.OutcomeAdmitted:
		return events.EventTypePatientAdmitted
	case rules.OutcomeReferred:
		return events.EventTypePatientReferred
	default:
		return events.EventTypeMisdiagnosis
	}
}
