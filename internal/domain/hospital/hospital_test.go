package hospital

import (
	"testing"

	"github.com/medward/triage-server/internal/domain/department"
	"github.com/medward/triage-server/internal/domain/patient"
	"github.com/medward/triage-server/internal/domain/rules"
)

func TestNewHospitalStartingCapacities(t *testing.T) {
	h := NewHospital("Hospital 1")

	expected := map[department.Name]int{
		department.Emergency:   4,
		department.Surgery:     3,
		department.Pediatrics:  3,
		department.Cardiology:  2,
		department.ICU:         2,
		department.Orthopedics: 2,
	}

	for name, want := range expected {
		if got := h.BedsRemaining[name]; got != want {
			t.Errorf("Expected %s to start with %d beds, got %d", name, want, got)
		}
	}
	if h.Score != 0 {
		t.Errorf("Expected fresh hospital to start at score 0, got %d", h.Score)
	}
}

func TestRegistryCapacitiesAreIndependent(t *testing.T) {
	h1 := NewHospital("Hospital 1")
	h2 := NewHospital("Hospital 2")

	h1.BedsRemaining[department.ICU] = 0

	if h2.BedsRemaining[department.ICU] != 2 {
		t.Error("Mutating one hospital's beds must not affect another hospital")
	}
	if department.CapacityOf(department.ICU) != 2 {
		t.Error("Mutating a hospital's beds must not affect the registry")
	}
}

func TestApplyAdmissionConsumesOneBed(t *testing.T) {
	h := NewHospital("Hospital 1")
	p := patient.Patient{
		Complaint:         "Broken femur",
		CorrectDepartment: department.Orthopedics,
		Points:            4,
	}

	h.ApplyResult(p, rules.RoundResult{Outcome: rules.OutcomeAdmitted, ScoreDelta: 5, QuickBonus: true})

	if h.BedsRemaining[department.Orthopedics] != 1 {
		t.Errorf("Expected 1 Orthopedics bed after admission, got %d", h.BedsRemaining[department.Orthopedics])
	}
	if h.Score != 5 {
		t.Errorf("Expected score 5, got %d", h.Score)
	}
	if len(h.Admitted) != 1 || h.Admitted[0].Complaint != "Broken femur" {
		t.Errorf("Expected one admission record for the femur case, got %v", h.Admitted)
	}
}

func TestApplyMisdiagnosisLeavesBedsUntouched(t *testing.T) {
	h := NewHospital("Hospital 1")
	p := patient.Patient{CorrectDepartment: department.Surgery, Points: 4}

	h.ApplyResult(p, rules.RoundResult{Outcome: rules.OutcomeMisdiagnosed, ScoreDelta: -1})

	if h.BedsRemaining[department.Surgery] != 3 {
		t.Errorf("Misdiagnosis must not change beds, got %d", h.BedsRemaining[department.Surgery])
	}
	if h.Score != -1 {
		t.Errorf("Expected score -1, got %d", h.Score)
	}
	if h.WrongCount != 1 {
		t.Errorf("Expected WrongCount 1, got %d", h.WrongCount)
	}
}

func TestApplyReferralLeavesBedsUntouched(t *testing.T) {
	h := NewHospital("Hospital 1")
	h.BedsRemaining[department.ICU] = 0
	p := patient.Patient{CorrectDepartment: department.ICU, Points: 5}

	h.ApplyResult(p, rules.RoundResult{Outcome: rules.OutcomeReferred, ScoreDelta: -1})

	if h.BedsRemaining[department.ICU] != 0 {
		t.Errorf("Referral must not change beds, got %d", h.BedsRemaining[department.ICU])
	}
	if h.ReferredCount != 1 {
		t.Errorf("Expected ReferredCount 1, got %d", h.ReferredCount)
	}
	if h.CorrectCount != 1 {
		t.Error("A referral is still a correct diagnosis")
	}
}

func TestWardFillsThenRefers(t *testing.T) {
	h := NewHospital("Hospital 1")
	p := patient.Patient{CorrectDepartment: department.ICU, Points: 3}

	// ICU has 2 beds: two correct diagnoses admit, the third refers.
	for attempt := 1; attempt <= 3; attempt++ {
		result := rules.ResolveDiagnosis(p, department.ICU, h.BedsRemaining[department.ICU], 5)
		h.ApplyResult(p, result)

		if attempt <= 2 && result.Outcome != rules.OutcomeAdmitted {
			t.Errorf("Attempt %d: expected Admitted, got %s", attempt, result.Outcome)
		}
		if attempt == 3 && result.Outcome != rules.OutcomeReferred {
			t.Errorf("Attempt 3: expected Referred with the ward full, got %s", result.Outcome)
		}
	}

	if h.BedsRemaining[department.ICU] != 0 {
		t.Errorf("Expected 0 ICU beds, got %d", h.BedsRemaining[department.ICU])
	}
	if h.ReferredCount != 1 {
		t.Errorf("Expected 1 referral, got %d", h.ReferredCount)
	}
}

func TestBedsNeverGoNegative(t *testing.T) {
	h := NewHospital("Hospital 1")
	p := patient.Patient{CorrectDepartment: department.Cardiology, Points: 3}

	// Admit more patients than Cardiology's 2 beds. The engine prevents
	// this, but the state layer must hold the floor regardless.
	for i := 0; i < 5; i++ {
		h.ApplyResult(p, rules.RoundResult{Outcome: rules.OutcomeAdmitted, ScoreDelta: 3})
	}

	if h.BedsRemaining[department.Cardiology] != 0 {
		t.Errorf("Expected floor of 0 beds, got %d", h.BedsRemaining[department.Cardiology])
	}
}

func TestDiagnosisAccuracy(t *testing.T) {
	h := NewHospital("Hospital 1")

	if h.DiagnosisAccuracy() != 0 {
		t.Error("Accuracy with no diagnoses should be 0")
	}

	p := patient.Patient{CorrectDepartment: department.Emergency, Points: 3}
	h.ApplyResult(p, rules.RoundResult{Outcome: rules.OutcomeAdmitted, ScoreDelta: 3})
	h.ApplyResult(p, rules.RoundResult{Outcome: rules.OutcomeAdmitted, ScoreDelta: 3})
	h.ApplyResult(p, rules.RoundResult{Outcome: rules.OutcomeMisdiagnosed, ScoreDelta: -1})
	h.ApplyResult(p, rules.RoundResult{Outcome: rules.OutcomeReferred, ScoreDelta: -1})

	if acc := h.DiagnosisAccuracy(); acc != 75 {
		t.Errorf("Expected 75%% accuracy (3 of 4), got %.2f", acc)
	}
}

func TestBedOccupancyRate(t *testing.T) {
	h := NewHospital("Hospital 1")

	if h.BedOccupancyRate() != 0 {
		t.Error("Fresh hospital should have 0%% occupancy")
	}

	// 16 beds total; fill 4 of them.
	p := patient.Patient{CorrectDepartment: department.Emergency, Points: 3}
	for i := 0; i < 4; i++ {
		h.ApplyResult(p, rules.RoundResult{Outcome: rules.OutcomeAdmitted, ScoreDelta: 3})
	}

	if rate := h.BedOccupancyRate(); rate != 25 {
		t.Errorf("Expected 25%% occupancy, got %.2f", rate)
	}
}
