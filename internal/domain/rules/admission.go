// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"github.com/medward/triage-server/internal/domain/department"
	"github.com/medward/triage-server/internal/domain/patient"
)

// QuickDiagnosisThreshold is the decision time in seconds under which a
// correct admission earns the +1 bonus.
const QuickDiagnosisThreshold = 15.0

// Outcome classifies how one diagnosis resolved.
type Outcome string

const (
	OutcomeAdmitted     Outcome = "Admitted"
	OutcomeMisdiagnosed Outcome = "Misdiagnosed"
	OutcomeReferred     Outcome = "Referred"
)

// RoundResult is the ephemeral product of resolving one diagnosis.
type RoundResult struct {
	Outcome    Outcome `json:"outcome"`
	ScoreDelta int     `json:"score_delta"`
	QuickBonus bool    `json:"quick_bonus"`
}

// ResolveDiagnosis applies the admission rule table. It is a total function:
// every well-typed input maps to exactly one result.
//
//	wrong guess                -> Misdiagnosed, -1, no bed change
//	correct guess, no bed left -> Referred, -1, no bed change
//	correct guess, bed left    -> Admitted, +points (+1 if under threshold)
//
// The caller owns the actual bed decrement and score mutation; this function
// only decides them.
func ResolveDiagnosis(p patient.Patient, guess department.Name, bedsRemaining int, elapsedSeconds float64) RoundResult {
	if guess != p.CorrectDepartment {
		return RoundResult{Outcome: OutcomeMisdiagnosed, ScoreDelta: -1}
	}

	if bedsRemaining <= 0 {
		return RoundResult{Outcome: OutcomeReferred, ScoreDelta: -1}
	}

	result := RoundResult{Outcome: OutcomeAdmitted, ScoreDelta: p.Points}
	if elapsedSeconds < QuickDiagnosisThreshold {
		result.ScoreDelta++
		result.QuickBonus = true
	}
	return result
}
