// Package hospital defines the per-team mutable game state.
// This package is PURE and must NOT import any infrastructure packages.
package hospital

import (
	"time"

	"github.com/medward/triage-server/internal/domain/department"
	"github.com/medward/triage-server/internal/domain/patient"
	"github.com/medward/triage-server/internal/domain/rules"
)

// AdmissionRecord remembers one admitted patient for the ward view.
type AdmissionRecord struct {
	Complaint  string          `json:"complaint"`
	Department department.Name `json:"department"`
	Points     int             `json:"points"`
	AdmittedAt time.Time       `json:"admitted_at"`
}

// Hospital is one team's state: remaining beds per department, cumulative
// score and the bookkeeping counters shown on the scoreboard. It is owned by
// the engine and mutated only during that team's turn resolution.
type Hospital struct {
	Name          string                  `json:"name"`
	Score         int                     `json:"score"`
	BedsRemaining map[department.Name]int `json:"beds_remaining"`

	Admitted       []AdmissionRecord `json:"admitted"`
	ReferredCount  int               `json:"referred_count"`
	CorrectCount   int               `json:"correct_count"`
	WrongCount     int               `json:"wrong_count"`
}

// NewHospital creates a fresh hospital with the registry's starting
// capacities.
func NewHospital(name string) *Hospital {
	return &Hospital{
		Name:          name,
		BedsRemaining: department.Capacities(),
	}
}

// ApplyResult mutates the hospital according to an already-resolved round
// result. The score delta is applied unconditionally; a bed is consumed only
// on admission. Bed counts can never leave [0, capacity] because the only
// mutation is a guarded single decrement.
func (h *Hospital) ApplyResult(p patient.Patient, result rules.RoundResult) {
	switch result.Outcome {
	case rules.OutcomeAdmitted:
		if h.BedsRemaining[p.CorrectDepartment] > 0 {
			h.BedsRemaining[p.CorrectDepartment]--
		}
		h.CorrectCount++
		h.Admitted = append(h.Admitted, AdmissionRecord{
			Complaint:  p.Complaint,
			Department: p.CorrectDepartment,
			Points:     p.Points,
			AdmittedAt: time.Now(),
		})
	case rules.OutcomeReferred:
		h.CorrectCount++
		h.ReferredCount++
	case rules.OutcomeMisdiagnosed:
		h.WrongCount++
	}

	h.Score += result.ScoreDelta
}

// DiagnosisAccuracy returns the percentage of correct diagnoses so far.
func (h *Hospital) DiagnosisAccuracy() float64 {
	total := h.CorrectCount + h.WrongCount
	if total == 0 {
		return 0
	}
	return float64(h.CorrectCount) / float64(total) * 100
}

// BedOccupancyRate returns the percentage of beds currently occupied across
// all departments.
func (h *Hospital) BedOccupancyRate() float64 {
	total := 0
	remaining := 0
	for _, d := range department.Registry {
		total += d.Capacity
		remaining += h.BedsRemaining[d.Name]
	}
	if total == 0 {
		return 0
	}
	return float64(total-remaining) / float64(total) * 100
}
