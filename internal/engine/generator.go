// Package engine contains the game loop and scoring logic.
// This is the authoritative core: departments, beds and scores are only
// ever mutated here, in response to submitted diagnoses.
package engine

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/medward/triage-server/internal/domain/department"
	"github.com/medward/triage-server/internal/domain/patient"
)

// PatientGenerator produces one fresh patient per team per round.
//
// The randomness source is injected so a seeded generator replays the same
// patient sequence, which keeps whole games reproducible under test.
type PatientGenerator struct {
	rng *rand.Rand
}

// NewPatientGenerator creates a generator backed by the given source.
func NewPatientGenerator(rng *rand.Rand) *PatientGenerator {
	return &PatientGenerator{rng: rng}
}

// Generate draws a patient for one team. The correct department is chosen
// uniformly from the six registered departments and the point value
// uniformly from [3,5]; the complaint card is then picked from the library
// entries for that department so the client has something to display.
func (g *PatientGenerator) Generate(round int, teamName string) patient.Patient {
	depts := department.All()
	correct := depts[g.rng.Intn(len(depts))]
	points := 3 + g.rng.Intn(3)

	cases := patient.CasesFor(correct)
	c := cases[g.rng.Intn(len(cases))]

	return patient.Patient{
		ID:                patientID(round, teamName),
		Complaint:         c.Complaint,
		Difficulty:        c.Difficulty,
		CorrectDepartment: correct,
		Points:            points,
		Options:           c.Options,
	}
}

// patientID builds a readable case identifier like "P003_HOS".
func patientID(round int, teamName string) string {
	prefix := strings.ToUpper(strings.ReplaceAll(teamName, " ", ""))
	// Truncate by runes so non-ASCII team names stay valid UTF-8.
	if runes := []rune(prefix); len(runes) > 3 {
		prefix = string(runes[:3])
	}
	return fmt.Sprintf("P%03d_%s", round, prefix)
}
