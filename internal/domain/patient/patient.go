// Package patient defines the patient cases teams diagnose each round.
// This package is PURE and must NOT import any infrastructure packages.
package patient

import "github.com/medward/triage-server/internal/domain/department"

// Difficulty is a coarse label shown to players; it carries no mechanics.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Patient is one round's case for one team. Created fresh by the generator
// and discarded after scoring.
type Patient struct {
	ID                string            `json:"id"`
	Complaint         string            `json:"complaint"`
	Difficulty        Difficulty        `json:"difficulty"`
	CorrectDepartment department.Name   `json:"correct_department"`
	Points            int               `json:"points"` // 3-5
	Options           []department.Name `json:"options"`
}

// Case is a template complaint card from the case library.
type Case struct {
	Complaint  string
	Difficulty Difficulty
	Correct    department.Name
	Points     int
	Options    []department.Name
}

// Library contains the complaint cards. Every department has at least one
// card so a uniform department draw can always be dressed with a complaint.
var Library = []Case{
	{
		Complaint:  "Severe chest pain radiating to left arm",
		Difficulty: DifficultyMedium,
		Correct:    department.Cardiology,
		Points:     4,
		Options:    []department.Name{department.Cardiology, department.Emergency, department.Surgery},
	},
	{
		Complaint:  "High fever and rash in child",
		Difficulty: DifficultyEasy,
		Correct:    department.Pediatrics,
		Points:     3,
		Options:    []department.Name{department.Pediatrics, department.Emergency, department.ICU},
	},
	{
		Complaint:  "Compound fracture of femur",
		Difficulty: DifficultyMedium,
		Correct:    department.Orthopedics,
		Points:     4,
		Options:    []department.Name{department.Orthopedics, department.Surgery, department.Emergency},
	},
	{
		Complaint:  "Difficulty breathing and low oxygen",
		Difficulty: DifficultyHard,
		Correct:    department.ICU,
		Points:     5,
		Options:    []department.Name{department.ICU, department.Emergency, department.Cardiology},
	},
	{
		Complaint:  "Appendicitis symptoms",
		Difficulty: DifficultyMedium,
		Correct:    department.Surgery,
		Points:     4,
		Options:    []department.Name{department.Surgery, department.Emergency, department.ICU},
	},
	{
		Complaint:  "Multiple trauma from car accident",
		Difficulty: DifficultyHard,
		Correct:    department.Emergency,
		Points:     5,
		Options:    []department.Name{department.Emergency, department.Surgery, department.ICU},
	},
	{
		Complaint:  "Burn injuries 30% body surface",
		Difficulty: DifficultyHard,
		Correct:    department.Surgery,
		Points:     5,
		Options:    []department.Name{department.Surgery, department.Emergency, department.ICU},
	},
	{
		Complaint:  "Neonatal jaundice",
		Difficulty: DifficultyEasy,
		Correct:    department.Pediatrics,
		Points:     3,
		Options:    []department.Name{department.Pediatrics, department.Emergency, department.ICU},
	},
	{
		Complaint:  "Heart attack symptoms",
		Difficulty: DifficultyMedium,
		Correct:    department.Cardiology,
		Points:     4,
		Options:    []department.Name{department.Cardiology, department.Emergency, department.ICU},
	},
	{
		Complaint:  "Dislocated shoulder",
		Difficulty: DifficultyEasy,
		Correct:    department.Orthopedics,
		Points:     3,
		Options:    []department.Name{department.Orthopedics, department.Emergency, department.Surgery},
	},
}

// CasesFor returns the library cards whose correct department is d.
func CasesFor(d department.Name) []Case {
	var cases []Case
	for _, c := range Library {
		if c.Correct == d {
			cases = append(cases, c)
		}
	}
	return cases
}
