package patient

import (
	"testing"

	"github.com/medward/triage-server/internal/domain/department"
)

func TestEveryDepartmentHasCases(t *testing.T) {
	for _, d := range department.All() {
		if len(CasesFor(d)) == 0 {
			t.Errorf("Department %s has no complaint cards", d)
		}
	}
}

func TestLibraryCardsAreConsistent(t *testing.T) {
	for _, c := range Library {
		if c.Complaint == "" {
			t.Error("Found a card with no complaint text")
		}
		if !department.IsValid(c.Correct) {
			t.Errorf("Card %q points to unknown department %q", c.Complaint, c.Correct)
		}

		found := false
		for _, opt := range c.Options {
			if !department.IsValid(opt) {
				t.Errorf("Card %q offers unknown option %q", c.Complaint, opt)
			}
			if opt == c.Correct {
				found = true
			}
		}
		if len(c.Options) > 0 && !found {
			t.Errorf("Card %q does not list its own answer among the options", c.Complaint)
		}
	}
}
