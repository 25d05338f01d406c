// Package department defines the fixed set of hospital departments.
// This package is PURE and must NOT import any infrastructure packages.
package department

// Name identifies one of the six known departments.
type Name string

const (
	Emergency   Name = "Emergency"
	Surgery     Name = "Surgery"
	Pediatrics  Name = "Pediatrics"
	Cardiology  Name = "Cardiology"
	ICU         Name = "ICU"
	Orthopedics Name = "Orthopedics"
)

// Department is the immutable template for a ward: its name and how many
// beds a fresh hospital starts with.
type Department struct {
	Name     Name `json:"name"`
	Capacity int  `json:"capacity"`
}

// Registry lists every department in display order with its starting
// capacity. Capacities are copied into per-team state at game start and
// never mutated here.
var Registry = []Department{
	{Name: Emergency, Capacity: 4},
	{Name: Surgery, Capacity: 3},
	{Name: Pediatrics, Capacity: 3},
	{Name: Cardiology, Capacity: 2},
	{Name: ICU, Capacity: 2},
	{Name: Orthopedics, Capacity: 2},
}

// All returns the department names in registry order.
func All() []Name {
	names := make([]Name, len(Registry))
	for i, d := range Registry {
		names[i] = d.Name
	}
	return names
}

// Capacities returns a fresh name->capacity map safe for the caller to
// mutate as its own bed counters.
func Capacities() map[Name]int {
	caps := make(map[Name]int, len(Registry))
	for _, d := range Registry {
		caps[d.Name] = d.Capacity
	}
	return caps
}

// CapacityOf returns the starting capacity for a department, or 0 for an
// unknown name.
func CapacityOf(n Name) int {
	for _, d := range Registry {
		if d.Name == n {
			return d.Capacity
		}
	}
	return 0
}

// IsValid reports whether n is one of the six known departments.
func IsValid(n Name) bool {
	for _, d := range Registry {
		if d.Name == n {
			return true
		}
	}
	return false
}
