package deck

// CostFunc returns the capacity cost of a modifier card.
type CostFunc func(id string) int

// CapacitySnapshot is the state value capacity checks are evaluated against.
// It is built from a composition for deck building, or from the attached
// modifiers of an active play; what-if checks build a modified copy.
type CapacitySnapshot struct {
	Counts   map[string]int
	Capacity int
	Policy   CapacityPolicy
}

// CapacityUsed returns the capacity consumed by s.Counts under s.Policy.
func CapacityUsed(s CapacitySnapshot, cost CostFunc) int {
	used := 0
	for id, count := range s.Counts {
		if count <= 0 {
			continue
		}
		if s.Policy == PolicySlotCounted {
			used += count
			continue
		}
		used += count * cost(id)
	}
	return used
}

// CanAddModifier reports whether one more unit of id fits in s.
func CanAddModifier(s CapacitySnapshot, id string, cost CostFunc) bool {
	return canAddModifiers(s, id, 1, cost)
}

// canAddModifiers reports whether n more units of id fit in s, in closed
// form so a large n costs the same as one.
func canAddModifiers(s CapacitySnapshot, id string, n int, cost CostFunc) bool {
	if n <= 0 {
		return true
	}
	free := s.Capacity - CapacityUsed(s, cost)
	if s.Policy == PolicySlotCounted {
		return n <= free
	}
	if free < 0 {
		return false
	}
	c := cost(id)
	if c <= 0 {
		return true
	}
	return n <= free/c
}
