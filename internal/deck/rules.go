// Package deck implements the deck engine: composition rules, the deck
// lifecycle, zone transitions and the play selection protocol.
//
// Every operation takes a State value and returns the next State. A rejected
// operation returns the input State unchanged together with an *Error.
package deck

import "fmt"

// CapacityPolicy selects how modifier capacity usage is measured.
type CapacityPolicy string

const (
	// PolicyCostWeighted sums count × cost over modifiers.
	PolicyCostWeighted CapacityPolicy = "cost"
	// PolicySlotCounted sums raw modifier counts; each card is one slot.
	PolicySlotCounted CapacityPolicy = "slot"
)

// MaxHandLimit is the largest allowed hand limit.
const MaxHandLimit = 20

// DefaultMaxDeckSize bounds the cards a composition may build when
// Rules.MaxDeckSize is unset.
const DefaultMaxDeckSize = 200

// MaxModifierCapacity is the largest allowed modifier capacity.
const MaxModifierCapacity = 1000

// Rules configures deck-build validation and defaults for new builders.
type Rules struct {
	BaseTarget       int
	MinNulls         int
	DefaultCapacity  int
	DefaultHandLimit int
	// SimpleCounters drops the fixed base total.
	SimpleCounters bool
	Policy         CapacityPolicy
	// MaxDeckSize caps base + modifier + null counts; 0 means DefaultMaxDeckSize.
	MaxDeckSize int
}

// DefaultRules returns the standard 26-base, 5-null, capacity 10 ruleset.
func DefaultRules() Rules {
	return Rules{
		BaseTarget:       26,
		MinNulls:         5,
		DefaultCapacity:  10,
		DefaultHandLimit: 5,
		SimpleCounters:   false,
		Policy:           PolicyCostWeighted,
		MaxDeckSize:      DefaultMaxDeckSize,
	}
}

// Validate checks the rules themselves.
func (r Rules) Validate() error {
	if r.BaseTarget < 0 {
		return fmt.Errorf("base target must be >= 0")
	}
	if r.MinNulls < 0 {
		return fmt.Errorf("min nulls must be >= 0")
	}
	if r.DefaultCapacity < 0 || r.DefaultCapacity > MaxModifierCapacity {
		return fmt.Errorf("default capacity must be between 0 and %d", MaxModifierCapacity)
	}
	if r.MaxDeckSize < 0 {
		return fmt.Errorf("max deck size must be >= 0")
	}
	if r.BaseTarget > r.maxDeckSize() || r.MinNulls > r.maxDeckSize()-r.BaseTarget {
		return fmt.Errorf("base target plus min nulls exceeds max deck size %d", r.maxDeckSize())
	}
	if r.DefaultHandLimit < 0 || r.DefaultHandLimit > MaxHandLimit {
		return fmt.Errorf("default hand limit must be between 0 and %d", MaxHandLimit)
	}
	switch r.Policy {
	case PolicyCostWeighted, PolicySlotCounted:
	default:
		return fmt.Errorf("unknown capacity policy %q", r.Policy)
	}
	return nil
}

// capacityUnbounded is true when simple counters are combined with
// slot counting; modifier capacity is then not enforced.
func (r Rules) capacityUnbounded() bool {
	return r.SimpleCounters && r.Policy == PolicySlotCounted
}

func (r Rules) maxDeckSize() int {
	if r.MaxDeckSize <= 0 {
		return DefaultMaxDeckSize
	}
	return r.MaxDeckSize
}
