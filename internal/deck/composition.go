package deck

import (
	"fmt"
	"sort"

	"github.com/magefree/deckplay-server-go/internal/catalog"
)

// Composition is the editable deck recipe.
type Composition struct {
	Base     map[string]int `json:"base"`
	Mods     map[string]int `json:"mods"`
	Nulls    int            `json:"nulls"`
	Capacity int            `json:"capacity"`
}

// NewComposition returns the empty composition for r.
func NewComposition(r Rules) Composition {
	return Composition{
		Base:     map[string]int{},
		Mods:     map[string]int{},
		Nulls:    r.MinNulls,
		Capacity: r.DefaultCapacity,
	}
}

// Clone returns a deep copy.
func (c Composition) Clone() Composition {
	out := c
	out.Base = cloneCounts(c.Base)
	out.Mods = cloneCounts(c.Mods)
	return out
}

// BaseTotal is the sum of base counts.
func (c Composition) BaseTotal() int {
	return sumCounts(c.Base)
}

// ModTotal is the sum of modifier counts.
func (c Composition) ModTotal() int {
	return sumCounts(c.Mods)
}

// Size is the number of cards the composition builds.
func (c Composition) Size() int {
	return c.BaseTotal() + c.ModTotal() + c.Nulls
}

func (c Composition) capacitySnapshot(policy CapacityPolicy) CapacitySnapshot {
	return CapacitySnapshot{Counts: c.Mods, Capacity: c.Capacity, Policy: policy}
}

// Validation is the result of checking a composition against the rules.
type Validation struct {
	BaseValid bool `json:"base_valid"`
	NullValid bool `json:"null_valid"`
	ModValid  bool `json:"mod_valid"`
	Overall   bool `json:"overall"`
}

// Validate checks c against r. It has no side effects.
func Validate(c Composition, r Rules, cost CostFunc) Validation {
	v := Validation{
		BaseValid: r.SimpleCounters || c.BaseTotal() == r.BaseTarget,
		NullValid: c.Nulls >= r.MinNulls,
		ModValid:  r.capacityUnbounded() || CapacityUsed(c.capacitySnapshot(r.Policy), cost) <= c.Capacity,
	}
	v.Overall = v.BaseValid && v.NullValid && v.ModValid
	return v
}

// Preset is a named composition loaded from a presets file.
type Preset struct {
	Name     string         `yaml:"name"`
	Base     map[string]int `yaml:"base"`
	Mods     map[string]int `yaml:"mods"`
	Nulls    int            `yaml:"nulls"`
	Capacity *int           `yaml:"capacity,omitempty"`
}

// AdjustBaseCount changes the count of a base card by delta.
func (e *Engine) AdjustBaseCount(s State, id string, delta int) (State, error) {
	if s.Lifecycle.IsLocked() {
		return s, ErrLocked
	}
	if err := e.requireCategory(id, catalog.CategoryBase); err != nil {
		return s, err
	}
	if delta == 0 {
		return s, nil
	}
	current := s.Composition.Base[id]
	if delta < -current {
		return s, ErrInvalidCount
	}
	if delta > 0 {
		if !e.rules.SimpleCounters && delta > e.rules.BaseTarget-s.Composition.BaseTotal() {
			return s, ErrCapacityExceeded
		}
		if delta > e.freeDeckSlots(s.Composition) {
			return s, ErrInvalidCount
		}
	}

	out := s.Clone()
	setCount(out.Composition.Base, id, current+delta)
	return out, nil
}

// AdjustModCount changes the count of a modifier card by delta. Increments
// must fit the capacity policy as a whole.
func (e *Engine) AdjustModCount(s State, id string, delta int) (State, error) {
	if s.Lifecycle.IsLocked() {
		return s, ErrLocked
	}
	if err := e.requireCategory(id, catalog.CategoryModifier); err != nil {
		return s, err
	}
	if delta == 0 {
		return s, nil
	}
	current := s.Composition.Mods[id]
	if delta < -current {
		return s, ErrInvalidCount
	}
	if delta > 0 {
		snapshot := s.Composition.capacitySnapshot(e.rules.Policy)
		if !e.rules.capacityUnbounded() && !canAddModifiers(snapshot, id, delta, e.costOf) {
			return s, ErrCapacityExceeded
		}
		if delta > e.freeDeckSlots(s.Composition) {
			return s, ErrInvalidCount
		}
	}

	out := s.Clone()
	setCount(out.Composition.Mods, id, current+delta)
	return out, nil
}

// AdjustNullCount changes the null count; it never drops below MinNulls.
func (e *Engine) AdjustNullCount(s State, delta int) (State, error) {
	if s.Lifecycle.IsLocked() {
		return s, ErrLocked
	}
	if delta == 0 {
		return s, nil
	}
	if delta < e.rules.MinNulls-s.Composition.Nulls || delta > e.freeDeckSlots(s.Composition) {
		return s, ErrInvalidCount
	}
	out := s.Clone()
	out.Composition.Nulls += delta
	return out, nil
}

// AdjustModifierCapacity changes the modifier capacity within
// 0..MaxModifierCapacity. Lowering it below the current usage is allowed and
// shows up as ModValid=false.
func (e *Engine) AdjustModifierCapacity(s State, delta int) (State, error) {
	if s.Lifecycle.IsLocked() {
		return s, ErrLocked
	}
	if delta == 0 {
		return s, nil
	}
	capacity := s.Composition.Capacity
	if delta < -capacity || delta > MaxModifierCapacity-capacity {
		return s, ErrInvalidCount
	}
	out := s.Clone()
	out.Composition.Capacity = capacity + delta
	return out, nil
}

// withinDeckSize checks every count and the running total against
// MaxDeckSize without overflowing.
func (e *Engine) withinDeckSize(c Composition) bool {
	limit := e.rules.maxDeckSize()
	if c.Nulls < 0 || c.Nulls > limit {
		return false
	}
	total := c.Nulls
	for _, counts := range []map[string]int{c.Base, c.Mods} {
		for _, n := range counts {
			if n < 0 || n > limit-total {
				return false
			}
			total += n
		}
	}
	return true
}

// freeDeckSlots is how many more cards c may build under MaxDeckSize.
func (e *Engine) freeDeckSlots(c Composition) int {
	return e.rules.maxDeckSize() - c.Size()
}

// ApplyPreset replaces the composition with p.
func (e *Engine) ApplyPreset(s State, p Preset) (State, error) {
	if s.Lifecycle.IsLocked() {
		return s, ErrLocked
	}
	comp := NewComposition(e.rules)
	for id, count := range p.Base {
		if err := e.requireCategory(id, catalog.CategoryBase); err != nil {
			return s, err
		}
		if count < 0 || count > e.rules.maxDeckSize() {
			return s, fmt.Errorf("%w: %s", ErrInvalidCount, id)
		}
		setCount(comp.Base, id, count)
	}
	for id, count := range p.Mods {
		if err := e.requireCategory(id, catalog.CategoryModifier); err != nil {
			return s, err
		}
		if count < 0 || count > e.rules.maxDeckSize() {
			return s, fmt.Errorf("%w: %s", ErrInvalidCount, id)
		}
		setCount(comp.Mods, id, count)
	}
	if p.Nulls > e.rules.maxDeckSize() {
		return s, ErrInvalidCount
	}
	if p.Nulls > comp.Nulls {
		comp.Nulls = p.Nulls
	}
	if p.Capacity != nil {
		if *p.Capacity < 0 || *p.Capacity > MaxModifierCapacity {
			return s, ErrInvalidCount
		}
		comp.Capacity = *p.Capacity
	}
	if !e.withinDeckSize(comp) {
		return s, fmt.Errorf("%w: preset %s builds more than %d cards", ErrInvalidCount, p.Name, e.rules.maxDeckSize())
	}

	out := s.Clone()
	out.Composition = comp
	return out, nil
}

func (e *Engine) requireCategory(id string, category catalog.Category) error {
	card, ok := e.catalog.GetCard(id)
	if !ok || card.Category != category {
		return fmt.Errorf("%w: %s", ErrUnknownCard, id)
	}
	return nil
}

// materialize expands c into card ids in a stable order: base ids, modifier
// ids (each sorted), then nulls.
func (e *Engine) materialize(c Composition) ([]string, error) {
	if !e.withinDeckSize(c) {
		return nil, fmt.Errorf("%w: more than %d cards", ErrInvalidComposition, e.rules.maxDeckSize())
	}
	ids := make([]string, 0, c.Size())
	for _, id := range sortedKeys(c.Base) {
		if err := e.requireCategory(id, catalog.CategoryBase); err != nil {
			return nil, err
		}
		ids = appendN(ids, id, c.Base[id])
	}
	for _, id := range sortedKeys(c.Mods) {
		if err := e.requireCategory(id, catalog.CategoryModifier); err != nil {
			return nil, err
		}
		ids = appendN(ids, id, c.Mods[id])
	}
	if c.Nulls > 0 {
		null, ok := e.catalog.GetNullCard()
		if !ok {
			return nil, fmt.Errorf("%w: catalog has no null card", ErrUnknownCard)
		}
		ids = appendN(ids, null.ID, c.Nulls)
	}
	return ids, nil
}

func appendN(ids []string, id string, n int) []string {
	for i := 0; i < n; i++ {
		ids = append(ids, id)
	}
	return ids
}

func setCount(counts map[string]int, id string, n int) {
	if n == 0 {
		delete(counts, id)
		return
	}
	counts[id] = n
}

func cloneCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sumCounts(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
