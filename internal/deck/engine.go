package deck

import (
	"github.com/magefree/deckplay-server-go/internal/catalog"
)

// Engine applies deck operations to State values. It holds no per-builder
// state and is safe to share between builders.
type Engine struct {
	catalog  catalog.Catalog
	rules    Rules
	shuffler *Shuffler
}

// NewEngine creates an engine. A nil shuffler is replaced by a randomly seeded one.
func NewEngine(cat catalog.Catalog, rules Rules, shuffler *Shuffler) *Engine {
	if shuffler == nil {
		shuffler = NewRandomShuffler()
	}
	return &Engine{
		catalog:  cat,
		rules:    rules,
		shuffler: shuffler,
	}
}

// Rules returns the engine's rules.
func (e *Engine) Rules() Rules { return e.rules }

// Catalog returns the catalog the engine queries.
func (e *Engine) Catalog() catalog.Catalog { return e.catalog }

// NewState returns the default builder state.
func (e *Engine) NewState() State {
	return State{
		Composition: NewComposition(e.rules),
		Lifecycle:   LifecycleUnlocked,
		HandLimit:   e.rules.DefaultHandLimit,
	}
}

// Validate runs the composition validator on s.
func (e *Engine) Validate(s State) Validation {
	return Validate(s.Composition, e.rules, e.costOf)
}

// CapacityUsed returns the composition's modifier capacity usage.
func (e *Engine) CapacityUsed(s State) int {
	return CapacityUsed(s.Composition.capacitySnapshot(e.rules.Policy), e.costOf)
}

// PlayCapacityUsed returns the capacity used by the active play's modifiers.
func (e *Engine) PlayCapacityUsed(s State) int {
	return CapacityUsed(e.playSnapshot(s), e.costOf)
}

func (e *Engine) costOf(id string) int {
	card, ok := e.catalog.GetCard(id)
	if !ok {
		return 0
	}
	return card.Cost
}

func (e *Engine) category(id string) (catalog.Category, bool) {
	card, ok := e.catalog.GetCard(id)
	if !ok {
		return "", false
	}
	return card.Category, true
}
