// Package catalog holds the read-only card definitions the deck engine queries.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Category classifies a card for deck building and play.
type Category string

const (
	// CategoryBase is a primary playable card.
	CategoryBase Category = "base"
	// CategoryModifier is attached to a base and consumes capacity.
	CategoryModifier Category = "modifier"
	// CategoryNull is filler; it can only be discarded.
	CategoryNull Category = "null"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryBase, CategoryModifier, CategoryNull:
		return true
	default:
		return false
	}
}

// Card is an immutable card definition.
type Card struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Category Category `yaml:"category" json:"category"`
	Cost     int      `yaml:"cost,omitempty" json:"cost,omitempty"`
	Text     string   `yaml:"text,omitempty" json:"text,omitempty"`
	Details  []string `yaml:"details,omitempty" json:"details,omitempty"`
	Target   string   `yaml:"target,omitempty" json:"target,omitempty"`
	Rarity   string   `yaml:"rarity,omitempty" json:"rarity,omitempty"`
}

// Catalog is the lookup surface consumed by the deck engine.
type Catalog interface {
	GetCard(id string) (Card, bool)
	ListBaseCards() []Card
	ListModifierCards() []Card
	GetNullCard() (Card, bool)
}

// Registry is an in-memory Catalog. Its contents can be swapped atomically
// when the backing file changes.
type Registry struct {
	mu     sync.RWMutex
	cards  map[string]Card
	order  []string
	nullID string
}

// NewRegistry builds a registry from the given cards.
func NewRegistry(cards []Card) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(cards); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace validates cards and swaps them in. On error the previous contents are kept.
func (r *Registry) Replace(cards []Card) error {
	index := make(map[string]Card, len(cards))
	order := make([]string, 0, len(cards))
	nullID := ""

	for i, card := range cards {
		card.ID = strings.TrimSpace(card.ID)
		if card.ID == "" {
			return fmt.Errorf("card %d: id is required", i)
		}
		if _, exists := index[card.ID]; exists {
			return fmt.Errorf("card %s: duplicate id", card.ID)
		}
		if !card.Category.Valid() {
			return fmt.Errorf("card %s: unknown category %q", card.ID, card.Category)
		}
		if card.Cost < 0 {
			return fmt.Errorf("card %s: cost must be >= 0", card.ID)
		}
		if card.Category != CategoryModifier {
			card.Cost = 0
		}
		if card.Category == CategoryNull {
			if nullID != "" {
				return fmt.Errorf("card %s: only one null card allowed (already have %s)", card.ID, nullID)
			}
			nullID = card.ID
		}
		if card.Name == "" {
			card.Name = card.ID
		}
		card.Details = append([]string(nil), card.Details...)
		index[card.ID] = card
		order = append(order, card.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards = index
	r.order = order
	r.nullID = nullID
	return nil
}

// GetCard returns the card with the given id.
func (r *Registry) GetCard(id string) (Card, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	card, ok := r.cards[id]
	return card, ok
}

// ListBaseCards returns base cards in catalog order.
func (r *Registry) ListBaseCards() []Card {
	return r.list(CategoryBase)
}

// ListModifierCards returns modifier cards in catalog order.
func (r *Registry) ListModifierCards() []Card {
	return r.list(CategoryModifier)
}

// GetNullCard returns the catalog's null card, if any.
func (r *Registry) GetNullCard() (Card, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.nullID == "" {
		return Card{}, false
	}
	return r.cards[r.nullID], true
}

// Len returns the number of cards.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) list(category Category) []Card {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Card, 0, len(r.order))
	for _, id := range r.order {
		if card := r.cards[id]; card.Category == category {
			out = append(out, card)
		}
	}
	return out
}

// IDs returns the ids of cards sorted lexically.
func IDs(cards []Card) []string {
	ids := make([]string, len(cards))
	for i, card := range cards {
		ids[i] = card.ID
	}
	sort.Strings(ids)
	return ids
}
