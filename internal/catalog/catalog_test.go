package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const sampleCatalog = `
cards:
  - id: B1
    name: Strike
    category: base
    text: Deal 3 damage.
  - id: B2
    category: base
  - id: M1
    name: Sharpen
    category: modifier
    cost: 2
    details: ["+1 damage", "pierce"]
    rarity: common
  - id: N0
    name: Static
    category: "null"
`

func TestParseFileAndRegistry(t *testing.T) {
	cards, err := ParseFile([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, cards, 4)

	reg, err := NewRegistry(cards)
	require.NoError(t, err)
	assert.Equal(t, 4, reg.Len())

	card, ok := reg.GetCard("M1")
	require.True(t, ok)
	assert.Equal(t, CategoryModifier, card.Category)
	assert.Equal(t, 2, card.Cost)
	assert.Equal(t, []string{"+1 damage", "pierce"}, card.Details)

	b2, ok := reg.GetCard("B2")
	require.True(t, ok)
	assert.Equal(t, "B2", b2.Name, "name defaults to id")

	assert.Equal(t, []string{"B1", "B2"}, IDs(reg.ListBaseCards()))
	assert.Equal(t, []string{"M1"}, IDs(reg.ListModifierCards()))

	null, ok := reg.GetNullCard()
	require.True(t, ok)
	assert.Equal(t, "N0", null.ID)

	_, ok = reg.GetCard("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsInvalidCards(t *testing.T) {
	tests := []struct {
		name  string
		cards []Card
	}{
		{"missing id", []Card{{Category: CategoryBase}}},
		{"duplicate id", []Card{{ID: "A", Category: CategoryBase}, {ID: "A", Category: CategoryBase}}},
		{"bad category", []Card{{ID: "A", Category: "spell"}}},
		{"negative cost", []Card{{ID: "A", Category: CategoryModifier, Cost: -1}}},
		{"two nulls", []Card{{ID: "N1", Category: CategoryNull}, {ID: "N2", Category: CategoryNull}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.cards)
			assert.Error(t, err)
		})
	}
}

func TestRegistryReplaceKeepsPreviousOnError(t *testing.T) {
	reg, err := NewRegistry([]Card{{ID: "B1", Category: CategoryBase}})
	require.NoError(t, err)

	err = reg.Replace([]Card{{ID: "", Category: CategoryBase}})
	require.Error(t, err)

	_, ok := reg.GetCard("B1")
	assert.True(t, ok)
}

func TestNonModifierCostIsIgnored(t *testing.T) {
	reg, err := NewRegistry([]Card{{ID: "B1", Category: CategoryBase, Cost: 4}})
	require.NoError(t, err)
	card, _ := reg.GetCard("B1")
	assert.Zero(t, card.Cost)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cards.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, reg, zaptest.NewLogger(t)) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	updated := sampleCatalog + `
  - id: B3
    category: base
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		_, ok := reg.GetCard("B3")
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
