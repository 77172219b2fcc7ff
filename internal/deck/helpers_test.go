package deck

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magefree/deckplay-server-go/internal/catalog"
)

const nullID = "N0"

func testCatalog(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, err := catalog.NewRegistry([]catalog.Card{
		{ID: "B1", Name: "Strike", Category: catalog.CategoryBase},
		{ID: "B2", Name: "Guard", Category: catalog.CategoryBase},
		{ID: "M1", Name: "Sharpen", Category: catalog.CategoryModifier, Cost: 2},
		{ID: "M2", Name: "Overload", Category: catalog.CategoryModifier, Cost: 3},
		{ID: "M9", Name: "Colossus", Category: catalog.CategoryModifier, Cost: 11},
		{ID: nullID, Name: "Static", Category: catalog.CategoryNull},
	})
	require.NoError(t, err)
	return reg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(testCatalog(t), DefaultRules(), NewSeededShuffler(42))
}

func newEngineWithRules(t *testing.T, rules Rules) *Engine {
	t.Helper()
	return NewEngine(testCatalog(t), rules, NewSeededShuffler(42))
}

// scenarioA builds 26×B1 and 5×M1 (10 capacity used of 10).
func scenarioA(t *testing.T, e *Engine) State {
	t.Helper()
	s := e.NewState()
	var err error
	s, err = e.AdjustBaseCount(s, "B1", 26)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		s, err = e.AdjustModCount(s, "M1", 1)
		require.NoError(t, err)
	}
	return s
}

// readyState locks and shuffles the scenario A composition.
func readyState(t *testing.T, e *Engine) State {
	t.Helper()
	s, err := e.Lock(scenarioA(t, e))
	require.NoError(t, err)
	s, err = e.Shuffle(s, false)
	require.NoError(t, err)
	return s
}

// handState returns a ready state whose hand holds exactly the given ids.
// The cards are taken out of the deck so the multiset is preserved.
func handState(t *testing.T, e *Engine, ids ...string) State {
	t.Helper()
	s := readyState(t, e)
	for _, id := range ids {
		idx := -1
		for i := len(s.Deck) - 1; i >= 0; i-- {
			if s.Deck[i] == id {
				idx = i
				break
			}
		}
		require.GreaterOrEqual(t, idx, 0, "card %s not in deck", id)
		s.Deck = append(s.Deck[:idx], s.Deck[idx+1:]...)
		s.Hand = append(s.Hand, HandEntry{ID: id, State: PlayStateUnspent})
	}
	return s
}

// requireRejected asserts err has code and that after is bit-for-bit before.
func requireRejected(t *testing.T, code Code, before State, beforeSum string, after State, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, CodeOf(err), "unexpected error: %v", err)
	require.Equal(t, beforeSum, Checksum(before), "input state was mutated")
	require.Equal(t, beforeSum, Checksum(after), "rejected operation changed state")
}
