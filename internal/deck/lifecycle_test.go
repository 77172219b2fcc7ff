package deck

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockBuildsUnshuffledDeck(t *testing.T) {
	e := newTestEngine(t)
	s, err := e.Lock(scenarioA(t, e))
	require.NoError(t, err)

	assert.Equal(t, LifecycleLockedBuilt, s.Lifecycle)
	assert.Len(t, s.Deck, 36)
	assert.Empty(t, s.Hand)
	assert.Empty(t, s.Discard)
	assert.True(t, s.Lifecycle.HasBuiltDeck())
	assert.False(t, s.Lifecycle.HasShuffledDeck())

	counts := s.CardCounts()
	assert.Equal(t, 26, counts["B1"])
	assert.Equal(t, 5, counts["M1"])
	assert.Equal(t, 5, counts[nullID])

	sum := Checksum(s)
	after, err := e.Draw(s)
	requireRejected(t, CodeNotShuffled, s, sum, after, err)
	assert.Equal(t, "shuffle before drawing", err.Error())
	assert.Empty(t, after.Hand)
}

func TestDrawStopsAtHandLimit(t *testing.T) {
	e := newTestEngine(t)
	s := readyState(t, e)
	require.Equal(t, 5, s.HandLimit)

	var err error
	for i := 0; i < 5; i++ {
		s, err = e.Draw(s)
		require.NoError(t, err)
	}
	assert.Len(t, s.Hand, 5)
	assert.Len(t, s.Deck, 31)
	assert.False(t, CanDraw(s))

	sum := Checksum(s)
	after, err := e.Draw(s)
	requireRejected(t, CodeHandFull, s, sum, after, err)
	assert.Len(t, after.Deck, 31)
}

func TestDrawTakesTopOfDeck(t *testing.T) {
	e := newTestEngine(t)
	s := readyState(t, e)
	top := s.Deck[len(s.Deck)-1]

	s, err := e.Draw(s)
	require.NoError(t, err)
	require.Len(t, s.Hand, 1)
	assert.Equal(t, HandEntry{ID: top, State: PlayStateUnspent}, s.Hand[0])
}

func TestDrawPreconditionOrder(t *testing.T) {
	e := newTestEngine(t)

	unlocked := scenarioA(t, e)
	unbuilt := Deserialize([]byte(`{"lifecycle":"LOCKED_UNBUILT"}`), e.Rules())
	require.Equal(t, LifecycleLockedUnbuilt, unbuilt.Lifecycle)
	built, err := e.Lock(scenarioA(t, e))
	require.NoError(t, err)

	empty := readyState(t, e)
	empty.Deck = nil
	empty.HandLimit = 0

	full := readyState(t, e)
	full.HandLimit = 0

	tests := []struct {
		name  string
		state State
		code  Code
	}{
		{"unlocked", unlocked, CodeNotLocked},
		{"locked unbuilt", unbuilt, CodeNotBuilt},
		{"built not shuffled", built, CodeNotShuffled},
		{"depleted before hand full", empty, CodeDeckDepleted},
		{"hand full", full, CodeHandFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := Checksum(tt.state)
			after, err := e.Draw(tt.state)
			requireRejected(t, tt.code, tt.state, sum, after, err)
			assert.False(t, CanDraw(tt.state))
		})
	}
}

func TestLockRejectsInvalidComposition(t *testing.T) {
	e := newTestEngine(t)
	s, err := e.AdjustBaseCount(e.NewState(), "B1", 10)
	require.NoError(t, err)

	sum := Checksum(s)
	after, err := e.Lock(s)
	requireRejected(t, CodeInvalidComposition, s, sum, after, err)
	assert.Equal(t, LifecycleUnlocked, after.Lifecycle)
}

func TestLockRejectsOversizedComposition(t *testing.T) {
	e := newTestEngine(t)
	for name, nulls := range map[string]int{"above ceiling": DefaultMaxDeckSize, "max int": math.MaxInt} {
		t.Run(name, func(t *testing.T) {
			s := scenarioA(t, e)
			s.Composition.Nulls = nulls
			require.True(t, e.Validate(s).Overall)

			sum := Checksum(s)
			after, err := e.Lock(s)
			requireRejected(t, CodeInvalidComposition, s, sum, after, err)
			assert.Empty(t, after.Deck)
		})
	}
}

func TestLockTogglesAndUnlockKeepsZones(t *testing.T) {
	e := newTestEngine(t)
	s := handState(t, e, "B1")
	s.Play = &ActivePlay{BaseID: "B1", Mods: []string{}}

	unlocked, err := e.Lock(s)
	require.NoError(t, err)
	assert.Equal(t, LifecycleUnlocked, unlocked.Lifecycle)
	assert.Nil(t, unlocked.Play)
	assert.Equal(t, s.Deck, unlocked.Deck)
	assert.Equal(t, s.Hand, unlocked.Hand)

	again, err := e.Unlock(unlocked)
	require.NoError(t, err)
	assert.Equal(t, Checksum(unlocked), Checksum(again))

	relocked, err := e.Lock(unlocked)
	require.NoError(t, err)
	assert.Equal(t, LifecycleLockedBuilt, relocked.Lifecycle)
	assert.Len(t, relocked.Deck, 36)
	assert.Empty(t, relocked.Hand)
}

func TestShuffleRequiresConfirmationWhenReady(t *testing.T) {
	e := newTestEngine(t)
	s := readyState(t, e)
	s, err := e.Draw(s)
	require.NoError(t, err)

	sum := Checksum(s)
	after, err := e.Shuffle(s, false)
	requireRejected(t, CodeConfirmationRequired, s, sum, after, err)

	shuffled, err := e.Shuffle(s, true)
	require.NoError(t, err)
	assert.Equal(t, LifecycleLockedReady, shuffled.Lifecycle)
	assert.ElementsMatch(t, s.Deck, shuffled.Deck)
	assert.Equal(t, s.Hand, shuffled.Hand, "shuffle never touches the hand")
	assert.Equal(t, s.Discard, shuffled.Discard)
}

func TestShufflePreconditions(t *testing.T) {
	e := newTestEngine(t)

	s := scenarioA(t, e)
	sum := Checksum(s)
	after, err := e.Shuffle(s, true)
	requireRejected(t, CodeNotLocked, s, sum, after, err)

	unbuilt := Deserialize([]byte(`{"lifecycle":"LOCKED_UNBUILT"}`), e.Rules())
	sum = Checksum(unbuilt)
	after, err = e.Shuffle(unbuilt, true)
	requireRejected(t, CodeNotBuilt, unbuilt, sum, after, err)
}

func TestResetDeck(t *testing.T) {
	e := newTestEngine(t)

	t.Run("locked rebuilds", func(t *testing.T) {
		s := handState(t, e, "B1", "M1")
		s.Discard = []DiscardEntry{{ID: "B1", Origin: OriginPlayed}}
		s.Deck = s.Deck[:len(s.Deck)-1]

		out, err := e.ResetDeck(s)
		require.NoError(t, err)
		assert.Equal(t, LifecycleLockedBuilt, out.Lifecycle)
		assert.Len(t, out.Deck, 36)
		assert.Empty(t, out.Hand)
		assert.Empty(t, out.Discard)
	})

	t.Run("leaves locked unbuilt", func(t *testing.T) {
		raw, err := Serialize(scenarioA(t, e))
		require.NoError(t, err)
		s := Deserialize(raw, e.Rules())
		s.Lifecycle = LifecycleLockedUnbuilt

		out, err := e.ResetDeck(s)
		require.NoError(t, err)
		assert.Equal(t, LifecycleLockedBuilt, out.Lifecycle)
		assert.Len(t, out.Deck, 36)
	})

	t.Run("unlocked clears zones", func(t *testing.T) {
		s := handState(t, e, "B1")
		s, err := e.Unlock(s)
		require.NoError(t, err)

		out, err := e.ResetDeck(s)
		require.NoError(t, err)
		assert.Equal(t, LifecycleUnlocked, out.Lifecycle)
		assert.Empty(t, out.Deck)
		assert.Empty(t, out.Hand)
		assert.Equal(t, s.Composition, out.Composition)
	})
}

func TestResetBuilder(t *testing.T) {
	e := newTestEngine(t)
	s := handState(t, e, "B1")

	out, err := e.ResetBuilder(s)
	require.NoError(t, err)
	assert.Equal(t, Checksum(e.NewState()), Checksum(out))
	assert.Len(t, s.Hand, 1, "input is not mutated")
}

func TestSetHandLimit(t *testing.T) {
	e := newTestEngine(t)
	s := handState(t, e, "B1", "B1", "M1")

	for _, limit := range []int{-1, 2, MaxHandLimit + 1} {
		sum := Checksum(s)
		after, err := e.SetHandLimit(s, limit)
		requireRejected(t, CodeInvalidHandLimit, s, sum, after, err)
	}

	out, err := e.SetHandLimit(s, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, out.HandLimit)
	assert.Equal(t, 0, out.HandSpace())

	out, err = e.SetHandLimit(s, MaxHandLimit)
	require.NoError(t, err)
	assert.Equal(t, MaxHandLimit, out.HandLimit)
}

func TestHandNeverExceedsLimit(t *testing.T) {
	e := newTestEngine(t)
	s := readyState(t, e)
	var err error
	s, err = e.SetHandLimit(s, 7)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		s, _ = e.Draw(s)
		require.LessOrEqual(t, len(s.Hand), s.HandLimit)
	}
	assert.Len(t, s.Hand, 7)
}
