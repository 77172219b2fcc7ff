package deck

// NoticeShuffleBeforeDraw is surfaced after a successful lock.
const NoticeShuffleBeforeDraw = "deck built: shuffle before drawing"

// Lock toggles the lock. From Unlocked it builds the deck from the
// composition, shuffles it, clears hand, discard and any active play, and
// leaves the session in LifecycleLockedBuilt. While locked it unlocks.
func (e *Engine) Lock(s State) (State, error) {
	if s.Lifecycle.IsLocked() {
		return e.Unlock(s)
	}
	if !e.Validate(s).Overall {
		return s, ErrInvalidComposition
	}
	return e.build(s)
}

// Unlock makes the composition editable again. Zones are kept as stored.
func (e *Engine) Unlock(s State) (State, error) {
	if !s.Lifecycle.IsLocked() {
		return s, nil
	}
	out := s.Clone()
	out.Lifecycle = LifecycleUnlocked
	out.Play = nil
	return out, nil
}

// Shuffle permutes the deck zone. Re-shuffling a ready deck needs confirm
// because it reorders the remaining cards; hand and discard are never touched.
func (e *Engine) Shuffle(s State, confirm bool) (State, error) {
	if !s.Lifecycle.IsLocked() {
		return s, ErrNotLocked
	}
	if !s.Lifecycle.HasBuiltDeck() {
		return s, ErrNotBuilt
	}
	if s.Lifecycle.HasShuffledDeck() && !confirm {
		return s, ErrConfirmationRequired
	}
	out := s.Clone()
	e.shuffler.Shuffle(out.Deck)
	out.Lifecycle = LifecycleLockedReady
	return out, nil
}

// Draw moves the top card of the deck into the hand.
func (e *Engine) Draw(s State) (State, error) {
	if err := requireDrawable(s); err != nil {
		return s, err
	}
	if len(s.Deck) == 0 {
		return s, ErrDeckDepleted
	}
	if len(s.Hand) >= s.HandLimit {
		return s, ErrHandFull
	}
	out := s.Clone()
	top := len(out.Deck) - 1
	id := out.Deck[top]
	out.Deck = out.Deck[:top]
	out.Hand = append(out.Hand, HandEntry{ID: id, State: PlayStateUnspent})
	return out, nil
}

// CanDraw reports whether Draw would succeed on s.
func CanDraw(s State) bool {
	return requireDrawable(s) == nil && len(s.Deck) > 0 && len(s.Hand) < s.HandLimit
}

// ResetDeck rebuilds the deck from the composition while locked, returning to
// LifecycleLockedBuilt. While unlocked it clears every zone.
func (e *Engine) ResetDeck(s State) (State, error) {
	if !s.Lifecycle.IsLocked() {
		out := s.Clone()
		out.Deck = nil
		out.Hand = nil
		out.Discard = nil
		out.Play = nil
		return out, nil
	}
	if !e.Validate(s).Overall {
		return s, ErrInvalidComposition
	}
	return e.build(s)
}

// ResetBuilder returns to the default state.
func (e *Engine) ResetBuilder(State) (State, error) {
	return e.NewState(), nil
}

// SetHandLimit changes the hand limit. It never drops below the cards
// already in hand.
func (e *Engine) SetHandLimit(s State, limit int) (State, error) {
	if limit < 0 || limit > MaxHandLimit || limit < len(s.Hand) {
		return s, ErrInvalidHandLimit
	}
	out := s.Clone()
	out.HandLimit = limit
	return out, nil
}

func (e *Engine) build(s State) (State, error) {
	ids, err := e.materialize(s.Composition)
	if err != nil {
		return s, err
	}
	e.shuffler.Shuffle(ids)

	out := s.Clone()
	out.Deck = ids
	out.Hand = nil
	out.Discard = nil
	out.Play = nil
	out.Lifecycle = LifecycleLockedBuilt
	return out, nil
}

// requireDrawable checks lock, build and shuffle in that order.
func requireDrawable(s State) error {
	if !s.Lifecycle.IsLocked() {
		return ErrNotLocked
	}
	if !s.Lifecycle.HasBuiltDeck() {
		return ErrNotBuilt
	}
	if !s.Lifecycle.HasShuffledDeck() {
		return ErrNotShuffled
	}
	return nil
}

// requireBuilt is the precondition for moves that touch the deck zone.
func requireBuilt(s State) error {
	if !s.Lifecycle.IsLocked() {
		return ErrNotLocked
	}
	if !s.Lifecycle.HasBuiltDeck() {
		return ErrNotBuilt
	}
	return nil
}
