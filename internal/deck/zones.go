package deck

// DiscardFromDeck moves up to count cards from the top of the deck to the
// discard zone, stopping early when the deck empties.
func (e *Engine) DiscardFromDeck(s State, count int) (State, error) {
	if err := requireBuilt(s); err != nil {
		return s, err
	}
	if count <= 0 {
		return s, ErrInvalidCount
	}
	if len(s.Deck) == 0 {
		return s, ErrDeckDepleted
	}
	out := s.Clone()
	for i := 0; i < count && len(out.Deck) > 0; i++ {
		top := len(out.Deck) - 1
		out.Discard = append(out.Discard, DiscardEntry{ID: out.Deck[top], Origin: OriginDiscarded})
		out.Deck = out.Deck[:top]
	}
	return out, nil
}

// ReturnDiscardToDeck moves every discard entry back into the deck. With
// shuffle the moved ids are permuted and then the whole deck is shuffled.
// toTop appends them (drawn next); otherwise they go to the bottom.
func (e *Engine) ReturnDiscardToDeck(s State, shuffle, toTop bool) (State, error) {
	if err := requireBuilt(s); err != nil {
		return s, err
	}
	if len(s.Discard) == 0 {
		return s, nil
	}
	out := s.Clone()
	moved := make([]string, len(out.Discard))
	for i, entry := range out.Discard {
		moved[i] = entry.ID
	}
	if shuffle {
		e.shuffler.Shuffle(moved)
	}
	if toTop {
		out.Deck = append(out.Deck, moved...)
	} else {
		out.Deck = append(moved, out.Deck...)
	}
	if shuffle {
		e.shuffler.Shuffle(out.Deck)
	}
	out.Discard = nil
	return out, nil
}

// ReturnDiscardItemToDeck moves one (or, with all, every) discard entry
// matching id onto the top of the deck, most recently discarded first.
func (e *Engine) ReturnDiscardItemToDeck(s State, id string, all bool) (State, error) {
	if err := requireBuilt(s); err != nil {
		return s, err
	}
	limit := 1
	if all {
		limit = len(s.Discard)
	}
	out := s.Clone()
	var ids []string
	out.Discard, ids = takeDiscard(out.Discard, id, limit)
	if len(ids) == 0 {
		return s, ErrNotInDiscard
	}
	out.Deck = append(out.Deck, ids...)
	return out, nil
}

// ReturnDiscardItemToHand moves one (or, with all, every) discard entry
// matching id into the hand, most recently discarded first. Only as many
// as fit are moved; with a full hand this is a no-op.
func (e *Engine) ReturnDiscardItemToHand(s State, id string, all bool) (State, error) {
	if countDiscard(s.Discard, id) == 0 {
		return s, ErrNotInDiscard
	}
	limit := 1
	if all {
		limit = len(s.Discard)
	}
	if space := s.HandSpace(); limit > space {
		limit = space
	}
	if limit == 0 {
		return s, nil
	}
	out := s.Clone()
	var ids []string
	out.Discard, ids = takeDiscard(out.Discard, id, limit)
	for _, moved := range ids {
		out.Hand = append(out.Hand, HandEntry{ID: moved, State: PlayStateUnspent})
	}
	return out, nil
}

// DiscardFromHand moves one (or, with all, every) hand entry matching id to
// the discard zone tagged with origin. Cards leaving the hand are dropped from
// the active play.
func (e *Engine) DiscardFromHand(s State, id string, all bool, origin Origin) (State, error) {
	if s.HandCount(id) == 0 {
		return s, ErrNotInHand
	}
	if origin != OriginPlayed {
		origin = OriginDiscarded
	}
	limit := 1
	if all {
		limit = len(s.Hand)
	}
	out := s.Clone()
	for i := 0; i < limit; i++ {
		var ok bool
		if out.Hand, ok = removeFromHand(out.Hand, id); !ok {
			break
		}
		out.Discard = append(out.Discard, DiscardEntry{ID: id, Origin: origin})
	}
	prunePlay(&out)
	return out, nil
}

// takeDiscard removes up to limit entries matching id, scanning from the most
// recent, and returns the remaining zone and the removed ids in scan order.
func takeDiscard(discard []DiscardEntry, id string, limit int) ([]DiscardEntry, []string) {
	var taken []string
	keep := make([]bool, len(discard))
	for i := range keep {
		keep[i] = true
	}
	for i := len(discard) - 1; i >= 0 && len(taken) < limit; i-- {
		if discard[i].ID == id {
			keep[i] = false
			taken = append(taken, id)
		}
	}
	rest := make([]DiscardEntry, 0, len(discard)-len(taken))
	for i, entry := range discard {
		if keep[i] {
			rest = append(rest, entry)
		}
	}
	return rest, taken
}

func countDiscard(discard []DiscardEntry, id string) int {
	n := 0
	for _, entry := range discard {
		if entry.ID == id {
			n++
		}
	}
	return n
}

// removeFromHand removes the most recently added entry matching id.
func removeFromHand(hand []HandEntry, id string) ([]HandEntry, bool) {
	for i := len(hand) - 1; i >= 0; i-- {
		if hand[i].ID == id {
			return append(hand[:i], hand[i+1:]...), true
		}
	}
	return hand, false
}

// prunePlay drops play references to cards no longer in hand.
func prunePlay(s *State) {
	if s.Play == nil {
		return
	}
	if s.HandCount(s.Play.BaseID) == 0 {
		s.Play = nil
		return
	}
	mods := s.Play.Mods[:0]
	for _, id := range s.Play.Mods {
		if s.HandCount(id) > 0 {
			mods = append(mods, id)
		}
	}
	s.Play.Mods = mods
}
