package deck

import (
	"fmt"

	"github.com/magefree/deckplay-server-go/internal/catalog"
)

// StartPlay selects baseID as the base of a new play, replacing any
// unfinalized one. Null and modifier cards cannot be a base.
func (e *Engine) StartPlay(s State, baseID string) (State, error) {
	category, ok := e.category(baseID)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownCard, baseID)
	}
	switch category {
	case catalog.CategoryNull:
		return s, ErrNullNotPlayable
	case catalog.CategoryModifier:
		return s, ErrModifierAsBase
	}
	if s.HandCount(baseID) == 0 {
		return s, ErrNotInHand
	}
	out := s.Clone()
	out.Play = &ActivePlay{BaseID: baseID, Mods: []string{}}
	return out, nil
}

// ToggleAttach attaches modID to the active play, or detaches it if already
// attached. Attaching needs a copy in hand and must fit the capacity.
func (e *Engine) ToggleAttach(s State, modID string) (State, error) {
	if s.Play == nil || s.Play.BaseID == "" {
		return s, ErrNoBaseSelected
	}
	category, ok := e.category(modID)
	if ok && category == catalog.CategoryNull {
		return s, ErrNullNotAttachable
	}
	if !ok || category != catalog.CategoryModifier {
		return s, ErrNotModifier
	}

	if s.Play.hasMod(modID) {
		out := s.Clone()
		mods := make([]string, 0, len(out.Play.Mods))
		for _, id := range out.Play.Mods {
			if id != modID {
				mods = append(mods, id)
			}
		}
		out.Play.Mods = mods
		return out, nil
	}

	snapshot := e.playSnapshot(s)
	if snapshot.Counts[modID]+1 > s.HandCount(modID) {
		return s, ErrNotInHand
	}
	if !e.rules.capacityUnbounded() && !CanAddModifier(snapshot, modID, e.costOf) {
		return s, ErrCapacityExceeded
	}
	out := s.Clone()
	out.Play.Mods = append(out.Play.Mods, modID)
	return out, nil
}

// FinalizePlay moves the base and one unit of each attached modifier from the
// hand to the discard zone as played, then clears the play. Without an active
// base it does nothing.
func (e *Engine) FinalizePlay(s State) (State, error) {
	if s.Play == nil || s.Play.BaseID == "" {
		return s, nil
	}
	out := s.Clone()
	for _, id := range append([]string{out.Play.BaseID}, out.Play.Mods...) {
		var ok bool
		if out.Hand, ok = removeFromHand(out.Hand, id); ok {
			out.Discard = append(out.Discard, DiscardEntry{ID: id, Origin: OriginPlayed})
		}
	}
	out.Play = nil
	return out, nil
}

// CancelPlay clears the active play without touching any zone.
func (e *Engine) CancelPlay(s State) (State, error) {
	if s.Play == nil {
		return s, nil
	}
	out := s.Clone()
	out.Play = nil
	return out, nil
}

func (e *Engine) playSnapshot(s State) CapacitySnapshot {
	counts := map[string]int{}
	if s.Play != nil {
		for _, id := range s.Play.Mods {
			counts[id]++
		}
	}
	return CapacitySnapshot{Counts: counts, Capacity: s.Composition.Capacity, Policy: e.rules.Policy}
}
