package deck

import (
	"encoding/json"
	"strings"
)

// record is the persisted layout of a builder.
type record struct {
	Composition compositionRecord `json:"composition"`
	Lifecycle   string            `json:"lifecycle"`
	Deck        []string          `json:"deck"`
	Hand        []HandEntry       `json:"hand"`
	Discard     []DiscardEntry    `json:"discard"`
	HandLimit   int               `json:"hand_limit"`
	Play        *ActivePlay       `json:"play,omitempty"`
}

type compositionRecord struct {
	Base     map[string]int `json:"base"`
	Mods     map[string]int `json:"mods"`
	Nulls    int            `json:"nulls"`
	Capacity int            `json:"capacity"`
}

// Serialize encodes s as the persisted record.
func Serialize(s State) ([]byte, error) {
	rec := record{
		Composition: compositionRecord{
			Base:     s.Composition.Base,
			Mods:     s.Composition.Mods,
			Nulls:    s.Composition.Nulls,
			Capacity: s.Composition.Capacity,
		},
		Lifecycle: s.Lifecycle.String(),
		Deck:      s.Deck,
		Hand:      s.Hand,
		Discard:   s.Discard,
		HandLimit: s.HandLimit,
		Play:      s.Play,
	}
	if rec.Deck == nil {
		rec.Deck = []string{}
	}
	if rec.Hand == nil {
		rec.Hand = []HandEntry{}
	}
	if rec.Discard == nil {
		rec.Discard = []DiscardEntry{}
	}
	return json.Marshal(rec)
}

// Deserialize decodes a persisted record. It never fails: each field that is
// missing or malformed falls back to its default independently, and input
// that is not a JSON object yields the default state.
func Deserialize(raw []byte, rules Rules) State {
	s := State{
		Composition: NewComposition(rules),
		Lifecycle:   LifecycleUnlocked,
		HandLimit:   rules.DefaultHandLimit,
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return s
	}

	if rawComp, ok := fields["composition"]; ok {
		s.Composition = decodeComposition(rawComp, rules)
	}
	if rawLifecycle, ok := fields["lifecycle"]; ok {
		var name string
		if json.Unmarshal(rawLifecycle, &name) == nil {
			if lifecycle, ok := ParseLifecycle(name); ok {
				s.Lifecycle = lifecycle
			}
		}
	}
	if rawDeck, ok := fields["deck"]; ok {
		s.Deck = decodeDeck(rawDeck)
	}
	if rawHand, ok := fields["hand"]; ok {
		s.Hand = decodeHand(rawHand)
	}
	if rawDiscard, ok := fields["discard"]; ok {
		s.Discard = decodeDiscard(rawDiscard)
	}
	if rawLimit, ok := fields["hand_limit"]; ok {
		var limit int
		if json.Unmarshal(rawLimit, &limit) == nil && limit >= 0 && limit <= MaxHandLimit {
			s.HandLimit = limit
		}
	}
	if len(s.Hand) > s.HandLimit {
		s.HandLimit = len(s.Hand)
		if s.HandLimit > MaxHandLimit {
			s.HandLimit = MaxHandLimit
			s.Hand = s.Hand[:MaxHandLimit]
		}
	}
	if rawPlay, ok := fields["play"]; ok {
		s.Play = decodePlay(rawPlay, s)
	}
	return s
}

func decodeComposition(raw json.RawMessage, rules Rules) Composition {
	comp := NewComposition(rules)
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return comp
	}
	if rawBase, ok := fields["base"]; ok {
		comp.Base = decodeCounts(rawBase, rules.maxDeckSize())
	}
	if rawMods, ok := fields["mods"]; ok {
		comp.Mods = decodeCounts(rawMods, rules.maxDeckSize())
	}
	if rawNulls, ok := fields["nulls"]; ok {
		var nulls int
		if json.Unmarshal(rawNulls, &nulls) == nil && nulls >= rules.MinNulls && nulls <= rules.maxDeckSize() {
			comp.Nulls = nulls
		}
	}
	if rawCapacity, ok := fields["capacity"]; ok {
		var capacity int
		if json.Unmarshal(rawCapacity, &capacity) == nil && capacity >= 0 && capacity <= MaxModifierCapacity {
			comp.Capacity = capacity
		}
	}
	return comp
}

func decodeCounts(raw json.RawMessage, limit int) map[string]int {
	out := map[string]int{}
	var entries map[string]json.RawMessage
	if json.Unmarshal(raw, &entries) != nil {
		return out
	}
	for id, rawCount := range entries {
		var count int
		if strings.TrimSpace(id) == "" || json.Unmarshal(rawCount, &count) != nil || count <= 0 || count > limit {
			continue
		}
		out[id] = count
	}
	return out
}

func decodeDeck(raw json.RawMessage) []string {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}
	deck := make([]string, 0, len(items))
	for _, item := range items {
		var id string
		if json.Unmarshal(item, &id) == nil && id != "" {
			deck = append(deck, id)
		}
	}
	return deck
}

func decodeHand(raw json.RawMessage) []HandEntry {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}
	hand := make([]HandEntry, 0, len(items))
	for _, item := range items {
		var entry HandEntry
		if json.Unmarshal(item, &entry) != nil || entry.ID == "" {
			continue
		}
		if entry.State != PlayStatePlayed {
			entry.State = PlayStateUnspent
		}
		hand = append(hand, entry)
	}
	return hand
}

func decodeDiscard(raw json.RawMessage) []DiscardEntry {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}
	discard := make([]DiscardEntry, 0, len(items))
	for _, item := range items {
		var entry DiscardEntry
		if json.Unmarshal(item, &entry) != nil || entry.ID == "" {
			continue
		}
		entry.Origin = ParseOrigin(string(entry.Origin))
		discard = append(discard, entry)
	}
	return discard
}

// decodePlay keeps a restored play only if its cards are still in hand.
func decodePlay(raw json.RawMessage, s State) *ActivePlay {
	var play ActivePlay
	if json.Unmarshal(raw, &play) != nil || play.BaseID == "" || s.HandCount(play.BaseID) == 0 {
		return nil
	}
	seen := map[string]bool{}
	mods := make([]string, 0, len(play.Mods))
	for _, id := range play.Mods {
		if id == "" || seen[id] || s.HandCount(id) == 0 {
			continue
		}
		seen[id] = true
		mods = append(mods, id)
	}
	play.Mods = mods
	return &play
}
