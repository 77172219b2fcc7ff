package deck

import "strings"

// Lifecycle is the deck lifecycle of a builder.
type Lifecycle int

const (
	// LifecycleUnlocked: composition editable, no active deck.
	LifecycleUnlocked Lifecycle = iota
	// LifecycleLockedUnbuilt: locked without a materialized deck. Lock never
	// rests here; it is only reached through a restored record.
	LifecycleLockedUnbuilt
	// LifecycleLockedBuilt: deck materialized, waiting for a shuffle.
	LifecycleLockedBuilt
	// LifecycleLockedReady: shuffled and drawable.
	LifecycleLockedReady
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleUnlocked:
		return "UNLOCKED"
	case LifecycleLockedUnbuilt:
		return "LOCKED_UNBUILT"
	case LifecycleLockedBuilt:
		return "LOCKED_BUILT"
	case LifecycleLockedReady:
		return "LOCKED_READY"
	default:
		return "UNKNOWN"
	}
}

// ParseLifecycle parses the String form of a lifecycle.
func ParseLifecycle(s string) (Lifecycle, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UNLOCKED":
		return LifecycleUnlocked, true
	case "LOCKED_UNBUILT":
		return LifecycleLockedUnbuilt, true
	case "LOCKED_BUILT":
		return LifecycleLockedBuilt, true
	case "LOCKED_READY":
		return LifecycleLockedReady, true
	default:
		return LifecycleUnlocked, false
	}
}

// IsLocked reports whether the composition is frozen.
func (l Lifecycle) IsLocked() bool { return l != LifecycleUnlocked }

// HasBuiltDeck reports whether the deck zone has been materialized.
func (l Lifecycle) HasBuiltDeck() bool {
	return l == LifecycleLockedBuilt || l == LifecycleLockedReady
}

// HasShuffledDeck reports whether the deck is drawable.
func (l Lifecycle) HasShuffledDeck() bool { return l == LifecycleLockedReady }

// PlayState marks a hand entry.
type PlayState string

const (
	PlayStateUnspent PlayState = "unspent"
	// PlayStatePlayed is never set by the engine, since finalized cards
	// leave the hand. Stored records may still carry it and Deserialize
	// keeps it so they round-trip.
	PlayStatePlayed PlayState = "played"
)

// Origin records how a card reached the discard zone.
type Origin string

const (
	OriginPlayed    Origin = "played"
	OriginDiscarded Origin = "discarded"
)

// ParseOrigin maps s to an Origin, defaulting to OriginDiscarded.
func ParseOrigin(s string) Origin {
	if Origin(strings.ToLower(strings.TrimSpace(s))) == OriginPlayed {
		return OriginPlayed
	}
	return OriginDiscarded
}

// HandEntry is one card in hand.
type HandEntry struct {
	ID    string    `json:"id"`
	State PlayState `json:"state"`
}

// DiscardEntry is one card in the discard zone.
type DiscardEntry struct {
	ID     string `json:"id"`
	Origin Origin `json:"origin"`
}

// ActivePlay is a play under construction: one base plus attached modifiers.
// Mods holds each modifier id at most once, in attach order.
type ActivePlay struct {
	BaseID string   `json:"base_id"`
	Mods   []string `json:"mods"`
}

func (p *ActivePlay) hasMod(id string) bool {
	for _, m := range p.Mods {
		if m == id {
			return true
		}
	}
	return false
}

// State is the whole builder state: composition plus deck session.
// The deck zone is a stack whose tail is the top.
type State struct {
	Composition Composition
	Lifecycle   Lifecycle
	Deck        []string
	Hand        []HandEntry
	Discard     []DiscardEntry
	HandLimit   int
	Play        *ActivePlay
}

// Clone returns a deep copy; mutations on the copy never reach s.
func (s State) Clone() State {
	out := s
	out.Composition = s.Composition.Clone()
	out.Deck = append([]string(nil), s.Deck...)
	out.Hand = append([]HandEntry(nil), s.Hand...)
	out.Discard = append([]DiscardEntry(nil), s.Discard...)
	if s.Play != nil {
		out.Play = &ActivePlay{BaseID: s.Play.BaseID, Mods: append([]string(nil), s.Play.Mods...)}
	}
	return out
}

// HandCount returns how many copies of id are in hand.
func (s State) HandCount(id string) int {
	n := 0
	for _, entry := range s.Hand {
		if entry.ID == id {
			n++
		}
	}
	return n
}

// HandSpace is the number of cards that still fit in hand.
func (s State) HandSpace() int {
	if space := s.HandLimit - len(s.Hand); space > 0 {
		return space
	}
	return 0
}

// CardCounts returns the multiset of card ids across deck, hand and discard.
func (s State) CardCounts() map[string]int {
	counts := make(map[string]int)
	for _, id := range s.Deck {
		counts[id]++
	}
	for _, entry := range s.Hand {
		counts[entry.ID]++
	}
	for _, entry := range s.Discard {
		counts[entry.ID]++
	}
	return counts
}
