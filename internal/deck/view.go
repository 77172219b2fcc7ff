package deck

// View is the client-facing summary of a State.
type View struct {
	Lifecycle       string         `json:"lifecycle"`
	Locked          bool           `json:"locked"`
	HasBuiltDeck    bool           `json:"has_built_deck"`
	HasShuffledDeck bool           `json:"has_shuffled_deck"`
	CanDraw         bool           `json:"can_draw"`
	Base            map[string]int `json:"base"`
	Mods            map[string]int `json:"mods"`
	Nulls           int            `json:"nulls"`
	BaseTotal       int            `json:"base_total"`
	BaseTarget      int            `json:"base_target"`
	Capacity        int            `json:"capacity"`
	CapacityUsed    int            `json:"capacity_used"`
	Validation      Validation     `json:"validation"`
	DeckCount       int            `json:"deck_count"`
	Hand            []HandEntry    `json:"hand"`
	HandLimit       int            `json:"hand_limit"`
	Discard         []DiscardEntry `json:"discard"`
	Play            *PlayView      `json:"play,omitempty"`
	Checksum        string         `json:"checksum"`
}

// PlayView describes the active play.
type PlayView struct {
	BaseID       string   `json:"base_id"`
	Mods         []string `json:"mods"`
	CapacityUsed int      `json:"capacity_used"`
}

// View summarizes s. The deck order stays hidden; only its size is shown.
func (e *Engine) View(s State) View {
	s = s.Clone()
	v := View{
		Lifecycle:       s.Lifecycle.String(),
		Locked:          s.Lifecycle.IsLocked(),
		HasBuiltDeck:    s.Lifecycle.HasBuiltDeck(),
		HasShuffledDeck: s.Lifecycle.HasShuffledDeck(),
		CanDraw:         CanDraw(s),
		Base:            s.Composition.Base,
		Mods:            s.Composition.Mods,
		Nulls:           s.Composition.Nulls,
		BaseTotal:       s.Composition.BaseTotal(),
		BaseTarget:      e.rules.BaseTarget,
		Capacity:        s.Composition.Capacity,
		CapacityUsed:    e.CapacityUsed(s),
		Validation:      e.Validate(s),
		DeckCount:       len(s.Deck),
		Hand:            s.Hand,
		HandLimit:       s.HandLimit,
		Discard:         s.Discard,
		Checksum:        Checksum(s),
	}
	if v.Hand == nil {
		v.Hand = []HandEntry{}
	}
	if v.Discard == nil {
		v.Discard = []DiscardEntry{}
	}
	if s.Play != nil {
		v.Play = &PlayView{
			BaseID:       s.Play.BaseID,
			Mods:         s.Play.Mods,
			CapacityUsed: e.PlayCapacityUsed(s),
		}
	}
	return v
}
