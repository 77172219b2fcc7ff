package session

import (
	"github.com/magefree/deckplay-server-go/internal/deck"
)

// Command names accepted by Builder.Execute.
const (
	CmdAdjustBaseCount        = "adjustBaseCount"
	CmdAdjustModCount         = "adjustModCount"
	CmdAdjustNullCount        = "adjustNullCount"
	CmdAdjustModifierCapacity = "adjustModifierCapacity"
	CmdApplyPreset            = "applyPreset"
	CmdLock                   = "lock"
	CmdUnlock                 = "unlock"
	CmdShuffle                = "shuffle"
	CmdDraw                   = "draw"
	CmdResetDeck              = "resetDeck"
	CmdResetBuilder           = "resetBuilder"
	CmdStartPlay              = "startPlay"
	CmdToggleAttach           = "toggleAttach"
	CmdFinalizePlay           = "finalizePlay"
	CmdCancelPlay             = "cancelPlay"
	CmdDiscardFromHand        = "discardFromHand"
	CmdDiscardFromDeck        = "discardFromDeck"
	CmdReturnDiscardToDeck    = "returnDiscardToDeck"
	CmdReturnAllDiscardToDeck = "returnAllDiscardToDeck"
	CmdReturnDiscardToHand    = "returnDiscardToHand"
	CmdSetHandLimit           = "setHandLimit"
	CmdView                   = "view"
)

// CodeUnknownCommand is reported for names not in the command surface.
const CodeUnknownCommand deck.Code = "unknown_command"

// CodeBuilderClosed is reported by a builder its manager has dropped.
const CodeBuilderClosed deck.Code = "builder_closed"

// CommandNames lists every accepted command in display order.
var CommandNames = []string{
	CmdAdjustBaseCount, CmdAdjustModCount, CmdAdjustNullCount, CmdAdjustModifierCapacity,
	CmdApplyPreset, CmdLock, CmdUnlock, CmdShuffle, CmdDraw, CmdResetDeck, CmdResetBuilder,
	CmdStartPlay, CmdToggleAttach, CmdFinalizePlay, CmdCancelPlay,
	CmdDiscardFromHand, CmdDiscardFromDeck, CmdReturnDiscardToDeck, CmdReturnAllDiscardToDeck,
	CmdReturnDiscardToHand, CmdSetHandLimit, CmdView,
}

// Command is one call on the command surface. Which fields matter depends on
// Name: ID is a card id (or preset name for applyPreset), Delta an
// adjustment, Count a number of cards, Limit a hand limit.
type Command struct {
	Name    string `json:"name"`
	ID      string `json:"id,omitempty"`
	Delta   int    `json:"delta,omitempty"`
	Count   int    `json:"count,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	All     bool   `json:"all,omitempty"`
	Confirm bool   `json:"confirm,omitempty"`
	Shuffle bool   `json:"shuffle,omitempty"`
	ToTop   bool   `json:"to_top,omitempty"`
	Origin  string `json:"origin,omitempty"`
}

// Response reports the outcome of a command together with the resulting view.
// Silent marks rejections that clients should not surface; Warning carries
// the transient attach-without-base marker.
type Response struct {
	Success bool      `json:"success"`
	Code    deck.Code `json:"code,omitempty"`
	Error   string    `json:"error,omitempty"`
	Silent  bool      `json:"silent,omitempty"`
	Notice  string    `json:"notice,omitempty"`
	Warning string    `json:"warning,omitempty"`
	View    deck.View `json:"view"`
}
