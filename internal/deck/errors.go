package deck

import "errors"

// Code identifies why an operation was rejected.
type Code string

const (
	CodeNotLocked            Code = "not_locked"
	CodeNotBuilt             Code = "not_built"
	CodeNotShuffled          Code = "not_shuffled"
	CodeDeckDepleted         Code = "deck_depleted"
	CodeHandFull             Code = "hand_full"
	CodeCapacityExceeded     Code = "capacity_exceeded"
	CodeLocked               Code = "locked"
	CodeInvalidPlayTarget    Code = "invalid_play_target"
	CodeNoBaseSelected       Code = "no_base_selected"
	CodeNotModifier          Code = "not_modifier"
	CodeNotInHand            Code = "not_in_hand"
	CodeNotInDiscard         Code = "not_in_discard"
	CodeUnknownCard          Code = "unknown_card"
	CodeConfirmationRequired Code = "confirmation_required"
	CodeInvalidComposition   Code = "invalid_composition"
	CodeInvalidHandLimit     Code = "invalid_hand_limit"
	CodeInvalidCount         Code = "invalid_count"
	CodeUnknownPreset        Code = "unknown_preset"
)

// Error is a recoverable, user-facing rejection.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrNotLocked            = &Error{CodeNotLocked, "lock the deck first"}
	ErrNotBuilt             = &Error{CodeNotBuilt, "build the deck first"}
	ErrNotShuffled          = &Error{CodeNotShuffled, "shuffle before drawing"}
	ErrDeckDepleted         = &Error{CodeDeckDepleted, "deck depleted"}
	ErrHandFull             = &Error{CodeHandFull, "hand is at its limit"}
	ErrCapacityExceeded     = &Error{CodeCapacityExceeded, "capacity exceeded"}
	ErrLocked               = &Error{CodeLocked, "composition is locked"}
	ErrNullNotPlayable      = &Error{CodeInvalidPlayTarget, "null cards can only be discarded"}
	ErrModifierAsBase       = &Error{CodeInvalidPlayTarget, "modifier cards need a base card"}
	ErrNullNotAttachable    = &Error{CodeInvalidPlayTarget, "null cards cannot be attached"}
	ErrNoBaseSelected       = &Error{CodeNoBaseSelected, "select a base card first"}
	ErrNotModifier          = &Error{CodeNotModifier, "card is not a modifier"}
	ErrNotInHand            = &Error{CodeNotInHand, "card is not in hand"}
	ErrNotInDiscard         = &Error{CodeNotInDiscard, "card is not in the discard pile"}
	ErrUnknownCard          = &Error{CodeUnknownCard, "unknown card"}
	ErrConfirmationRequired = &Error{CodeConfirmationRequired, "confirmation required"}
	ErrInvalidComposition   = &Error{CodeInvalidComposition, "deck composition is not valid"}
	ErrInvalidHandLimit     = &Error{CodeInvalidHandLimit, "hand limit out of range"}
	ErrInvalidCount         = &Error{CodeInvalidCount, "count out of range"}
	ErrUnknownPreset        = &Error{CodeUnknownPreset, "unknown preset"}
)

// CodeOf extracts the rejection code from err, or "" for non-engine errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsSilent reports whether err is an expected no-op that callers should not
// surface, like pressing "+" at the cap.
func IsSilent(err error) bool {
	switch CodeOf(err) {
	case CodeCapacityExceeded, CodeLocked, CodeNotModifier, CodeInvalidCount:
		return true
	default:
		return false
	}
}

// IsWarning reports whether err should raise the transient attach warning.
func IsWarning(err error) bool {
	return CodeOf(err) == CodeNoBaseSelected
}
