package assets

import "fmt"

// State is the moderation state of an asset.
type State string

const (
	StateNew       State = "new"
	StateReview    State = "review"
	StateConfirmed State = "confirmed"
	StateRejected  State = "rejected"
	StateDeleted   State = "deleted"
)

// States lists every moderation state.
var States = []State{StateNew, StateReview, StateConfirmed, StateRejected, StateDeleted}

// ParseState converts a raw metadata value into a State.
func ParseState(raw string) (State, error) {
	state := State(raw)
	if !state.Valid() {
		return "", fmt.Errorf("unknown moderation state %q", raw)
	}
	return state, nil
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateNew, StateReview, StateConfirmed, StateRejected, StateDeleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether no moderation action is expected for s.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateRejected || s == StateDeleted
}

// Pending reports whether the asset still waits for its owner or a moderator.
func (s State) Pending() bool {
	return s == StateNew || s == StateReview
}

func (s State) String() string {
	return string(s)
}
