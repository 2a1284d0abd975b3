package permset

import (
	"bytes"

	"github.com/pkg/errors"
)

// TriState is a per-channel capability state: explicitly granted, explicitly
// denied, or inherited from the channel/server default.
type TriState int8

const (
	// Inherit means no explicit override; the default applies.
	Inherit TriState = iota
	// Allow grants the capability explicitly.
	Allow
	// Deny revokes the capability explicitly.
	Deny
)

// Cycle returns the next state in the editing order
// Inherit -> Allow -> Deny -> Inherit.
func (t TriState) Cycle() TriState {
	switch t {
	case Inherit:
		return Allow
	case Allow:
		return Deny
	default:
		return Inherit
	}
}

// String implements fmt.Stringer.
func (t TriState) String() string {
	switch t {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "inherit"
	}
}

var (
	jsonTrue  = []byte("true")
	jsonFalse = []byte("false")
	jsonNull  = []byte("null")

	// ErrInvalidTriState is returned when a tri-state JSON value is neither
	// true, false nor null.
	ErrInvalidTriState = errors.New("tri-state must be true, false or null")
)

// MarshalJSON encodes the tri-state as true/false/null, the wire form the
// front end uses.
func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case Allow:
		return jsonTrue, nil
	case Deny:
		return jsonFalse, nil
	default:
		return jsonNull, nil
	}
}

// UnmarshalJSON decodes true/false/null into the tri-state.
func (t *TriState) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, jsonTrue):
		*t = Allow
	case bytes.Equal(data, jsonFalse):
		*t = Deny
	case bytes.Equal(data, jsonNull):
		*t = Inherit
	default:
		return errors.Wrapf(ErrInvalidTriState, "got %q", data)
	}

	return nil
}
