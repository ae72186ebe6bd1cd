package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("entity not found")
	ErrIllegalTransition  = errors.New("illegal transition")
	ErrCorruptStream      = errors.New("corrupt event stream")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrMalformedMessage   = errors.New("malformed message")
)

// TransitionError is returned by aggregate operations whose guard rejects the
// current state.
type TransitionError struct {
	EntityID  string
	Operation string
	Status    string
	Reason    string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("failed to %s %q: %s (status %s)", e.Operation, e.EntityID, e.Reason, e.Status)
	}
	return fmt.Sprintf("failed to %s %q: not allowed with status %s", e.Operation, e.EntityID, e.Status)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// CorruptStreamError means a log could not be folded, e.g. it does not start
// with the creation event. It is never recovered from.
type CorruptStreamError struct {
	EntityID string
	Position int
	Type     string
	Reason   string
}

func (e *CorruptStreamError) Error() string {
	return fmt.Sprintf("corrupt stream for %q at position %d (%s): %s", e.EntityID, e.Position, e.Type, e.Reason)
}

func (e *CorruptStreamError) Unwrap() error { return ErrCorruptStream }
