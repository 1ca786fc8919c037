package booking

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound    = errors.New("booking session not found")
	ErrSessionExists      = errors.New("booking session already exists")
	ErrInvalidTransition  = errors.New("invalid booking transition")
	ErrActorNotAllowed    = errors.New("role may not perform this action")
	ErrNotParticipant     = errors.New("connection is not a participant of this booking")
	ErrNotRegistered      = errors.New("connection is not registered")
	ErrCounterpartOffline = errors.New("counterpart is not connected")
	ErrInvalidPayload     = errors.New("invalid event payload")
)

// CoordinationError carries a message that is safe to show to the party that caused it.
type CoordinationError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoordinationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CoordinationError) Unwrap() error {
	return e.Err
}

func newCoordinationError(code, msg string, err error) error {
	return &CoordinationError{
		Code:    code,
		Message: msg,
		Err:     err,
	}
}

// Ignorable reports whether err is a stale or duplicate event that should be dropped silently.
func Ignorable(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrActorNotAllowed) ||
		errors.Is(err, ErrNotParticipant)
}
