package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyActive    = errors.New("session already active")
	ErrMalformedCommand = errors.New("malformed command")
	ErrTransport        = errors.New("transport error")
	ErrPersistence      = errors.New("persistence error")
)

// TransportError records a failed send to a single recipient.
type TransportError struct {
	Recipient UserID
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Recipient, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

func userNotFound(id UserID) error {
	return fmt.Errorf("user %s: %w", id, ErrNotFound)
}

func sessionNotFound(owner UserID) error {
	return fmt.Errorf("session for %s: %w", owner, ErrNotFound)
}
