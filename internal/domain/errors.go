package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by the store for id lookups, updates, and
// deletes that match nothing.
var ErrNotFound = errors.New("sample not found")

// ValidationError rejects a candidate before it reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid sample: field %q %s", e.Field, e.Reason)
}

// TransportError classifies a feed connection fault. It drives the
// subscriber's reconnect loop and is never surfaced to viewers.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StoreError wraps a failed store operation so callers can tell a storage
// fault apart from a rejected candidate.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a candidate rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
