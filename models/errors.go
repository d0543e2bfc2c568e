package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures for reporting and storage.
type ErrorKind string

const (
	ErrNetwork           ErrorKind = "network_error"
	ErrHTTP              ErrorKind = "http_error"
	ErrProtectionBlocked ErrorKind = "protection_blocked"
	ErrDecode            ErrorKind = "decode_error"
	ErrEmptyDocument     ErrorKind = "empty_document"
	ErrCancelled         ErrorKind = "cancelled"
)

// Failure is a typed pipeline failure carrying its taxonomy kind. Status is
// set for ErrHTTP and ErrProtectionBlocked; Err wraps the cause and may be
// nil for kinds that are self-describing.
type Failure struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (f *Failure) Error() string {
	switch {
	case f.Status != 0 && f.Err != nil:
		return fmt.Sprintf("%s (status %d): %v", f.Kind, f.Status, f.Err)
	case f.Status != 0:
		return fmt.Sprintf("%s (status %d)", f.Kind, f.Status)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return string(f.Kind)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf extracts the ErrorKind from an error chain. Errors without a
// Failure in the chain report ErrNetwork, the catch-all for transport-level
// problems.
func KindOf(err error) ErrorKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ErrNetwork
}
