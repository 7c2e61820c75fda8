// Package errors provides a small structured error type for the dedupe
// engine and its surrounding tooling, narrowed from the sync tool's much
// larger API-error taxonomy down to the handful of kinds a local,
// read-only matching engine can actually raise.
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes an Error.
type Kind int

const (
	// Unknown is the zero value; avoid constructing errors with it directly.
	Unknown Kind = iota
	// InvalidInput means a caller-supplied argument or option was malformed
	// (an unknown search type, a negative soundex length, and so on).
	InvalidInput
	// MissingStore means the configured LibraryStore could not be reached
	// or is not usable (no driver configured, connection refused, ...).
	MissingStore
	// IOFault means a filesystem or network operation failed while a scan
	// was reading book content or persisting exemptions.
	IOFault
	// Cancelled means the caller's context was cancelled or timed out
	// mid-scan.
	Cancelled
	// Validation is a catch-all for data that failed a sanity check but
	// doesn't cleanly fit InvalidInput (e.g. a store returned a book with
	// no title and no identifiers).
	Validation
)

// String returns the human-readable name of the Kind.
func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case MissingStore:
		return "MissingStore"
	case IOFault:
		return "IOFault"
	case Cancelled:
		return "Cancelled"
	case Validation:
		return "Validation"
	default:
		return "Unknown"
	}
}

// Error is a structured error carrying a Kind alongside the usual message
// and optional cause chain.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
