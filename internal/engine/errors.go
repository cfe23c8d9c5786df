package engine

import (
	"errors"
	"fmt"
)

// RuntimeError reports an event the engine refused to process.
//
// Malformed events are caller errors and are returned, never panicked on.
// Broken invariants of the monitor itself still panic.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Event names the offending event symbol, if known.
	Event string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidEvent indicates an event without symbol, with an
	// unbound parameter or with an object that cannot be bound.
	ErrCodeInvalidEvent RuntimeErrorCode = "INVALID_EVENT"

	// ErrCodeUnknownEvent indicates a symbol from another alphabet.
	ErrCodeUnknownEvent RuntimeErrorCode = "UNKNOWN_EVENT"

	// ErrCodeArityMismatch indicates an object array not spanning the
	// property's parameters.
	ErrCodeArityMismatch RuntimeErrorCode = "ARITY_MISMATCH"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("%s: %s (event=%s)", e.Code, e.Message, e.Event)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Err }

func isCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsInvalidEvent returns true if err is an INVALID_EVENT error.
// Uses errors.As to handle wrapped errors.
func IsInvalidEvent(err error) bool { return isCode(err, ErrCodeInvalidEvent) }

// IsUnknownEvent returns true if err is an UNKNOWN_EVENT error.
func IsUnknownEvent(err error) bool { return isCode(err, ErrCodeUnknownEvent) }

// IsArityMismatch returns true if err is an ARITY_MISMATCH error.
func IsArityMismatch(err error) bool { return isCode(err, ErrCodeArityMismatch) }
