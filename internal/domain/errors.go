package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across repositories and services.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition indicates a job state machine violation.
	// No state change occurs when this is returned.
	ErrInvalidTransition = errors.New("invalid job transition")

	// ErrConflict indicates a uniqueness violation; the existing record
	// remains authoritative.
	ErrConflict = errors.New("already exists")
)

// ValidationError describes a configuration rejected before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FatalError wraps a systemic failure that aborts the current job run and
// transitions the job to failed. Per-item failures must never be wrapped
// in FatalError.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is (or wraps) a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
