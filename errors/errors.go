// Package errors defines the core's closed set of error kinds and the
// propagation policy around them. The core never panics out to a caller;
// every failure surfaces as a *CoreError carrying one of the kinds below.
package errors

import (
	"errors"
	"fmt"
)

// Kind is one of the core's six recognized failure categories.
type Kind string

const (
	// NotFound means a referenced id is absent from the snapshot.
	NotFound Kind = "not_found"
	// InvalidInput means malformed CSV, a position outside a container,
	// negative dimensions, or similar caller error.
	InvalidInput Kind = "invalid_input"
	// CapacityExceeded means an attempted placement exceeds a container's
	// item-count capacity.
	CapacityExceeded Kind = "capacity_exceeded"
	// GeometricallyInfeasible means an item fits under no orientation in
	// any candidate container.
	GeometricallyInfeasible Kind = "geometrically_infeasible"
	// ConsistencyViolation means the in-memory snapshot diverged from the
	// store at commit time; the operation aborts and rolls back.
	ConsistencyViolation Kind = "consistency_violation"
	// StoreUnavailable means the object store could not be reached.
	StoreUnavailable Kind = "store_unavailable"
)

// Recoverable reports whether kind is downgraded locally by the enclosing
// operation (per-item "unplaced" / false-success) rather than aborting the
// whole operation.
func (k Kind) Recoverable() bool {
	switch k {
	case NotFound, InvalidInput, CapacityExceeded, GeometricallyInfeasible:
		return true
	default:
		return false
	}
}

// CoreError is the concrete error type returned by every core operation.
type CoreError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Err }

// New builds a CoreError of the given kind.
func New(kind Kind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// Wrap builds a CoreError of the given kind around an underlying error.
func Wrap(kind Kind, message string, err error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Err: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(kind Kind, err error, format string, args ...interface{}) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err is not a *CoreError.
func KindOf(err error) Kind {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
