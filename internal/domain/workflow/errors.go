package workflow

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a workflow failure for the caller
type ErrorKind string

const (
	// KindValidationFailed marks malformed or inconsistent input: bad date
	// range, missing mandatory comment, wrong line-item kind for the type.
	KindValidationFailed ErrorKind = "VALIDATION_FAILED"

	// KindUnauthorized marks a role not permitted for the attempted
	// (state, action) pair.
	KindUnauthorized ErrorKind = "UNAUTHORIZED"

	// KindInvalidTransition marks an action not defined for the current
	// state, usually a stale client view.
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"

	// KindCalculationError marks an unresolvable rate or region lookup.
	KindCalculationError ErrorKind = "CALCULATION_ERROR"

	// KindConcurrencyConflict marks a competing writer detected on the same
	// request; safe to retry after reloading state.
	KindConcurrencyConflict ErrorKind = "CONCURRENCY_CONFLICT"

	// KindNotFound marks a missing mission or collaborator record.
	KindNotFound ErrorKind = "NOT_FOUND"
)

// Sentinel errors for errors.Is checks
var (
	ErrValidationFailed    = errors.New("validation failed")
	ErrUnauthorized        = errors.New("role not authorized for action")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrCalculationError    = errors.New("calculation error")
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
	ErrNotFound            = errors.New("not found")
)

var kindSentinels = map[ErrorKind]error{
	KindValidationFailed:    ErrValidationFailed,
	KindUnauthorized:        ErrUnauthorized,
	KindInvalidTransition:   ErrInvalidTransition,
	KindCalculationError:    ErrCalculationError,
	KindConcurrencyConflict: ErrConcurrencyConflict,
	KindNotFound:            ErrNotFound,
}

// WorkflowError is the typed failure returned by every engine operation.
// No partial side effects accompany it.
type WorkflowError struct {
	Kind    ErrorKind
	State   State
	Action  Action
	Role    Role
	Message string
}

func (e *WorkflowError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *WorkflowError) Unwrap() error {
	return kindSentinels[e.Kind]
}

// NewError builds a WorkflowError with a formatted message
func NewError(kind ErrorKind, format string, args ...interface{}) *WorkflowError {
	return &WorkflowError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable returns true if the error might succeed on retry
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// KindOf extracts the error kind, or empty string for non-workflow errors
func KindOf(err error) ErrorKind {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}
