package gemini

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the Gemini API cannot be reached or
	// refuses the call (transport failure, quota, non-2xx status).
	ErrUnavailable = errors.New("oracle unavailable")

	// ErrSchemaMismatch is returned when the API answers but the payload
	// does not have the requested shape.
	ErrSchemaMismatch = errors.New("oracle response schema mismatch")
)

// Error carries the failed operation and the failure kind so callers can
// branch with errors.Is while keeping the underlying cause.
type Error struct {
	Op         string
	Message    string
	StatusCode int
	Kind       error // ErrUnavailable or ErrSchemaMismatch
	Err        error // underlying cause, optional
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gemini %s: %s (status %d)", e.Op, e.Message, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("gemini %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("gemini %s: %s", e.Op, e.Message)
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the failure kind sentinels
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func unavailable(op, message string, statusCode int, cause error) *Error {
	return &Error{Op: op, Message: message, StatusCode: statusCode, Kind: ErrUnavailable, Err: cause}
}

func mismatch(op, message string, cause error) *Error {
	return &Error{Op: op, Message: message, Kind: ErrSchemaMismatch, Err: cause}
}
