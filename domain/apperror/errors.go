// Package apperror defines the error classes shared by the task and conversation domains.
package apperror

import (
	"errors"
	"fmt"
)

// ErrUpstream marks failures of the external text-completion service.
var ErrUpstream = errors.New("upstream failure")

// ValidationError reports user input that cannot be accepted (empty title,
// malformed status filter, bad due date).
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PersistenceError wraps a durable-storage failure. It is the only error class
// that is allowed to surface to callers as a hard failure.
type PersistenceError struct {
	Op  string
	Err error
}

// Persistence wraps err as a PersistenceError for the given operation.
// A nil err yields nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
