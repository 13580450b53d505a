package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
// It is also returned when a resource exists but belongs to another firm,
// so existence is never leaked across tenants.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates that the resource is not in a state that permits the
// requested transition (already completed, already processing, already refunded, ...).
var ErrConflict = errors.New("resource state conflict")

// ErrForbidden indicates that the user is not permitted to perform the action.
var ErrForbidden = errors.New("action forbidden")

// ErrAllocationOverflow indicates an allocation request exceeding either the
// payment's unapplied amount or an invoice's balance due.
var ErrAllocationOverflow = errors.New("allocation exceeds available amount")

// ErrInternal indicates an unexpected internal failure whose details must not reach callers.
var ErrInternal = errors.New("internal error")

// AppError carries an HTTP-ish status code alongside a message and an optional cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError wrapping an optional cause.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError creates an AppError that matches errors.Is(err, ErrNotFound).
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: 404, Message: message, Err: ErrNotFound}
}
