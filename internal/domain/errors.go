// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidSchedule is returned when a schedule definition is malformed.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrInvalidAssignment is returned when a template has neither or both of
	// a fixed assignee and auto assignment.
	ErrInvalidAssignment = errors.New("invalid assignment")

	// ErrInvalidDateRange is returned when end_date precedes start_date.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrConflictingHolidayPolicy is returned when both skip and move are requested.
	ErrConflictingHolidayPolicy = errors.New("conflicting holiday policy")

	// ErrInvalidExecutionStatus is returned when an execution status is not valid.
	ErrInvalidExecutionStatus = errors.New("invalid execution status")
)

// ValidationError describes a single invalid field. It wraps one of the
// sentinel errors above so callers can match with errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrValidation, so every field error can be
// detected with a single errors.Is check.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}
