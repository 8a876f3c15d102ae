package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrNotImplemented is returned by partial store implementations.
	ErrNotImplemented = errors.New("method not implemented")

	// ErrInvalidEntity is returned when the database rejects an entity, for
	// example on a check or foreign key constraint.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a transaction cannot begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrScheduledTaskNotFound indicates that the requested template does not exist
	// or has been soft-deleted.
	ErrScheduledTaskNotFound = fmt.Errorf("%w: scheduled task", ErrNotFound)

	// ErrTaskNotFound indicates that the requested task instance does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrExecutionExists indicates that a terminal execution record already
	// exists for the occurrence key. The caller lost a race and must not
	// commit its work.
	ErrExecutionExists = fmt.Errorf("%w: execution", ErrDuplicate)
)

// StoreError adds entity and operation context to a store failure.
type StoreError struct {
	Entity    string // e.g. "scheduled_task", "execution"
	Operation string // e.g. "create", "list_runnable"
	Message   string
	Err       error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
