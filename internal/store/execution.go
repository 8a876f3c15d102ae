package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
)

// ExecutionStore defines the interface for the execution audit log.
// Records are append-only.
type ExecutionStore interface {
	// Record appends an execution record. A success or skipped record whose
	// occurrence key already has a success or skipped record is rejected with
	// ErrExecutionExists; failed records are always appended.
	Record(ctx context.Context, e *domain.Execution) error

	// HasTerminal reports whether a success or skipped record exists for key.
	HasTerminal(ctx context.Context, key domain.OccurrenceKey) (bool, error)

	// ListByScheduledTask returns up to limit records for a template ordered
	// by executed_at descending.
	ListByScheduledTask(ctx context.Context, scheduledTaskID uuid.UUID, limit int) ([]*domain.Execution, error)

	// WithTx returns a new ExecutionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ExecutionStore
}
