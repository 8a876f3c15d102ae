package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
)

// TaskStore defines the interface for materialized task instances.
type TaskStore interface {
	// Create saves a new task instance.
	Create(ctx context.Context, task *domain.TaskInstance) error

	// IsIncomplete reports whether the task is neither completed nor
	// deleted. Inside a transaction the row stays locked until commit, so the
	// answer holds for a following SoftDelete.
	// Returns ErrTaskNotFound if the task does not exist.
	IsIncomplete(ctx context.Context, id uuid.UUID) (bool, error)

	// SoftDelete marks a task as deleted.
	// Returns ErrTaskNotFound if the task does not exist or is already deleted.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error

	// FindLatestInLineage returns the most recently created task with the
	// given recurrence group ID, soft-deleted tasks included.
	// Returns ErrTaskNotFound if the lineage has no tasks.
	FindLatestInLineage(ctx context.Context, recurrenceGroupID uuid.UUID) (*domain.TaskInstance, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}

// TagStore defines the interface for group-scoped tags.
type TagStore interface {
	// ResolveOrCreate returns the ID of the group's tag with the given name,
	// creating it if needed.
	ResolveOrCreate(ctx context.Context, groupID uuid.UUID, name string) (uuid.UUID, error)

	// Attach links tags to a task. Already linked tags are ignored.
	Attach(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error

	// WithTx returns a new TagStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TagStore
}
