package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
)

// ScheduledTaskStore defines the interface for recurring task template persistence.
type ScheduledTaskStore interface {
	// Create saves a new template.
	// Returns validation errors from the domain ScheduledTask if data is invalid.
	Create(ctx context.Context, st *domain.ScheduledTask) error

	// GetByID retrieves a template by its unique ID.
	// Returns ErrScheduledTaskNotFound if it does not exist or was soft-deleted.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error)

	// Update saves all mutable fields of an existing template, including its
	// schedules, tag names and pause state.
	// Returns ErrScheduledTaskNotFound if the template does not exist.
	Update(ctx context.Context, st *domain.ScheduledTask) error

	// SoftDelete marks a template as deleted. Deleted templates are never
	// returned again and never fire.
	// Returns ErrScheduledTaskNotFound if the template does not exist.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error

	// ListByGroup returns the group's non-deleted templates, newest first.
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.ScheduledTask, error)

	// ListRunnable returns active, unpaused, non-deleted templates whose
	// validity window intersects [from, to].
	ListRunnable(ctx context.Context, from, to time.Time) ([]*domain.ScheduledTask, error)

	// WithTx returns a new ScheduledTaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ScheduledTaskStore
}
