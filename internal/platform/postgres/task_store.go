package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/platform/logger"
	"github.com/phrazzld/chorecast/internal/store"
)

const taskColumns = `
	id, group_id, user_id, assigned_by_user_id, title, description,
	requires_image, requires_approval, reward, due_date, scheduled_task_id,
	recurrence_group_id, group_task_id, is_completed, completed_at,
	deleted_at, created_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore
// interface. If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.TaskInstance) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := s.db.ExecContext(ctx, query,
		task.ID, task.GroupID, task.UserID, task.AssignedByUserID, task.Title,
		task.Description, task.RequiresImage, task.RequiresApproval, task.Reward,
		task.DueDate, task.ScheduledTaskID, task.RecurrenceGroupID, task.GroupTaskID,
		task.IsCompleted, task.CompletedAt, task.DeletedAt, task.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		if IsUniqueViolation(err) {
			return duplicateError(err, "task")
		}
		return store.NewStoreError("task", "create", "insert failed", MapError(err))
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()))
	return nil
}

// IsIncomplete implements store.TaskStore.IsIncomplete
func (s *PostgresTaskStore) IsIncomplete(ctx context.Context, id uuid.UUID) (bool, error) {
	var incomplete bool
	err := s.db.QueryRowContext(ctx,
		`SELECT NOT is_completed AND deleted_at IS NULL FROM tasks WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&incomplete)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, store.ErrTaskNotFound
		}
		return false, store.NewStoreError("task", "is_incomplete", "query failed", MapError(err))
	}
	return incomplete, nil
}

// SoftDelete implements store.TaskStore.SoftDelete
func (s *PostgresTaskStore) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at.UTC(),
	)
	if err != nil {
		return store.NewStoreError("task", "delete", "update failed", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task soft-deleted", slog.String("task_id", id.String()))
	return nil
}

// FindLatestInLineage implements store.TaskStore.FindLatestInLineage
func (s *PostgresTaskStore) FindLatestInLineage(ctx context.Context, recurrenceGroupID uuid.UUID) (*domain.TaskInstance, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE recurrence_group_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, recurrenceGroupID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, store.NewStoreError("task", "find_latest_in_lineage", "query failed", MapError(err))
	}
	return task, nil
}

func scanTask(row rowScanner) (*domain.TaskInstance, error) {
	var (
		t           domain.TaskInstance
		dueDate     sql.NullTime
		scheduled   uuid.NullUUID
		lineage     uuid.NullUUID
		completedAt sql.NullTime
		deletedAt   sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.GroupID, &t.UserID, &t.AssignedByUserID, &t.Title,
		&t.Description, &t.RequiresImage, &t.RequiresApproval, &t.Reward,
		&dueDate, &scheduled, &lineage, &t.GroupTaskID, &t.IsCompleted,
		&completedAt, &deletedAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.DueDate = timeFromNull(dueDate)
	t.ScheduledTaskID = scheduled.UUID
	t.RecurrenceGroupID = lineage.UUID
	t.CompletedAt = timeFromNull(completedAt)
	t.DeletedAt = timeFromNull(deletedAt)
	return &t, nil
}
