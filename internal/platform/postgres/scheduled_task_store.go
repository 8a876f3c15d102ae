package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/platform/logger"
	"github.com/phrazzld/chorecast/internal/store"
)

const scheduledTaskColumns = `
	id, group_id, created_by, title, description, requires_image, reward,
	requires_approval, assigned_user_id, auto_assign, schedules,
	due_duration_days, due_duration_hours, start_date, end_date, timezone,
	skip_holidays, move_to_next_business_day, delete_incomplete_previous,
	tag_names, is_active, paused_at, deleted_at, created_at, updated_at`

// PostgresScheduledTaskStore implements the store.ScheduledTaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresScheduledTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresScheduledTaskStore creates a new PostgreSQL implementation of the
// ScheduledTaskStore interface. If logger is nil, a default logger will be used.
func NewPostgresScheduledTaskStore(db store.DBTX, logger *slog.Logger) *PostgresScheduledTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresScheduledTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "scheduled_task_store")),
	}
}

// Ensure PostgresScheduledTaskStore implements store.ScheduledTaskStore interface
var _ store.ScheduledTaskStore = (*PostgresScheduledTaskStore)(nil)

// WithTx implements store.ScheduledTaskStore.WithTx
func (s *PostgresScheduledTaskStore) WithTx(tx *sql.Tx) store.ScheduledTaskStore {
	return &PostgresScheduledTaskStore{db: tx, logger: s.logger}
}

// Create implements store.ScheduledTaskStore.Create
func (s *PostgresScheduledTaskStore) Create(ctx context.Context, st *domain.ScheduledTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := st.Validate(); err != nil {
		log.Warn("scheduled task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("scheduled_task_id", st.ID.String()))
		return err
	}

	schedules, tags, err := encodeTemplateJSON(st)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scheduled_tasks (` + scheduledTaskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14::date, $15::date, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`
	_, err = s.db.ExecContext(ctx, query,
		st.ID, st.GroupID, st.CreatedBy, st.Title, st.Description,
		st.RequiresImage, st.Reward, st.RequiresApproval, st.AssignedUserID,
		st.AutoAssign, schedules, st.DueDurationDays, st.DueDurationHours,
		formatDate(st.StartDate), formatDatePtr(st.EndDate), st.Timezone,
		st.SkipHolidays, st.MoveToNextBusinessDay, st.DeleteIncompletePrevious,
		tags, st.IsActive, st.PausedAt, st.DeletedAt, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create scheduled task",
			slog.String("error", err.Error()),
			slog.String("scheduled_task_id", st.ID.String()))
		if IsUniqueViolation(err) {
			return duplicateError(err, "scheduled task")
		}
		return store.NewStoreError("scheduled_task", "create", "insert failed", MapError(err))
	}

	log.Info("scheduled task created",
		slog.String("scheduled_task_id", st.ID.String()),
		slog.String("group_id", st.GroupID.String()))
	return nil
}

// GetByID implements store.ScheduledTaskStore.GetByID
func (s *PostgresScheduledTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + scheduledTaskColumns + `
		FROM scheduled_tasks
		WHERE id = $1 AND deleted_at IS NULL`

	st, err := scanScheduledTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("scheduled task not found", slog.String("scheduled_task_id", id.String()))
			return nil, store.ErrScheduledTaskNotFound
		}
		log.Error("failed to get scheduled task",
			slog.String("error", err.Error()),
			slog.String("scheduled_task_id", id.String()))
		return nil, store.NewStoreError("scheduled_task", "get", "query failed", MapError(err))
	}
	return st, nil
}

// Update implements store.ScheduledTaskStore.Update
func (s *PostgresScheduledTaskStore) Update(ctx context.Context, st *domain.ScheduledTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := st.Validate(); err != nil {
		return err
	}
	schedules, tags, err := encodeTemplateJSON(st)
	if err != nil {
		return err
	}

	query := `
		UPDATE scheduled_tasks SET
			title = $2, description = $3, requires_image = $4, reward = $5,
			requires_approval = $6, assigned_user_id = $7, auto_assign = $8,
			schedules = $9, due_duration_days = $10, due_duration_hours = $11,
			start_date = $12::date, end_date = $13::date, timezone = $14,
			skip_holidays = $15, move_to_next_business_day = $16,
			delete_incomplete_previous = $17, tag_names = $18, is_active = $19,
			paused_at = $20, updated_at = $21
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query,
		st.ID, st.Title, st.Description, st.RequiresImage, st.Reward,
		st.RequiresApproval, st.AssignedUserID, st.AutoAssign, schedules,
		st.DueDurationDays, st.DueDurationHours, formatDate(st.StartDate),
		formatDatePtr(st.EndDate), st.Timezone, st.SkipHolidays,
		st.MoveToNextBusinessDay, st.DeleteIncompletePrevious, tags,
		st.IsActive, st.PausedAt, st.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to update scheduled task",
			slog.String("error", err.Error()),
			slog.String("scheduled_task_id", st.ID.String()))
		return store.NewStoreError("scheduled_task", "update", "update failed", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrScheduledTaskNotFound); err != nil {
		return err
	}

	log.Debug("scheduled task updated", slog.String("scheduled_task_id", st.ID.String()))
	return nil
}

// SoftDelete implements store.ScheduledTaskStore.SoftDelete
func (s *PostgresScheduledTaskStore) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE scheduled_tasks
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, id, at.UTC())
	if err != nil {
		log.Error("failed to delete scheduled task",
			slog.String("error", err.Error()),
			slog.String("scheduled_task_id", id.String()))
		return store.NewStoreError("scheduled_task", "delete", "update failed", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrScheduledTaskNotFound); err != nil {
		return err
	}

	log.Info("scheduled task deleted", slog.String("scheduled_task_id", id.String()))
	return nil
}

// ListByGroup implements store.ScheduledTaskStore.ListByGroup
func (s *PostgresScheduledTaskStore) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.ScheduledTask, error) {
	query := `SELECT ` + scheduledTaskColumns + `
		FROM scheduled_tasks
		WHERE group_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id`
	return s.list(ctx, "list_by_group", query, groupID)
}

// ListRunnable implements store.ScheduledTaskStore.ListRunnable
func (s *PostgresScheduledTaskStore) ListRunnable(ctx context.Context, from, to time.Time) ([]*domain.ScheduledTask, error) {
	query := `SELECT ` + scheduledTaskColumns + `
		FROM scheduled_tasks
		WHERE is_active AND paused_at IS NULL AND deleted_at IS NULL
			AND start_date <= $2::date
			AND (end_date IS NULL OR end_date >= $1::date)
		ORDER BY created_at, id`
	return s.list(ctx, "list_runnable", query, formatDate(from), formatDate(to))
}

func (s *PostgresScheduledTaskStore) list(ctx context.Context, op, query string, args ...any) ([]*domain.ScheduledTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query scheduled tasks", slog.String("operation", op), slog.String("error", err.Error()))
		return nil, store.NewStoreError("scheduled_task", op, "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.ScheduledTask
	for rows.Next() {
		st, err := scanScheduledTask(rows)
		if err != nil {
			return nil, store.NewStoreError("scheduled_task", op, "scan failed", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("scheduled_task", op, "row iteration failed", MapError(err))
	}

	log.Debug("scheduled tasks listed", slog.String("operation", op), slog.Int("count", len(out)))
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduledTask(row rowScanner) (*domain.ScheduledTask, error) {
	var (
		st        domain.ScheduledTask
		assigned  uuid.NullUUID
		schedules []byte
		tags      []byte
		dueDays   sql.NullInt32
		dueHours  sql.NullInt32
		endDate   sql.NullTime
		pausedAt  sql.NullTime
		deletedAt sql.NullTime
	)
	err := row.Scan(
		&st.ID, &st.GroupID, &st.CreatedBy, &st.Title, &st.Description,
		&st.RequiresImage, &st.Reward, &st.RequiresApproval, &assigned,
		&st.AutoAssign, &schedules, &dueDays, &dueHours, &st.StartDate,
		&endDate, &st.Timezone, &st.SkipHolidays, &st.MoveToNextBusinessDay,
		&st.DeleteIncompletePrevious, &tags, &st.IsActive, &pausedAt,
		&deletedAt, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(schedules, &st.Schedules); err != nil {
		return nil, fmt.Errorf("decoding schedules: %w", err)
	}
	if err := json.Unmarshal(tags, &st.TagNames); err != nil {
		return nil, fmt.Errorf("decoding tag names: %w", err)
	}
	if assigned.Valid {
		id := assigned.UUID
		st.AssignedUserID = &id
	}
	st.DueDurationDays = intFromNull(dueDays)
	st.DueDurationHours = intFromNull(dueHours)
	st.StartDate = domain.CivilDate(st.StartDate)
	st.EndDate = dateFromNull(endDate)
	st.PausedAt = timeFromNull(pausedAt)
	st.DeletedAt = timeFromNull(deletedAt)
	return &st, nil
}

func encodeTemplateJSON(st *domain.ScheduledTask) ([]byte, []byte, error) {
	schedules, err := json.Marshal(st.Schedules)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encoding schedules: %v", store.ErrInvalidEntity, err)
	}
	names := st.TagNames
	if names == nil {
		names = []string{}
	}
	tags, err := json.Marshal(names)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encoding tag names: %v", store.ErrInvalidEntity, err)
	}
	return schedules, tags, nil
}
