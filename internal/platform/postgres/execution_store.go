package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/platform/logger"
	"github.com/phrazzld/chorecast/internal/store"
)

// PostgresExecutionStore implements the store.ExecutionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresExecutionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresExecutionStore creates a new PostgreSQL implementation of the
// ExecutionStore interface. If logger is nil, a default logger will be used.
func NewPostgresExecutionStore(db store.DBTX, logger *slog.Logger) *PostgresExecutionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresExecutionStore{
		db:     db,
		logger: logger.With(slog.String("component", "execution_store")),
	}
}

// Ensure PostgresExecutionStore implements store.ExecutionStore interface
var _ store.ExecutionStore = (*PostgresExecutionStore)(nil)

// WithTx implements store.ExecutionStore.WithTx
func (s *PostgresExecutionStore) WithTx(tx *sql.Tx) store.ExecutionStore {
	return &PostgresExecutionStore{db: tx, logger: s.logger}
}

const insertExecution = `
	INSERT INTO scheduled_task_executions (
		id, scheduled_task_id, schedule_key, schedule_index, occurrence_date,
		adjusted_date, status, created_task_id, deleted_task_id, error_message,
		note, executed_at
	) VALUES ($1, $2, $3, $4, $5::date, $6::date, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12)`

// Record implements store.ExecutionStore.Record
func (s *PostgresExecutionStore) Record(ctx context.Context, e *domain.Execution) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := e.Validate(); err != nil {
		return err
	}

	query := insertExecution
	if e.Status.Terminal() {
		query += `
	ON CONFLICT (scheduled_task_id, occurrence_date, schedule_key)
		WHERE status <> 'failed' DO NOTHING`
	}

	result, err := s.db.ExecContext(ctx, query,
		e.ID, e.ScheduledTaskID, e.ScheduleKey, e.ScheduleIndex,
		formatDate(e.OccurrenceDate), formatDate(e.AdjustedDate),
		string(e.Status), e.CreatedTaskID, e.DeletedTaskID,
		e.ErrorMessage, e.Note, e.ExecutedAt,
	)
	if err != nil {
		log.Error("failed to record execution",
			slog.String("error", err.Error()),
			slog.String("scheduled_task_id", e.ScheduledTaskID.String()),
			slog.String("status", string(e.Status)))
		return store.NewStoreError("execution", "record", "insert failed", MapError(err))
	}

	if e.Status.Terminal() {
		rows, err := result.RowsAffected()
		if err != nil {
			return store.NewStoreError("execution", "record", "rows affected unavailable", err)
		}
		if rows == 0 {
			log.Info("terminal execution already recorded",
				slog.String("scheduled_task_id", e.ScheduledTaskID.String()),
				slog.String("occurrence_date", formatDate(e.OccurrenceDate)),
				slog.Int("schedule_index", e.ScheduleIndex))
			return store.ErrExecutionExists
		}
	}

	log.Debug("execution recorded",
		slog.String("execution_id", e.ID.String()),
		slog.String("status", string(e.Status)))
	return nil
}

// HasTerminal implements store.ExecutionStore.HasTerminal
func (s *PostgresExecutionStore) HasTerminal(ctx context.Context, key domain.OccurrenceKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM scheduled_task_executions
			WHERE scheduled_task_id = $1 AND occurrence_date = $2::date
				AND schedule_key = $3 AND status <> 'failed'
		)`
	var exists bool
	err := s.db.QueryRowContext(ctx, query,
		key.ScheduledTaskID, formatDate(key.OccurrenceDate), key.ScheduleKey,
	).Scan(&exists)
	if err != nil {
		return false, store.NewStoreError("execution", "has_terminal", "query failed", MapError(err))
	}
	return exists, nil
}

// ListByScheduledTask implements store.ExecutionStore.ListByScheduledTask
func (s *PostgresExecutionStore) ListByScheduledTask(
	ctx context.Context,
	scheduledTaskID uuid.UUID,
	limit int,
) ([]*domain.Execution, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, scheduled_task_id, schedule_key, schedule_index, occurrence_date, adjusted_date,
			status, created_task_id, deleted_task_id,
			COALESCE(error_message, ''), COALESCE(note, ''), executed_at
		FROM scheduled_task_executions
		WHERE scheduled_task_id = $1
		ORDER BY executed_at DESC, id
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, scheduledTaskID, limit)
	if err != nil {
		log.Error("failed to list executions",
			slog.String("error", err.Error()),
			slog.String("scheduled_task_id", scheduledTaskID.String()))
		return nil, store.NewStoreError("execution", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	out := make([]*domain.Execution, 0, limit)
	for rows.Next() {
		var (
			e       domain.Execution
			status  string
			created uuid.NullUUID
			deleted uuid.NullUUID
		)
		if err := rows.Scan(
			&e.ID, &e.ScheduledTaskID, &e.ScheduleKey, &e.ScheduleIndex, &e.OccurrenceDate,
			&e.AdjustedDate, &status, &created, &deleted, &e.ErrorMessage,
			&e.Note, &e.ExecutedAt,
		); err != nil {
			return nil, store.NewStoreError("execution", "list", "scan failed", err)
		}
		e.Status = domain.ExecutionStatus(status)
		e.OccurrenceDate = domain.CivilDate(e.OccurrenceDate)
		e.AdjustedDate = domain.CivilDate(e.AdjustedDate)
		if created.Valid {
			id := created.UUID
			e.CreatedTaskID = &id
		}
		if deleted.Valid {
			id := deleted.UUID
			e.DeletedTaskID = &id
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("execution", "list", "row iteration failed", MapError(err))
	}
	return out, nil
}
