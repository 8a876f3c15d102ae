package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, func() *PostgresExecutionStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, func() *PostgresExecutionStore { return NewPostgresExecutionStore(db, nil) }
}

func testKey() domain.OccurrenceKey {
	return domain.OccurrenceKey{
		ScheduledTaskID: uuid.New(),
		OccurrenceDate:  time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		ScheduleKey:     uuid.New(),
		ScheduleIndex:   0,
	}
}

func TestExecutionStoreRecord(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, 3, 3, 0, 5, 0, 0, time.UTC)

	t.Run("terminal record inserted", func(t *testing.T) {
		t.Parallel()
		mock, newStore := newMockDB(t)
		key := testKey()
		e := domain.NewSuccessExecution(key, key.OccurrenceDate, uuid.New(), nil, at)

		mock.ExpectExec(`INSERT INTO scheduled_task_executions .* ON CONFLICT .* DO NOTHING`).
			WithArgs(e.ID, key.ScheduledTaskID, key.ScheduleKey, 0, "2025-03-03", "2025-03-03",
				"success", sqlmock.AnyArg(), sqlmock.AnyArg(), "", "", at).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, newStore().Record(context.Background(), e))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate terminal record rejected", func(t *testing.T) {
		t.Parallel()
		mock, newStore := newMockDB(t)
		key := testKey()
		e := domain.NewSkippedExecution(key, key.OccurrenceDate, domain.NoteHoliday, at)

		mock.ExpectExec(`ON CONFLICT`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := newStore().Record(context.Background(), e)
		assert.ErrorIs(t, err, store.ErrExecutionExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed record always appended", func(t *testing.T) {
		t.Parallel()
		mock, newStore := newMockDB(t)
		key := testKey()
		e := domain.NewFailedExecution(key, key.OccurrenceDate, "insert failed", at)

		// No conflict clause: the statement ends at the VALUES list.
		mock.ExpectExec(`INSERT INTO scheduled_task_executions .*\$12\)$`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, newStore().Record(context.Background(), e))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid record never reaches the database", func(t *testing.T) {
		t.Parallel()
		mock, newStore := newMockDB(t)
		e := domain.NewFailedExecution(domain.OccurrenceKey{}, time.Time{}, "x", at)

		err := newStore().Record(context.Background(), e)
		assert.ErrorIs(t, err, domain.ErrEmptyExecutionTaskID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error wrapped", func(t *testing.T) {
		t.Parallel()
		mock, newStore := newMockDB(t)
		key := testKey()
		e := domain.NewFailedExecution(key, key.OccurrenceDate, "boom", at)

		mock.ExpectExec(`INSERT INTO scheduled_task_executions`).
			WillReturnError(errors.New("connection reset"))

		err := newStore().Record(context.Background(), e)
		require.Error(t, err)
		var storeErr *store.StoreError
		assert.ErrorAs(t, err, &storeErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestExecutionStoreHasTerminal(t *testing.T) {
	t.Parallel()
	mock, newStore := newMockDB(t)
	key := testKey()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(key.ScheduledTaskID, "2025-03-03", key.ScheduleKey).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := newStore().HasTerminal(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagStoreResolveOrCreate(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	groupID := uuid.New()
	existing := uuid.New()
	mock.ExpectQuery(`INSERT INTO tags .* ON CONFLICT \(group_id, name\) DO UPDATE .* RETURNING id`).
		WithArgs(sqlmock.AnyArg(), groupID, "kitchen").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(existing.String()))

	id, err := NewPostgresTagStore(db, nil).ResolveOrCreate(context.Background(), groupID, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, existing, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreNotFound(t *testing.T) {
	t.Parallel()

	t.Run("empty lineage", func(t *testing.T) {
		t.Parallel()
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		lineage := uuid.New()
		mock.ExpectQuery(`FROM tasks WHERE recurrence_group_id = \$1`).
			WithArgs(lineage).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err = NewPostgresTaskStore(db, nil).FindLatestInLineage(context.Background(), lineage)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("completion check of missing task", func(t *testing.T) {
		t.Parallel()
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(`FROM tasks WHERE id = \$1 FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"incomplete"}))

		_, err = NewPostgresTaskStore(db, nil).IsIncomplete(context.Background(), uuid.New())
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("soft delete of missing task", func(t *testing.T) {
		t.Parallel()
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(`UPDATE tasks SET deleted_at`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = NewPostgresTaskStore(db, nil).SoftDelete(context.Background(), uuid.New(), time.Now())
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskStoreIsIncomplete(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	id := uuid.New()
	mock.ExpectQuery(`SELECT NOT is_completed AND deleted_at IS NULL FROM tasks WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"incomplete"}).AddRow(true))

	incomplete, err := NewPostgresTaskStore(db, nil).IsIncomplete(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, incomplete)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRosterActiveMembers(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	groupID := uuid.New()
	a, b := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT user_id FROM group_members`).
		WithArgs(groupID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).
			AddRow(a.String()).
			AddRow(b.String()))

	members, err := NewPostgresGroupRoster(db, nil).ActiveMembers(context.Background(), groupID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, members)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayStoreListBetween(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT date, name FROM holidays`).
		WithArgs("2025-05-01", "2025-05-31").
		WillReturnRows(sqlmock.NewRows([]string{"date", "name"}).
			AddRow(time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC), "Founders Day"))

	got, err := NewPostgresHolidayStore(db).ListBetween(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Founders Day", got[0].Name)
	assert.True(t, got[0].Date.Equal(time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateErrorKeepsDriverError(t *testing.T) {
	t.Parallel()

	cause := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "tasks_pkey"}
	err := duplicateError(cause, "task")

	assert.ErrorIs(t, err, store.ErrDuplicate)
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "tasks_pkey", pgErr.ConstraintName)
	assert.Contains(t, err.Error(), "task already exists")
}
