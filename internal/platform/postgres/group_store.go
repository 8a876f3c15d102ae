package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/store"
)

// PostgresGroupRoster implements store.GroupRoster over the group_members table.
type PostgresGroupRoster struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGroupRoster creates a roster reader. If logger is nil, a default
// logger will be used.
func NewPostgresGroupRoster(db store.DBTX, logger *slog.Logger) *PostgresGroupRoster {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGroupRoster{
		db:     db,
		logger: logger.With(slog.String("component", "group_roster")),
	}
}

var _ store.GroupRoster = (*PostgresGroupRoster)(nil)

// ActiveMembers implements store.GroupRoster.ActiveMembers
func (r *PostgresGroupRoster) ActiveMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM group_members
		WHERE group_id = $1 AND is_active
		ORDER BY joined_at, user_id`, groupID)
	if err != nil {
		return nil, store.NewStoreError("group_member", "list_active", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	members := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, store.NewStoreError("group_member", "list_active", "scan failed", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("group_member", "list_active", "row iteration failed", MapError(err))
	}
	return members, nil
}

// PostgresHolidayStore implements store.HolidayStore over the holidays table.
type PostgresHolidayStore struct {
	db store.DBTX
}

// NewPostgresHolidayStore creates a custom holiday reader.
func NewPostgresHolidayStore(db store.DBTX) *PostgresHolidayStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresHolidayStore{db: db}
}

var _ store.HolidayStore = (*PostgresHolidayStore)(nil)

// ListBetween implements store.HolidayStore.ListBetween
func (s *PostgresHolidayStore) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, name FROM holidays
		WHERE date BETWEEN $1::date AND $2::date
		ORDER BY date`, formatDate(from), formatDate(to))
	if err != nil {
		return nil, store.NewStoreError("holiday", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Holiday
	for rows.Next() {
		var h domain.Holiday
		if err := rows.Scan(&h.Date, &h.Name); err != nil {
			return nil, store.NewStoreError("holiday", "list", "scan failed", err)
		}
		h.Date = domain.CivilDate(h.Date)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("holiday", "list", "row iteration failed", MapError(err))
	}
	return out, nil
}
