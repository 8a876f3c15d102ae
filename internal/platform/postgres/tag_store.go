package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/platform/logger"
	"github.com/phrazzld/chorecast/internal/store"
)

// PostgresTagStore implements the store.TagStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTagStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTagStore creates a new PostgreSQL implementation of the TagStore
// interface. If logger is nil, a default logger will be used.
func NewPostgresTagStore(db store.DBTX, logger *slog.Logger) *PostgresTagStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTagStore{
		db:     db,
		logger: logger.With(slog.String("component", "tag_store")),
	}
}

// Ensure PostgresTagStore implements store.TagStore interface
var _ store.TagStore = (*PostgresTagStore)(nil)

// WithTx implements store.TagStore.WithTx
func (s *PostgresTagStore) WithTx(tx *sql.Tx) store.TagStore {
	return &PostgresTagStore{db: tx, logger: s.logger}
}

// ResolveOrCreate implements store.TagStore.ResolveOrCreate
// The no-op update makes RETURNING yield the existing row on conflict.
func (s *PostgresTagStore) ResolveOrCreate(ctx context.Context, groupID uuid.UUID, name string) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO tags (id, group_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	var id uuid.UUID
	if err := s.db.QueryRowContext(ctx, query, uuid.New(), groupID, name).Scan(&id); err != nil {
		log.Error("failed to resolve tag",
			slog.String("error", err.Error()),
			slog.String("group_id", groupID.String()))
		return uuid.Nil, store.NewStoreError("tag", "resolve", "upsert failed", MapError(err))
	}
	return id, nil
}

// Attach implements store.TagStore.Attach
func (s *PostgresTagStore) Attach(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	for _, tagID := range tagIDs {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO task_tags (task_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			taskID, tagID,
		)
		if err != nil {
			return store.NewStoreError("tag", "attach", "insert failed", MapError(err))
		}
	}
	return nil
}
