package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/chorecast/internal/platform/logger"
)

// TxFn is the unit of work run by RunInTransaction. Stores obtained through
// WithTx(tx) inside fn share the transaction.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction runs fn inside a transaction on db. The transaction
// commits when fn returns nil and rolls back when fn returns an error or
// panics; a panic is re-raised after the rollback.
//
// Errors from fn are returned unchanged so callers can match sentinels such
// as ErrExecutionExists. Begin and commit failures wrap ErrTransactionFailed.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) (err error) {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: begin: %w", ErrTransactionFailed, err)
	}

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("failed to roll back transaction after panic",
				slog.String("error", rbErr.Error()),
				slog.Any("panic", p))
		} else {
			log.Error("rolled back transaction after panic", slog.Any("panic", p))
		}
		// ALLOW-PANIC: Propagating caught panic from transaction
		panic(p)
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		log.Debug("rolled back transaction", slog.String("error", err.Error()))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: commit: %w", ErrTransactionFailed, err)
	}
	return nil
}

// Transactor runs a function inside a database transaction. Services and the
// batch runner depend on it rather than on *sql.DB so tests can substitute an
// in-memory implementation.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn TxFn) error
}

// SQLTransactor is the database/sql implementation of Transactor.
type SQLTransactor struct {
	db *sql.DB
}

var _ Transactor = (*SQLTransactor)(nil)

// NewSQLTransactor creates a Transactor over db.
func NewSQLTransactor(db *sql.DB) *SQLTransactor {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	return &SQLTransactor{db: db}
}

// RunInTransaction implements Transactor.
func (t *SQLTransactor) RunInTransaction(ctx context.Context, fn TxFn) error {
	return RunInTransaction(ctx, t.db, fn)
}
