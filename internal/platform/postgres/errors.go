package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/store"
)

// PostgreSQL error codes
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// constraintErrors names the schema constraints whose violations callers
// match on. Check constraints mirror domain validation and surface the same
// sentinel the domain would have returned.
var constraintErrors = map[string]error{
	"idx_executions_occurrence":      store.ErrExecutionExists,
	"tags_group_name_unique":         store.ErrDuplicate,
	"scheduled_tasks_assignment_xor": domain.ErrInvalidAssignment,
	"scheduled_tasks_holiday_policy": domain.ErrConflictingHolidayPolicy,
	"scheduled_tasks_window":         domain.ErrInvalidDateRange,
}

// MapError maps a database error to a store sentinel, keeping the original
// error in the chain for logging.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		if known, ok := constraintErrors[pgErr.ConstraintName]; ok && errors.Is(known, store.ErrDuplicate) {
			return fmt.Errorf("%w: %w", known, err)
		}
		return fmt.Errorf("%w: %w", store.ErrDuplicate, err)
	case foreignKeyViolationCode:
		return fmt.Errorf("%w: foreign key violation (%s): %w", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case checkViolationCode:
		if known, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %w: %w", store.ErrInvalidEntity, known, err)
		}
		return fmt.Errorf("%w: check constraint violation (%s): %w", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case notNullViolationCode:
		return fmt.Errorf("%w: not null violation (%s): %w", store.ErrInvalidEntity, pgErr.ColumnName, err)
	}
	return err
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// duplicateError reports a unique violation on insert as entity already existing.
func duplicateError(err error, entity string) error {
	return fmt.Errorf("%w: %s already exists: %w", store.ErrDuplicate, entity, err)
}

// CheckRowsAffected returns notFound when an UPDATE or DELETE touched no rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
