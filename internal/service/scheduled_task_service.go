package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/platform/logger"
	"github.com/phrazzld/chorecast/internal/store"
)

// Execution history limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// ScheduledTaskService manages recurring task templates.
type ScheduledTaskService interface {
	// Create validates and stores a new active template for the group.
	Create(ctx context.Context, groupID, createdBy uuid.UUID, p domain.ScheduledTaskParams) (*domain.ScheduledTask, error)

	// Update replaces the editable fields of a template, including its
	// schedule set and tag names. Pause state is preserved.
	Update(ctx context.Context, id uuid.UUID, p domain.ScheduledTaskParams) (*domain.ScheduledTask, error)

	// Pause stops a template from firing. Pausing a paused template is a no-op.
	Pause(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error)

	// Resume lets a paused template fire again from the next batch run.
	Resume(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error)

	// Delete soft-deletes a template.
	Delete(ctx context.Context, id uuid.UUID) error

	// Get returns a non-deleted template.
	Get(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error)

	// ListByGroup returns the group's templates, newest first.
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.ScheduledTask, error)

	// ExecutionHistory returns the template's execution records, newest
	// first. A non-positive limit selects DefaultHistoryLimit; larger limits
	// are capped at MaxHistoryLimit.
	ExecutionHistory(ctx context.Context, id uuid.UUID, limit int) ([]*domain.Execution, error)
}

// ScheduledTaskServiceError wraps errors from the scheduled task service with context.
type ScheduledTaskServiceError struct {
	// Operation is the operation that failed (e.g., "create", "pause")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ScheduledTaskServiceError.
func (e *ScheduledTaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scheduled task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("scheduled task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ScheduledTaskServiceError) Unwrap() error {
	return e.Err
}

// NewScheduledTaskServiceError creates a new ScheduledTaskServiceError.
// It returns known sentinel errors and validation errors directly without wrapping.
func NewScheduledTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrScheduledTaskNotFound) || errors.Is(err, store.ErrScheduledTaskNotFound) {
		return ErrScheduledTaskNotFound
	}
	if errors.Is(err, domain.ErrValidation) {
		return err
	}

	return &ScheduledTaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// scheduledTaskServiceImpl implements the ScheduledTaskService interface
type scheduledTaskServiceImpl struct {
	templates  store.ScheduledTaskStore
	executions store.ExecutionStore
	tx         store.Transactor
	timezone   string
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a ScheduledTaskService.
type Option func(*scheduledTaskServiceImpl)

// WithDefaultTimezone sets the zone given to templates that do not name one.
// An empty tz keeps domain.DefaultTimezone.
func WithDefaultTimezone(tz string) Option {
	return func(s *scheduledTaskServiceImpl) {
		if tz != "" {
			s.timezone = tz
		}
	}
}

// NewScheduledTaskService creates a new ScheduledTaskService.
// It returns an error if any of the required dependencies are nil.
func NewScheduledTaskService(
	templates store.ScheduledTaskStore,
	executions store.ExecutionStore,
	tx store.Transactor,
	logger *slog.Logger,
	opts ...Option,
) (ScheduledTaskService, error) {
	if templates == nil {
		return nil, &ScheduledTaskServiceError{Operation: "create_service", Message: "templates cannot be nil"}
	}
	if executions == nil {
		return nil, &ScheduledTaskServiceError{Operation: "create_service", Message: "executions cannot be nil"}
	}
	if tx == nil {
		return nil, &ScheduledTaskServiceError{Operation: "create_service", Message: "transactor cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &scheduledTaskServiceImpl{
		templates:  templates,
		executions: executions,
		tx:         tx,
		timezone:   domain.DefaultTimezone,
		now:        time.Now,
		logger:     logger.With("component", "scheduled_task_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *scheduledTaskServiceImpl) withDefaults(p domain.ScheduledTaskParams) domain.ScheduledTaskParams {
	if p.Timezone == "" {
		p.Timezone = s.timezone
	}
	return p
}

// Create implements ScheduledTaskService.Create
func (s *scheduledTaskServiceImpl) Create(
	ctx context.Context,
	groupID, createdBy uuid.UUID,
	p domain.ScheduledTaskParams,
) (*domain.ScheduledTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	st, err := domain.NewScheduledTask(groupID, createdBy, s.withDefaults(p))
	if err != nil {
		log.Debug("rejected invalid scheduled task",
			slog.String("error", err.Error()),
			slog.String("group_id", groupID.String()))
		return nil, NewScheduledTaskServiceError("create", "invalid scheduled task", err)
	}

	if err := s.templates.Create(ctx, st); err != nil {
		log.Error("failed to save scheduled task",
			slog.String("error", err.Error()),
			slog.String("group_id", groupID.String()))
		return nil, NewScheduledTaskServiceError("create", "failed to save scheduled task", err)
	}

	log.Info("scheduled task created",
		slog.String("scheduled_task_id", st.ID.String()),
		slog.Int("schedules", len(st.Schedules)))
	return st, nil
}

// mutate loads a template, applies fn and saves the result in one transaction.
func (s *scheduledTaskServiceImpl) mutate(
	ctx context.Context,
	operation string,
	id uuid.UUID,
	fn func(st *domain.ScheduledTask) (changed bool, err error),
) (*domain.ScheduledTask, error) {
	var result *domain.ScheduledTask
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		templates := s.templates.WithTx(tx)

		st, err := templates.GetByID(ctx, id)
		if err != nil {
			return err
		}
		changed, err := fn(st)
		if err != nil {
			return err
		}
		if changed {
			if err := templates.Update(ctx, st); err != nil {
				return err
			}
		}
		result = st
		return nil
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Debug("scheduled task mutation failed",
			slog.String("operation", operation),
			slog.String("scheduled_task_id", id.String()),
			slog.String("error", err.Error()))
		return nil, NewScheduledTaskServiceError(operation, "failed to "+operation+" scheduled task", err)
	}
	return result, nil
}

// Update implements ScheduledTaskService.Update
func (s *scheduledTaskServiceImpl) Update(
	ctx context.Context,
	id uuid.UUID,
	p domain.ScheduledTaskParams,
) (*domain.ScheduledTask, error) {
	return s.mutate(ctx, "update", id, func(st *domain.ScheduledTask) (bool, error) {
		return true, st.Replace(s.withDefaults(p))
	})
}

// Pause implements ScheduledTaskService.Pause
func (s *scheduledTaskServiceImpl) Pause(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error) {
	return s.mutate(ctx, "pause", id, func(st *domain.ScheduledTask) (bool, error) {
		if st.PausedAt != nil {
			return false, nil
		}
		st.Pause(s.now())
		return true, nil
	})
}

// Resume implements ScheduledTaskService.Resume
func (s *scheduledTaskServiceImpl) Resume(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error) {
	return s.mutate(ctx, "resume", id, func(st *domain.ScheduledTask) (bool, error) {
		if st.PausedAt == nil {
			return false, nil
		}
		st.Resume(s.now())
		return true, nil
	})
}

// Delete implements ScheduledTaskService.Delete
func (s *scheduledTaskServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.templates.SoftDelete(ctx, id, s.now()); err != nil {
		return NewScheduledTaskServiceError("delete", "failed to delete scheduled task", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("scheduled task deleted",
		slog.String("scheduled_task_id", id.String()))
	return nil
}

// Get implements ScheduledTaskService.Get
func (s *scheduledTaskServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error) {
	st, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, NewScheduledTaskServiceError("get", "failed to load scheduled task", err)
	}
	return st, nil
}

// ListByGroup implements ScheduledTaskService.ListByGroup
func (s *scheduledTaskServiceImpl) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.ScheduledTask, error) {
	list, err := s.templates.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, NewScheduledTaskServiceError("list", "failed to list scheduled tasks", err)
	}
	return list, nil
}

// ExecutionHistory implements ScheduledTaskService.ExecutionHistory
func (s *scheduledTaskServiceImpl) ExecutionHistory(
	ctx context.Context,
	id uuid.UUID,
	limit int,
) ([]*domain.Execution, error) {
	if _, err := s.templates.GetByID(ctx, id); err != nil {
		return nil, NewScheduledTaskServiceError("history", "failed to load scheduled task", err)
	}

	history, err := s.executions.ListByScheduledTask(ctx, id, ClampHistoryLimit(limit))
	if err != nil {
		return nil, NewScheduledTaskServiceError("history", "failed to list executions", err)
	}
	return history, nil
}

// ClampHistoryLimit normalizes a requested history page size.
func ClampHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}
