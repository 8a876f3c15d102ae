package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the outcome of one occurrence attempt.
type ExecutionStatus string

// Possible execution status values
const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
	ExecutionSkipped ExecutionStatus = "skipped"
)

// Skip notes recorded on skipped executions.
const (
	NoteHoliday            = "holiday"
	NotePreviousIncomplete = "previous incomplete"
)

// Common validation errors for Execution
var (
	ErrEmptyExecutionTaskID = errors.New("execution scheduled task ID cannot be empty")
	ErrMissingCreatedTask   = errors.New("successful execution must reference the created task")
)

// Terminal reports whether a record with this status closes its occurrence
// key. Failed attempts may be retried by a later run.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionSuccess || s == ExecutionSkipped
}

// OccurrenceKey identifies one occurrence of one schedule entry. Identity is
// the template, the natural date and ScheduleKey; ScheduleIndex is the
// entry's position when the key was made and is informational.
type OccurrenceKey struct {
	ScheduledTaskID uuid.UUID
	OccurrenceDate  time.Time
	ScheduleKey     uuid.UUID
	ScheduleIndex   int
}

// Execution is the immutable audit record of one occurrence attempt.
type Execution struct {
	ID              uuid.UUID       `json:"id"`
	ScheduledTaskID uuid.UUID       `json:"scheduled_task_id"`
	ScheduleKey     uuid.UUID       `json:"schedule_key"`
	ScheduleIndex   int             `json:"schedule_index"`
	OccurrenceDate  time.Time       `json:"occurrence_date"`
	AdjustedDate    time.Time       `json:"adjusted_date"`
	Status          ExecutionStatus `json:"status"`
	CreatedTaskID   *uuid.UUID      `json:"created_task_id,omitempty"`
	DeletedTaskID   *uuid.UUID      `json:"deleted_task_id,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	Note            string          `json:"note,omitempty"`
	ExecutedAt      time.Time       `json:"executed_at"`
}

// Key returns the idempotency key of the record.
func (e *Execution) Key() OccurrenceKey {
	return OccurrenceKey{
		ScheduledTaskID: e.ScheduledTaskID,
		OccurrenceDate:  e.OccurrenceDate,
		ScheduleKey:     e.ScheduleKey,
		ScheduleIndex:   e.ScheduleIndex,
	}
}

func newExecution(key OccurrenceKey, adjusted time.Time, status ExecutionStatus, at time.Time) *Execution {
	return &Execution{
		ID:              uuid.New(),
		ScheduledTaskID: key.ScheduledTaskID,
		ScheduleKey:     key.ScheduleKey,
		ScheduleIndex:   key.ScheduleIndex,
		OccurrenceDate:  CivilDate(key.OccurrenceDate),
		AdjustedDate:    CivilDate(adjusted),
		Status:          status,
		ExecutedAt:      at.UTC(),
	}
}

// NewSuccessExecution records a materialized task. deleted is the prior
// instance removed by reconciliation, if any.
func NewSuccessExecution(key OccurrenceKey, adjusted time.Time, created uuid.UUID, deleted *uuid.UUID, at time.Time) *Execution {
	e := newExecution(key, adjusted, ExecutionSuccess, at)
	e.CreatedTaskID = &created
	e.DeletedTaskID = deleted
	return e
}

// NewSkippedExecution records an occurrence that intentionally produced no task.
func NewSkippedExecution(key OccurrenceKey, adjusted time.Time, note string, at time.Time) *Execution {
	e := newExecution(key, adjusted, ExecutionSkipped, at)
	e.Note = note
	return e
}

// NewFailedExecution records an occurrence attempt that errored. The message
// must already be redacted.
func NewFailedExecution(key OccurrenceKey, adjusted time.Time, message string, at time.Time) *Execution {
	e := newExecution(key, adjusted, ExecutionFailed, at)
	e.ErrorMessage = message
	return e
}

// Validate checks if the Execution has valid data.
func (e *Execution) Validate() error {
	if e.ScheduledTaskID == uuid.Nil {
		return ErrEmptyExecutionTaskID
	}
	switch e.Status {
	case ExecutionSuccess:
		if e.CreatedTaskID == nil || *e.CreatedTaskID == uuid.Nil {
			return ErrMissingCreatedTask
		}
	case ExecutionFailed, ExecutionSkipped:
	default:
		return ErrInvalidExecutionStatus
	}
	if e.ScheduleIndex < 0 {
		return NewValidationError("schedule_index", "must not be negative", ErrInvalidFormat)
	}
	return nil
}
