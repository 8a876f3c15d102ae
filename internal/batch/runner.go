package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/domain/recurrence"
	"github.com/phrazzld/chorecast/internal/events"
	"github.com/phrazzld/chorecast/internal/platform/logger"
	"github.com/phrazzld/chorecast/internal/redact"
	"github.com/phrazzld/chorecast/internal/service/reconcile"
	"github.com/phrazzld/chorecast/internal/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Config holds runner tuning.
type Config struct {
	// WorkerCount bounds how many templates are processed concurrently.
	// If zero or negative, defaults to 1.
	WorkerCount int

	// OccurrenceTimeout bounds the work for a single occurrence. If zero,
	// defaults to 30 seconds.
	OccurrenceTimeout time.Duration

	// DispatchRate limits how many templates per second are handed to the
	// pool. Zero means unlimited.
	DispatchRate float64
}

// Assigner picks the assignee for a new task instance.
type Assigner interface {
	Resolve(ctx context.Context, st *domain.ScheduledTask) (uuid.UUID, error)
}

// Dependencies are the collaborators of a Runner. Events is optional.
type Dependencies struct {
	Templates  store.ScheduledTaskStore
	Executions store.ExecutionStore
	Tasks      store.TaskStore
	Tags       store.TagStore
	Transactor store.Transactor
	Calculator *recurrence.Calculator
	Reconciler *reconcile.Reconciler
	Assigner   Assigner
	Events     events.EventEmitter
}

// Summary reports the outcome of one batch run. AlreadyDone counts
// occurrences that already had a terminal record.
type Summary struct {
	BatchID     uuid.UUID     `json:"batch_id"`
	Date        time.Time     `json:"date"`
	Templates   int           `json:"templates"`
	Success     int           `json:"success"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	AlreadyDone int           `json:"already_done"`
	Duration    time.Duration `json:"duration"`
}

type tally struct {
	success, failed, skipped, alreadyDone atomic.Int64
}

// Runner executes daily batches.
type Runner struct {
	deps    Dependencies
	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time
	logger  *slog.Logger
}

// NewRunner creates a Runner. It returns an error if a required dependency
// is nil. If logger is nil, a default logger will be used.
func NewRunner(deps Dependencies, cfg Config, logger *slog.Logger) (*Runner, error) {
	switch {
	case deps.Templates == nil:
		return nil, errors.New("templates store cannot be nil")
	case deps.Executions == nil:
		return nil, errors.New("executions store cannot be nil")
	case deps.Tasks == nil:
		return nil, errors.New("tasks store cannot be nil")
	case deps.Tags == nil:
		return nil, errors.New("tags store cannot be nil")
	case deps.Transactor == nil:
		return nil, errors.New("transactor cannot be nil")
	case deps.Calculator == nil:
		return nil, errors.New("calculator cannot be nil")
	case deps.Reconciler == nil:
		return nil, errors.New("reconciler cannot be nil")
	case deps.Assigner == nil:
		return nil, errors.New("assigner cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.OccurrenceTimeout <= 0 {
		cfg.OccurrenceTimeout = 30 * time.Second
	}

	r := &Runner{
		deps:   deps,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With(slog.String("component", "batch_runner")),
	}
	if cfg.DispatchRate > 0 {
		burst := int(cfg.DispatchRate)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.DispatchRate), burst)
	}
	return r, nil
}

// RunDailyBatch processes every runnable template for the civil date. The
// returned error is non-nil only when the templates cannot be loaded or ctx
// is cancelled; per-occurrence failures are recorded and counted instead.
// On cancellation the partial summary is returned together with ctx.Err().
func (r *Runner) RunDailyBatch(ctx context.Context, date time.Time) (*Summary, error) {
	start := r.now()
	date = domain.CivilDate(date)
	summary := &Summary{BatchID: uuid.New(), Date: date}

	log := r.logger.With(
		slog.String("batch_id", summary.BatchID.String()),
		slog.String("run_date", date.Format(domain.DateLayout)))
	ctx = logger.WithLogger(ctx, log)

	// Moved occurrences may belong to natural dates before the run date.
	from := date.AddDate(0, 0, -r.deps.Calculator.MaxShiftDays())
	templates, err := r.deps.Templates.ListRunnable(ctx, from, date)
	if err != nil {
		log.Error("failed to load runnable templates", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("load runnable templates: %w", err)
	}
	summary.Templates = len(templates)
	log.Info("batch started", slog.Int("templates", len(templates)))

	var counts tally
	g := new(errgroup.Group)
	g.SetLimit(r.cfg.WorkerCount)

	for _, st := range templates {
		if ctx.Err() != nil {
			break
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				break
			}
		}
		g.Go(func() error {
			r.processTemplate(ctx, st, date, &counts)
			return nil
		})
	}
	_ = g.Wait()

	summary.Success = int(counts.success.Load())
	summary.Failed = int(counts.failed.Load())
	summary.Skipped = int(counts.skipped.Load())
	summary.AlreadyDone = int(counts.alreadyDone.Load())
	summary.Duration = r.now().Sub(start)

	attrs := []any{
		slog.Int("templates", summary.Templates),
		slog.Int("success", summary.Success),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("already_done", summary.AlreadyDone),
		slog.Duration("duration", summary.Duration),
	}
	if err := ctx.Err(); err != nil {
		log.Warn("batch interrupted", append(attrs, slog.String("error", err.Error()))...)
		return summary, err
	}
	if summary.Failed > 0 {
		log.Warn("batch finished with failures", attrs...)
	} else {
		log.Info("batch finished", attrs...)
	}
	return summary, nil
}

func (r *Runner) processTemplate(ctx context.Context, st *domain.ScheduledTask, date time.Time, counts *tally) {
	if !st.Runnable() {
		return
	}
	ctx, log := logger.With(ctx, slog.String("scheduled_task_id", st.ID.String()))

	for idx := range st.Schedules {
		if ctx.Err() != nil {
			return
		}
		entryCtx, _ := logger.With(ctx, slog.Int("schedule_index", idx))

		occurrences, err := r.deps.Calculator.OccurrencesOn(entryCtx, st, idx, date)
		if err != nil {
			key := domain.OccurrenceKey{
				ScheduledTaskID: st.ID,
				OccurrenceDate:  date,
				ScheduleKey:     st.LineageID(idx),
				ScheduleIndex:   idx,
			}
			r.recordFailure(entryCtx, key, date, err, counts)
			continue
		}
		for _, occ := range occurrences {
			if ctx.Err() != nil {
				return
			}
			r.processOccurrence(entryCtx, st, occ, counts)
		}
	}
	log.Debug("template processed")
}

// outcome is what materialize committed.
type outcome struct {
	status  domain.ExecutionStatus
	task    *domain.TaskInstance
	deleted *uuid.UUID
	note    string
}

// panicError carries a recovered panic value out of a transaction.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (r *Runner) processOccurrence(ctx context.Context, st *domain.ScheduledTask, occ recurrence.Occurrence, counts *tally) {
	log := logger.FromContext(ctx)
	key := occ.Key(st)

	occCtx, cancel := context.WithTimeout(ctx, r.cfg.OccurrenceTimeout)
	defer cancel()

	done, err := r.deps.Executions.HasTerminal(occCtx, key)
	if err != nil {
		r.recordFailure(ctx, key, occ.AdjustedDate, err, counts)
		return
	}
	if done {
		// A failed evaluation of a settled date is not work for this run.
		if occ.Err == nil {
			counts.alreadyDone.Add(1)
		}
		return
	}

	if occ.Err != nil {
		r.recordFailure(ctx, key, occ.AdjustedDate, occ.Err, counts)
		return
	}

	if !occ.Fires {
		// Only holiday skips reach here.
		e := domain.NewSkippedExecution(key, occ.AdjustedDate, domain.NoteHoliday, r.now())
		switch err := r.deps.Executions.Record(occCtx, e); {
		case err == nil:
			counts.skipped.Add(1)
			r.emitSkipped(ctx, st, key, occ.AdjustedDate, domain.NoteHoliday)
		case errors.Is(err, store.ErrExecutionExists):
			counts.alreadyDone.Add(1)
		default:
			r.recordFailure(ctx, key, occ.AdjustedDate, err, counts)
		}
		return
	}

	out, err := r.materialize(occCtx, st, occ)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrExecutionExists):
		log.Info("occurrence completed by a concurrent run",
			slog.String("occurrence_date", key.OccurrenceDate.Format(domain.DateLayout)))
		counts.alreadyDone.Add(1)
		return
	case ctx.Err() != nil:
		// The batch was cancelled; a later run retries this occurrence.
		log.Warn("occurrence abandoned", slog.String("error", err.Error()))
		return
	default:
		r.recordFailure(ctx, key, occ.AdjustedDate, err, counts)
		return
	}

	if out.status == domain.ExecutionSkipped {
		counts.skipped.Add(1)
		r.emitSkipped(ctx, st, key, occ.AdjustedDate, out.note)
		return
	}
	counts.success.Add(1)
	log.Info("task materialized",
		slog.String("task_id", out.task.ID.String()),
		slog.String("user_id", out.task.UserID.String()),
		slog.String("occurrence_date", key.OccurrenceDate.Format(domain.DateLayout)),
		slog.String("adjusted_date", occ.AdjustedDate.Format(domain.DateLayout)))
	r.emitMaterialized(ctx, st, key, out)
}

// materialize runs reconciliation, assignment, task creation, tagging and the
// success record in a single transaction.
func (r *Runner) materialize(ctx context.Context, st *domain.ScheduledTask, occ recurrence.Occurrence) (out outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &panicError{value: p}
		}
	}()

	key := occ.Key(st)
	err = r.deps.Transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		executions := r.deps.Executions.WithTx(tx)

		rec, err := r.deps.Reconciler.WithTx(tx).Reconcile(ctx, st, occ.ScheduleIndex)
		if err != nil {
			return err
		}
		if rec.Decision == reconcile.Skip {
			if err := executions.Record(ctx, domain.NewSkippedExecution(key, occ.AdjustedDate, rec.Note, r.now())); err != nil {
				return err
			}
			out = outcome{status: domain.ExecutionSkipped, note: rec.Note}
			return nil
		}

		assignee, err := r.deps.Assigner.Resolve(ctx, st)
		if err != nil {
			return err
		}

		task := domain.NewTaskInstance(st, occ.ScheduleIndex, assignee, occ.At)
		if err := r.deps.Tasks.WithTx(tx).Create(ctx, task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		if err := r.attachTags(ctx, tx, st, task.ID); err != nil {
			return err
		}

		success := domain.NewSuccessExecution(key, occ.AdjustedDate, task.ID, rec.DeletedTaskID, r.now())
		if err := executions.Record(ctx, success); err != nil {
			return err
		}
		out = outcome{status: domain.ExecutionSuccess, task: task, deleted: rec.DeletedTaskID}
		return nil
	})
	return out, err
}

func (r *Runner) attachTags(ctx context.Context, tx *sql.Tx, st *domain.ScheduledTask, taskID uuid.UUID) error {
	if len(st.TagNames) == 0 {
		return nil
	}
	tags := r.deps.Tags.WithTx(tx)
	ids := make([]uuid.UUID, 0, len(st.TagNames))
	for _, name := range st.TagNames {
		id, err := tags.ResolveOrCreate(ctx, st.GroupID, name)
		if err != nil {
			return fmt.Errorf("resolve tag: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tags.Attach(ctx, taskID, ids); err != nil {
		return fmt.Errorf("attach tags: %w", err)
	}
	return nil
}

// recordFailure appends a failed execution outside any transaction. It uses
// a context detached from cancellation so a timed-out occurrence is still
// recorded.
func (r *Runner) recordFailure(ctx context.Context, key domain.OccurrenceKey, adjusted time.Time, cause error, counts *tally) {
	log := logger.FromContext(ctx)

	var message string
	var pe *panicError
	if errors.As(cause, &pe) {
		message = redact.Panic(pe.value)
	} else {
		message = redact.Message(cause)
	}

	counts.failed.Add(1)
	log.Error("occurrence failed",
		slog.String("occurrence_date", key.OccurrenceDate.Format(domain.DateLayout)),
		slog.String("error", message))

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.OccurrenceTimeout)
	defer cancel()
	if err := r.deps.Executions.Record(writeCtx, domain.NewFailedExecution(key, adjusted, message, r.now())); err != nil {
		log.Error("failed to record failed execution", slog.String("error", redact.Error(err)))
	}
}

func (r *Runner) emitMaterialized(ctx context.Context, st *domain.ScheduledTask, key domain.OccurrenceKey, out outcome) {
	r.emit(ctx, events.TypeTaskMaterialized, events.TaskMaterialized{
		TaskID:          out.task.ID,
		ScheduledTaskID: st.ID,
		GroupID:         st.GroupID,
		AssigneeID:      out.task.UserID,
		ScheduleIndex:   key.ScheduleIndex,
		OccurrenceDate:  key.OccurrenceDate.Format(domain.DateLayout),
		DeletedTaskID:   out.deleted,
	})
}

func (r *Runner) emitSkipped(ctx context.Context, st *domain.ScheduledTask, key domain.OccurrenceKey, adjusted time.Time, note string) {
	r.emit(ctx, events.TypeOccurrenceSkipped, events.OccurrenceSkipped{
		ScheduledTaskID: st.ID,
		GroupID:         st.GroupID,
		ScheduleIndex:   key.ScheduleIndex,
		OccurrenceDate:  key.OccurrenceDate.Format(domain.DateLayout),
		AdjustedDate:    adjusted.Format(domain.DateLayout),
		Note:            note,
	})
}

// emit publishes after commit. Handler failures are logged and never change
// the occurrence outcome.
func (r *Runner) emit(ctx context.Context, eventType string, payload any) {
	if r.deps.Events == nil {
		return
	}
	event, err := events.NewEvent(eventType, payload)
	if err == nil {
		err = r.deps.Events.EmitEvent(ctx, event)
	}
	if err != nil {
		logger.FromContext(ctx).Warn("failed to emit event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}
