// Package reconcile handles the previous task instance of a schedule entry
// before a new one is materialized.
package reconcile

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

// Decision is what the caller should do with the current occurrence.
type Decision int

// Possible decisions
const (
	// Proceed means a new instance may be created.
	Proceed Decision = iota
	// Skip means the occurrence must be recorded as skipped.
	Skip
)

// Outcome is the result of reconciling one lineage.
type Outcome struct {
	Decision Decision
	// DeletedTaskID is set when an incomplete prior instance was removed.
	DeletedTaskID *uuid.UUID
	// Note explains a Skip.
	Note string
}

// Reconciler inspects the latest instance in a lineage.
type Reconciler struct {
	tasks  store.TaskStore
	now    func() time.Time
	logger *slog.Logger
}

// NewReconciler creates a Reconciler. If logger is nil, a default logger will
// be used.
func NewReconciler(tasks store.TaskStore, logger *slog.Logger) (*Reconciler, error) {
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		tasks:  tasks,
		now:    time.Now,
		logger: logger.With(slog.String("component", "reconciler")),
	}, nil
}

// WithTx returns a Reconciler whose task reads and deletes run in tx.
func (r *Reconciler) WithTx(tx *sql.Tx) *Reconciler {
	return &Reconciler{tasks: r.tasks.WithTx(tx), now: r.now, logger: r.logger}
}

// Reconcile decides how the prior instance of schedule entry idx affects a
// new occurrence. An incomplete prior instance is soft-deleted when the
// template asks for it; otherwise it blocks the occurrence.
func (r *Reconciler) Reconcile(ctx context.Context, st *domain.ScheduledTask, idx int) (Outcome, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	prior, err := r.tasks.FindLatestInLineage(ctx, st.LineageID(idx))
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return Outcome{Decision: Proceed}, nil
		}
		return Outcome{}, fmt.Errorf("find prior instance: %w", err)
	}

	incomplete, err := r.tasks.IsIncomplete(ctx, prior.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("check prior instance: %w", err)
	}
	if !incomplete {
		return Outcome{Decision: Proceed}, nil
	}

	if !st.DeleteIncompletePrevious {
		log.Info("previous instance incomplete, skipping occurrence",
			slog.String("scheduled_task_id", st.ID.String()),
			slog.Int("schedule_index", idx),
			slog.String("task_id", prior.ID.String()))
		return Outcome{Decision: Skip, Note: domain.NotePreviousIncomplete}, nil
	}

	if err := r.tasks.SoftDelete(ctx, prior.ID, r.now()); err != nil {
		return Outcome{}, fmt.Errorf("delete prior instance: %w", err)
	}
	log.Info("deleted incomplete previous instance",
		slog.String("scheduled_task_id", st.ID.String()),
		slog.Int("schedule_index", idx),
		slog.String("task_id", prior.ID.String()))

	deleted := prior.ID
	return Outcome{Decision: Proceed, DeletedTaskID: &deleted}, nil
}
