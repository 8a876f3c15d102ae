package batch

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/events"
	"github.com/phrazzld/chorecast/internal/store"
)

// journal collects undo steps for the writes of one fake transaction.
type journal struct {
	undo []func()
}

type journalKey struct{}

// memDB is the shared state behind the fake stores. A single mutex keeps
// concurrent workers consistent.
type memDB struct {
	mu sync.Mutex

	templates   []*domain.ScheduledTask
	listErr     error
	executions  []*domain.Execution
	tasks       []*domain.TaskInstance
	tags        map[string]uuid.UUID
	attachments map[uuid.UUID][]uuid.UUID
	members     map[uuid.UUID][]uuid.UUID

	// onCreateTask runs before a task is stored; a non-nil error fails Create.
	onCreateTask func(ctx context.Context, t *domain.TaskInstance) error
}

func newMemDB() *memDB {
	return &memDB{
		tags:        map[string]uuid.UUID{},
		attachments: map[uuid.UUID][]uuid.UUID{},
		members:     map[uuid.UUID][]uuid.UUID{},
	}
}

// logUndo must be called with mu held.
func (m *memDB) logUndo(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, fn)
	}
}

func (m *memDB) executionsFor(id uuid.UUID) []*domain.Execution {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Execution
	for _, e := range m.executions {
		if e.ScheduledTaskID == id {
			out = append(out, e)
		}
	}
	return out
}

func (m *memDB) liveTasks() []*domain.TaskInstance {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.TaskInstance
	for _, t := range m.tasks {
		if t.DeletedAt == nil {
			out = append(out, t)
		}
	}
	return out
}

func (m *memDB) allTasks() []*domain.TaskInstance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tasks)
}

// fakeTransactor rolls back every journaled write when fn fails or panics.
type fakeTransactor struct {
	db *memDB
}

func (f *fakeTransactor) RunInTransaction(ctx context.Context, fn store.TxFn) (err error) {
	j := &journal{}
	ctx = context.WithValue(ctx, journalKey{}, j)

	rollback := func() {
		f.db.mu.Lock()
		defer f.db.mu.Unlock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, nil); err != nil {
		rollback()
		return err
	}
	return nil
}

type fakeTemplates struct{ db *memDB }

func (f *fakeTemplates) Create(context.Context, *domain.ScheduledTask) error {
	return store.ErrNotImplemented
}

func (f *fakeTemplates) GetByID(_ context.Context, id uuid.UUID) (*domain.ScheduledTask, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, st := range f.db.templates {
		if st.ID == id {
			return st, nil
		}
	}
	return nil, store.ErrScheduledTaskNotFound
}

func (f *fakeTemplates) Update(context.Context, *domain.ScheduledTask) error {
	return store.ErrNotImplemented
}

func (f *fakeTemplates) SoftDelete(context.Context, uuid.UUID, time.Time) error {
	return store.ErrNotImplemented
}

func (f *fakeTemplates) ListByGroup(context.Context, uuid.UUID) ([]*domain.ScheduledTask, error) {
	return nil, store.ErrNotImplemented
}

func (f *fakeTemplates) ListRunnable(_ context.Context, from, to time.Time) ([]*domain.ScheduledTask, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.listErr != nil {
		return nil, f.db.listErr
	}
	var out []*domain.ScheduledTask
	for _, st := range f.db.templates {
		if !st.Runnable() || st.StartDate.After(to) {
			continue
		}
		if st.EndDate != nil && st.EndDate.Before(from) {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (f *fakeTemplates) WithTx(*sql.Tx) store.ScheduledTaskStore { return f }

type fakeExecutions struct{ db *memDB }

func sameKey(a, b domain.OccurrenceKey) bool {
	return a.ScheduledTaskID == b.ScheduledTaskID &&
		a.ScheduleKey == b.ScheduleKey &&
		a.OccurrenceDate.Equal(b.OccurrenceDate)
}

func (f *fakeExecutions) Record(ctx context.Context, e *domain.Execution) error {
	if err := e.Validate(); err != nil {
		return err
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if e.Status.Terminal() {
		for _, existing := range f.db.executions {
			if existing.Status.Terminal() && sameKey(existing.Key(), e.Key()) {
				return store.ErrExecutionExists
			}
		}
	}
	f.db.executions = append(f.db.executions, e)
	f.db.logUndo(ctx, func() {
		f.db.executions = slices.DeleteFunc(f.db.executions, func(x *domain.Execution) bool { return x == e })
	})
	return nil
}

func (f *fakeExecutions) HasTerminal(_ context.Context, key domain.OccurrenceKey) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, e := range f.db.executions {
		if e.Status.Terminal() && sameKey(e.Key(), key) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeExecutions) ListByScheduledTask(_ context.Context, id uuid.UUID, _ int) ([]*domain.Execution, error) {
	return f.db.executionsFor(id), nil
}

func (f *fakeExecutions) WithTx(*sql.Tx) store.ExecutionStore { return f }

type fakeTasks struct{ db *memDB }

func (f *fakeTasks) Create(ctx context.Context, t *domain.TaskInstance) error {
	if hook := f.db.onCreateTask; hook != nil {
		if err := hook(ctx, t); err != nil {
			return err
		}
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.tasks = append(f.db.tasks, t)
	f.db.logUndo(ctx, func() {
		f.db.tasks = slices.DeleteFunc(f.db.tasks, func(x *domain.TaskInstance) bool { return x == t })
	})
	return nil
}

func (f *fakeTasks) IsIncomplete(_ context.Context, id uuid.UUID) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, t := range f.db.tasks {
		if t.ID == id {
			return t.Incomplete(), nil
		}
	}
	return false, store.ErrTaskNotFound
}

func (f *fakeTasks) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, t := range f.db.tasks {
		if t.ID == id && t.DeletedAt == nil {
			t.DeletedAt = &at
			f.db.logUndo(ctx, func() { t.DeletedAt = nil })
			return nil
		}
	}
	return store.ErrTaskNotFound
}

// FindLatestInLineage treats insertion order as creation order.
func (f *fakeTasks) FindLatestInLineage(_ context.Context, lineage uuid.UUID) (*domain.TaskInstance, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i := len(f.db.tasks) - 1; i >= 0; i-- {
		if f.db.tasks[i].RecurrenceGroupID == lineage {
			return f.db.tasks[i], nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (f *fakeTasks) WithTx(*sql.Tx) store.TaskStore { return f }

type fakeTags struct{ db *memDB }

func (f *fakeTags) ResolveOrCreate(ctx context.Context, groupID uuid.UUID, name string) (uuid.UUID, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	k := fmt.Sprintf("%s/%s", groupID, name)
	if id, ok := f.db.tags[k]; ok {
		return id, nil
	}
	id := uuid.New()
	f.db.tags[k] = id
	f.db.logUndo(ctx, func() { delete(f.db.tags, k) })
	return id, nil
}

func (f *fakeTags) Attach(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	prev := f.db.attachments[taskID]
	merged := slices.Clone(prev)
	for _, id := range tagIDs {
		if !slices.Contains(merged, id) {
			merged = append(merged, id)
		}
	}
	f.db.attachments[taskID] = merged
	f.db.logUndo(ctx, func() {
		if prev == nil {
			delete(f.db.attachments, taskID)
			return
		}
		f.db.attachments[taskID] = prev
	})
	return nil
}

func (f *fakeTags) WithTx(*sql.Tx) store.TagStore { return f }

type fakeRoster struct{ db *memDB }

func (f *fakeRoster) ActiveMembers(_ context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return slices.Clone(f.db.members[groupID]), nil
}

// fakeHolidays treats listed dates as holidays and weekends as non-business days.
type fakeHolidays struct {
	days map[string]bool
}

func (f *fakeHolidays) IsHoliday(_ context.Context, date time.Time) (bool, error) {
	return f.days[date.Format(domain.DateLayout)], nil
}

func (f *fakeHolidays) NextBusinessDay(_ context.Context, date time.Time) (time.Time, error) {
	d := date
	for i := 0; i < 30; i++ {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday || f.days[d.Format(domain.DateLayout)] {
			continue
		}
		return d, nil
	}
	return time.Time{}, fmt.Errorf("no business day after %s", date.Format(domain.DateLayout))
}

// recordingHandler captures events delivered through the emitter.
type recordingHandler struct {
	mu     sync.Mutex
	events []*events.Event
}

func (h *recordingHandler) HandleEvent(_ context.Context, e *events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *recordingHandler) received() []*events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.events)
}
