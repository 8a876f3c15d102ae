package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockScheduledTaskStore mocks the store.ScheduledTaskStore interface
type MockScheduledTaskStore struct {
	mock.Mock
}

func (m *MockScheduledTaskStore) Create(ctx context.Context, st *domain.ScheduledTask) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *MockScheduledTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduledTask), args.Error(1)
}

func (m *MockScheduledTaskStore) Update(ctx context.Context, st *domain.ScheduledTask) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *MockScheduledTaskStore) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockScheduledTaskStore) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.ScheduledTask, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduledTask), args.Error(1)
}

func (m *MockScheduledTaskStore) ListRunnable(ctx context.Context, from, to time.Time) ([]*domain.ScheduledTask, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduledTask), args.Error(1)
}

// WithTx returns the mock itself so expectations apply inside transactions.
func (m *MockScheduledTaskStore) WithTx(*sql.Tx) store.ScheduledTaskStore {
	return m
}

// MockExecutionStore mocks the store.ExecutionStore interface
type MockExecutionStore struct {
	mock.Mock
}

func (m *MockExecutionStore) Record(ctx context.Context, e *domain.Execution) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockExecutionStore) HasTerminal(ctx context.Context, key domain.OccurrenceKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockExecutionStore) ListByScheduledTask(
	ctx context.Context,
	scheduledTaskID uuid.UUID,
	limit int,
) ([]*domain.Execution, error) {
	args := m.Called(ctx, scheduledTaskID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Execution), args.Error(1)
}

func (m *MockExecutionStore) WithTx(*sql.Tx) store.ExecutionStore {
	return m
}

// passthroughTransactor runs fn without a real transaction.
type passthroughTransactor struct {
	calls int
}

func (p *passthroughTransactor) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	p.calls++
	return fn(ctx, nil)
}
