package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/batch"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockScheduledTaskService mocks service.ScheduledTaskService
type MockScheduledTaskService struct {
	mock.Mock
}

func (m *MockScheduledTaskService) Create(
	ctx context.Context,
	groupID, createdBy uuid.UUID,
	p domain.ScheduledTaskParams,
) (*domain.ScheduledTask, error) {
	args := m.Called(ctx, groupID, createdBy, p)
	return taskOrNil(args.Get(0)), args.Error(1)
}

func (m *MockScheduledTaskService) Update(ctx context.Context, id uuid.UUID, p domain.ScheduledTaskParams) (*domain.ScheduledTask, error) {
	args := m.Called(ctx, id, p)
	return taskOrNil(args.Get(0)), args.Error(1)
}

func (m *MockScheduledTaskService) Pause(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error) {
	args := m.Called(ctx, id)
	return taskOrNil(args.Get(0)), args.Error(1)
}

func (m *MockScheduledTaskService) Resume(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error) {
	args := m.Called(ctx, id)
	return taskOrNil(args.Get(0)), args.Error(1)
}

func (m *MockScheduledTaskService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockScheduledTaskService) Get(ctx context.Context, id uuid.UUID) (*domain.ScheduledTask, error) {
	args := m.Called(ctx, id)
	return taskOrNil(args.Get(0)), args.Error(1)
}

func (m *MockScheduledTaskService) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.ScheduledTask, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduledTask), args.Error(1)
}

func (m *MockScheduledTaskService) ExecutionHistory(ctx context.Context, id uuid.UUID, limit int) ([]*domain.Execution, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Execution), args.Error(1)
}

func taskOrNil(v interface{}) *domain.ScheduledTask {
	if v == nil {
		return nil
	}
	return v.(*domain.ScheduledTask)
}

// MockBatchRunner mocks BatchRunner
type MockBatchRunner struct {
	mock.Mock
}

func (m *MockBatchRunner) RunDailyBatch(ctx context.Context, date time.Time) (*batch.Summary, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Summary), args.Error(1)
}
