package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	payload := TaskMaterialized{
		TaskID:          uuid.New(),
		ScheduledTaskID: uuid.New(),
		GroupID:         uuid.New(),
		AssigneeID:      uuid.New(),
		ScheduleIndex:   1,
		OccurrenceDate:  "2025-01-06",
	}

	event, err := NewEvent(TypeTaskMaterialized, payload)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeTaskMaterialized, event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)
	assert.NotContains(t, string(event.Payload), "deleted_task_id")

	var decoded TaskMaterialized
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewEventUnencodablePayload(t *testing.T) {
	_, err := NewEvent("broken", make(chan int))
	assert.Error(t, err)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *Event
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}
