package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// TypeTaskMaterialized is emitted after a task instance is created from
	// a template and its success record is committed.
	TypeTaskMaterialized = "task.materialized"

	// TypeOccurrenceSkipped is emitted after a skipped execution record is
	// committed, either for a holiday or an incomplete previous instance.
	TypeOccurrenceSkipped = "occurrence.skipped"
)

// Event represents something that happened in the scheduler.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type identifies the payload shape
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// TaskMaterialized is the payload of TypeTaskMaterialized.
type TaskMaterialized struct {
	TaskID          uuid.UUID  `json:"task_id"`
	ScheduledTaskID uuid.UUID  `json:"scheduled_task_id"`
	GroupID         uuid.UUID  `json:"group_id"`
	AssigneeID      uuid.UUID  `json:"assignee_id"`
	ScheduleIndex   int        `json:"schedule_index"`
	OccurrenceDate  string     `json:"occurrence_date"`
	DeletedTaskID   *uuid.UUID `json:"deleted_task_id,omitempty"`
}

// OccurrenceSkipped is the payload of TypeOccurrenceSkipped. Note is one of
// the domain skip notes.
type OccurrenceSkipped struct {
	ScheduledTaskID uuid.UUID `json:"scheduled_task_id"`
	GroupID         uuid.UUID `json:"group_id"`
	ScheduleIndex   int       `json:"schedule_index"`
	OccurrenceDate  string    `json:"occurrence_date"`
	AdjustedDate    string    `json:"adjusted_date"`
	Note            string    `json:"note"`
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
