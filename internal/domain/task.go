package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskInstance is a concrete group task materialized from a template.
type TaskInstance struct {
	ID                uuid.UUID  `json:"id"`
	GroupID           uuid.UUID  `json:"group_id"`
	UserID            uuid.UUID  `json:"user_id"`
	AssignedByUserID  uuid.UUID  `json:"assigned_by_user_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	RequiresImage     bool       `json:"requires_image"`
	RequiresApproval  bool       `json:"requires_approval"`
	Reward            int        `json:"reward"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	ScheduledTaskID   uuid.UUID  `json:"scheduled_task_id"`
	RecurrenceGroupID uuid.UUID  `json:"recurrence_group_id"`
	GroupTaskID       uuid.UUID  `json:"group_task_id"`
	IsCompleted       bool       `json:"is_completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// NewTaskInstance copies the template fields of st into a new task for the
// given schedule entry, assignee and occurrence instant.
func NewTaskInstance(st *ScheduledTask, scheduleIndex int, assignee uuid.UUID, occurrence time.Time) *TaskInstance {
	return &TaskInstance{
		ID:                uuid.New(),
		GroupID:           st.GroupID,
		UserID:            assignee,
		AssignedByUserID:  st.CreatedBy,
		Title:             st.Title,
		Description:       st.Description,
		RequiresImage:     st.RequiresImage,
		RequiresApproval:  st.RequiresApproval,
		Reward:            st.Reward,
		DueDate:           st.DueDate(occurrence),
		ScheduledTaskID:   st.ID,
		RecurrenceGroupID: st.LineageID(scheduleIndex),
		GroupTaskID:       uuid.New(),
		CreatedAt:         time.Now().UTC(),
	}
}

// Incomplete reports whether the task is still open: neither completed nor
// deleted.
func (t *TaskInstance) Incomplete() bool {
	return !t.IsCompleted && t.DeletedAt == nil
}
