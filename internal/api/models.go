package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
)

// ScheduleRequest is one schedule entry of a template request.
type ScheduleRequest struct {
	Type  string `json:"type"  validate:"required,oneof=daily weekly monthly"`
	Time  string `json:"time"  validate:"required"`
	Days  []int  `json:"days"  validate:"omitempty,dive,min=0,max=6"`
	Dates []int  `json:"dates" validate:"omitempty,dive,min=1,max=31"`
}

// ScheduledTaskRequest is the editable part of a template. PUT replaces every
// field, including the schedule set.
type ScheduledTaskRequest struct {
	Title                    string            `json:"title"                      validate:"required,max=255"`
	Description              string            `json:"description"                validate:"max=5000"`
	RequiresImage            bool              `json:"requires_image"`
	Reward                   int               `json:"reward"                     validate:"min=0,max=999999"`
	RequiresApproval         bool              `json:"requires_approval"`
	AssignedUserID           *string           `json:"assigned_user_id"           validate:"omitempty,uuid"`
	AutoAssign               bool              `json:"auto_assign"`
	Schedules                []ScheduleRequest `json:"schedules"                  validate:"required,min=1,dive"`
	DueDurationDays          *int              `json:"due_duration_days"          validate:"omitempty,min=0"`
	DueDurationHours         *int              `json:"due_duration_hours"         validate:"omitempty,min=0"`
	StartDate                string            `json:"start_date"                 validate:"required,datetime=2006-01-02"`
	EndDate                  *string           `json:"end_date"                   validate:"omitempty,datetime=2006-01-02"`
	Timezone                 string            `json:"timezone"                   validate:"omitempty,timezone"`
	SkipHolidays             bool              `json:"skip_holidays"`
	MoveToNextBusinessDay    bool              `json:"move_to_next_business_day"`
	DeleteIncompletePrevious bool              `json:"delete_incomplete_previous"`
	TagNames                 []string          `json:"tag_names"                  validate:"max=10,dive,max=50"`
}

// CreateScheduledTaskRequest adds the creating member to a template request.
type CreateScheduledTaskRequest struct {
	CreatedBy string `json:"created_by" validate:"required,uuid"`
	ScheduledTaskRequest
}

// toParams converts a validated request into domain parameters. Schedule and
// date errors are returned as domain validation errors.
func (req *ScheduledTaskRequest) toParams() (domain.ScheduledTaskParams, error) {
	p := domain.ScheduledTaskParams{
		Title:                    req.Title,
		Description:              req.Description,
		RequiresImage:            req.RequiresImage,
		Reward:                   req.Reward,
		RequiresApproval:         req.RequiresApproval,
		AutoAssign:               req.AutoAssign,
		DueDurationDays:          req.DueDurationDays,
		DueDurationHours:         req.DueDurationHours,
		Timezone:                 req.Timezone,
		SkipHolidays:             req.SkipHolidays,
		MoveToNextBusinessDay:    req.MoveToNextBusinessDay,
		DeleteIncompletePrevious: req.DeleteIncompletePrevious,
		TagNames:                 req.TagNames,
	}

	if req.AssignedUserID != nil {
		id, err := uuid.Parse(*req.AssignedUserID)
		if err != nil {
			return p, domain.NewValidationError("assigned_user_id", "has invalid format", domain.ErrInvalidID)
		}
		p.AssignedUserID = &id
	}

	for _, s := range req.Schedules {
		schedule, err := domain.ParseSchedule(domain.ScheduleKind(s.Type), s.Time, s.Days, s.Dates)
		if err != nil {
			return p, err
		}
		p.Schedules = append(p.Schedules, schedule)
	}

	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		return p, domain.NewValidationError("start_date", "must be YYYY-MM-DD", domain.ErrInvalidFormat)
	}
	p.StartDate = start
	if req.EndDate != nil {
		end, err := domain.ParseDate(*req.EndDate)
		if err != nil {
			return p, domain.NewValidationError("end_date", "must be YYYY-MM-DD", domain.ErrInvalidFormat)
		}
		p.EndDate = &end
	}
	return p, nil
}

// ScheduledTaskResponse is the API view of a template.
type ScheduledTaskResponse struct {
	ID                       uuid.UUID         `json:"id"`
	GroupID                  uuid.UUID         `json:"group_id"`
	CreatedBy                uuid.UUID         `json:"created_by"`
	Title                    string            `json:"title"`
	Description              string            `json:"description"`
	RequiresImage            bool              `json:"requires_image"`
	Reward                   int               `json:"reward"`
	RequiresApproval         bool              `json:"requires_approval"`
	AssignedUserID           *uuid.UUID        `json:"assigned_user_id,omitempty"`
	AutoAssign               bool              `json:"auto_assign"`
	Schedules                []domain.Schedule `json:"schedules"`
	DueDurationDays          *int              `json:"due_duration_days,omitempty"`
	DueDurationHours         *int              `json:"due_duration_hours,omitempty"`
	StartDate                string            `json:"start_date"`
	EndDate                  *string           `json:"end_date,omitempty"`
	Timezone                 string            `json:"timezone"`
	SkipHolidays             bool              `json:"skip_holidays"`
	MoveToNextBusinessDay    bool              `json:"move_to_next_business_day"`
	DeleteIncompletePrevious bool              `json:"delete_incomplete_previous"`
	TagNames                 []string          `json:"tag_names"`
	IsActive                 bool              `json:"is_active"`
	Paused                   bool              `json:"paused"`
	PausedAt                 *time.Time        `json:"paused_at,omitempty"`
	CreatedAt                time.Time         `json:"created_at"`
	UpdatedAt                time.Time         `json:"updated_at"`
}

func scheduledTaskToResponse(st *domain.ScheduledTask) ScheduledTaskResponse {
	resp := ScheduledTaskResponse{
		ID:                       st.ID,
		GroupID:                  st.GroupID,
		CreatedBy:                st.CreatedBy,
		Title:                    st.Title,
		Description:              st.Description,
		RequiresImage:            st.RequiresImage,
		Reward:                   st.Reward,
		RequiresApproval:         st.RequiresApproval,
		AssignedUserID:           st.AssignedUserID,
		AutoAssign:               st.AutoAssign,
		Schedules:                st.Schedules,
		DueDurationDays:          st.DueDurationDays,
		DueDurationHours:         st.DueDurationHours,
		StartDate:                st.StartDate.Format(domain.DateLayout),
		Timezone:                 st.Timezone,
		SkipHolidays:             st.SkipHolidays,
		MoveToNextBusinessDay:    st.MoveToNextBusinessDay,
		DeleteIncompletePrevious: st.DeleteIncompletePrevious,
		TagNames:                 st.TagNames,
		IsActive:                 st.IsActive,
		Paused:                   st.PausedAt != nil,
		PausedAt:                 st.PausedAt,
		CreatedAt:                st.CreatedAt,
		UpdatedAt:                st.UpdatedAt,
	}
	if st.EndDate != nil {
		end := st.EndDate.Format(domain.DateLayout)
		resp.EndDate = &end
	}
	if resp.TagNames == nil {
		resp.TagNames = []string{}
	}
	return resp
}

// ExecutionResponse is the API view of one execution record.
type ExecutionResponse struct {
	ID             uuid.UUID              `json:"id"`
	ScheduleKey    uuid.UUID              `json:"schedule_key"`
	ScheduleIndex  int                    `json:"schedule_index"`
	OccurrenceDate string                 `json:"occurrence_date"`
	AdjustedDate   string                 `json:"adjusted_date"`
	Status         domain.ExecutionStatus `json:"status"`
	CreatedTaskID  *uuid.UUID             `json:"created_task_id,omitempty"`
	DeletedTaskID  *uuid.UUID             `json:"deleted_task_id,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Note           string                 `json:"note,omitempty"`
	ExecutedAt     time.Time              `json:"executed_at"`
}

func executionToResponse(e *domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:             e.ID,
		ScheduleKey:    e.ScheduleKey,
		ScheduleIndex:  e.ScheduleIndex,
		OccurrenceDate: e.OccurrenceDate.Format(domain.DateLayout),
		AdjustedDate:   e.AdjustedDate.Format(domain.DateLayout),
		Status:         e.Status,
		CreatedTaskID:  e.CreatedTaskID,
		DeletedTaskID:  e.DeletedTaskID,
		ErrorMessage:   e.ErrorMessage,
		Note:           e.Note,
		ExecutedAt:     e.ExecutedAt,
	}
}

// ExecutionHistoryResponse wraps a page of execution records.
type ExecutionHistoryResponse struct {
	ScheduledTaskID uuid.UUID           `json:"scheduled_task_id"`
	Limit           int                 `json:"limit"`
	Executions      []ExecutionResponse `json:"executions"`
}

// RunBatchRequest is the body of a manual batch trigger. An empty date means
// today in the batch time zone.
type RunBatchRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}
