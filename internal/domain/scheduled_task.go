package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Template field limits.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 5000
	MaxReward            = 999999
	MaxTags              = 10
	MaxTagLength         = 50
)

// DefaultTimezone is used when neither the template nor configuration names one.
const DefaultTimezone = "Asia/Tokyo"

// Common validation errors for ScheduledTask
var (
	ErrEmptyScheduledTaskID = errors.New("scheduled task ID cannot be empty")
	ErrEmptyGroupID         = errors.New("group ID cannot be empty")
	ErrEmptyCreatorID       = errors.New("creator ID cannot be empty")
	ErrEmptyTitle           = errors.New("title cannot be empty")
	ErrNoSchedules          = errors.New("at least one schedule is required")
)

// ScheduledTask is a recurring task template owned by a group. Each of its
// schedules independently materializes task instances on matching dates.
type ScheduledTask struct {
	ID        uuid.UUID `json:"id"`
	GroupID   uuid.UUID `json:"group_id"`
	CreatedBy uuid.UUID `json:"created_by"`

	Title            string `json:"title"`
	Description      string `json:"description"`
	RequiresImage    bool   `json:"requires_image"`
	Reward           int    `json:"reward"`
	RequiresApproval bool   `json:"requires_approval"`

	AssignedUserID *uuid.UUID `json:"assigned_user_id,omitempty"`
	AutoAssign     bool       `json:"auto_assign"`

	Schedules []Schedule `json:"schedules"`

	DueDurationDays  *int `json:"due_duration_days,omitempty"`
	DueDurationHours *int `json:"due_duration_hours,omitempty"`

	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Timezone  string     `json:"timezone"`

	SkipHolidays             bool `json:"skip_holidays"`
	MoveToNextBusinessDay    bool `json:"move_to_next_business_day"`
	DeleteIncompletePrevious bool `json:"delete_incomplete_previous"`

	TagNames []string `json:"tag_names"`

	IsActive  bool       `json:"is_active"`
	PausedAt  *time.Time `json:"paused_at,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ScheduledTaskParams holds the editable fields of a template. It is used for
// both creation and full replacement on update.
type ScheduledTaskParams struct {
	Title                    string
	Description              string
	RequiresImage            bool
	Reward                   int
	RequiresApproval         bool
	AssignedUserID           *uuid.UUID
	AutoAssign               bool
	Schedules                []Schedule
	DueDurationDays          *int
	DueDurationHours         *int
	StartDate                time.Time
	EndDate                  *time.Time
	Timezone                 string
	SkipHolidays             bool
	MoveToNextBusinessDay    bool
	DeleteIncompletePrevious bool
	TagNames                 []string
}

// NewScheduledTask creates an active template for the group.
// Returns an error if validation fails.
func NewScheduledTask(groupID, createdBy uuid.UUID, p ScheduledTaskParams) (*ScheduledTask, error) {
	now := time.Now().UTC()
	t := &ScheduledTask{
		ID:        uuid.New(),
		GroupID:   groupID,
		CreatedBy: createdBy,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.apply(p)

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Replace overwrites the editable fields, including the schedule set, and
// validates the result. On failure the template is left unchanged.
func (t *ScheduledTask) Replace(p ScheduledTaskParams) error {
	candidate := *t
	candidate.apply(p)
	if err := candidate.Validate(); err != nil {
		return err
	}
	candidate.UpdatedAt = time.Now().UTC()
	*t = candidate
	return nil
}

func (t *ScheduledTask) apply(p ScheduledTaskParams) {
	t.Title = strings.TrimSpace(p.Title)
	t.Description = p.Description
	t.RequiresImage = p.RequiresImage
	t.Reward = p.Reward
	t.RequiresApproval = p.RequiresApproval
	t.AssignedUserID = p.AssignedUserID
	t.AutoAssign = p.AutoAssign
	t.Schedules = slices.Clone(p.Schedules)
	t.DueDurationDays = p.DueDurationDays
	t.DueDurationHours = p.DueDurationHours
	t.StartDate = CivilDate(p.StartDate)
	t.EndDate = nil
	if p.EndDate != nil {
		end := CivilDate(*p.EndDate)
		t.EndDate = &end
	}
	t.Timezone = p.Timezone
	if t.Timezone == "" {
		t.Timezone = DefaultTimezone
	}
	t.SkipHolidays = p.SkipHolidays
	t.MoveToNextBusinessDay = p.MoveToNextBusinessDay
	t.DeleteIncompletePrevious = p.DeleteIncompletePrevious
	t.TagNames = normalizeTagNames(p.TagNames)
}

// Validate checks if the ScheduledTask has valid data.
// Returns an error if any field fails validation.
func (t *ScheduledTask) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyScheduledTaskID
	}
	if t.GroupID == uuid.Nil {
		return ErrEmptyGroupID
	}
	if t.CreatedBy == uuid.Nil {
		return ErrEmptyCreatorID
	}
	if t.Title == "" {
		return NewValidationError("title", "is required", ErrEmptyTitle)
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return NewValidationError("title", "is too long", ErrInvalidFormat)
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return NewValidationError("description", "is too long", ErrInvalidFormat)
	}
	if t.Reward < 0 || t.Reward > MaxReward {
		return NewValidationError("reward", "is out of range", ErrInvalidFormat)
	}

	hasAssignee := t.AssignedUserID != nil && *t.AssignedUserID != uuid.Nil
	if hasAssignee == t.AutoAssign {
		return NewValidationError("assignment", "requires exactly one of assigned_user_id or auto_assign", ErrInvalidAssignment)
	}

	if len(t.Schedules) == 0 {
		return NewValidationError("schedules", "is required", ErrNoSchedules)
	}
	for _, s := range t.Schedules {
		if s.IsZero() {
			return NewValidationError("schedules", "contains an empty schedule", ErrInvalidSchedule)
		}
	}

	if t.DueDurationDays != nil && *t.DueDurationDays < 0 {
		return NewValidationError("due_duration_days", "must not be negative", ErrInvalidFormat)
	}
	if t.DueDurationHours != nil && *t.DueDurationHours < 0 {
		return NewValidationError("due_duration_hours", "must not be negative", ErrInvalidFormat)
	}

	if t.StartDate.IsZero() {
		return NewValidationError("start_date", "is required", ErrInvalidDateRange)
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return NewValidationError("end_date", "must not precede start_date", ErrInvalidDateRange)
	}
	if _, err := time.LoadLocation(t.Timezone); err != nil {
		return NewValidationError("timezone", "is not a known IANA zone", ErrInvalidFormat)
	}

	if t.SkipHolidays && t.MoveToNextBusinessDay {
		return NewValidationError("holiday_policy", "cannot both skip and move", ErrConflictingHolidayPolicy)
	}

	if len(t.TagNames) > MaxTags {
		return NewValidationError("tag_names", "has too many tags", ErrInvalidFormat)
	}
	for _, name := range t.TagNames {
		if utf8.RuneCountInString(name) > MaxTagLength {
			return NewValidationError("tag_names", "contains a tag that is too long", ErrInvalidFormat)
		}
	}
	return nil
}

// Runnable reports whether the batch runner may consider the template at all.
// Inactive, paused and deleted templates are invisible to the runner.
func (t *ScheduledTask) Runnable() bool {
	return t.IsActive && t.PausedAt == nil && t.DeletedAt == nil
}

// InWindow reports whether the civil date lies within [StartDate, EndDate].
func (t *ScheduledTask) InWindow(date time.Time) bool {
	d := CivilDate(date)
	if d.Before(t.StartDate) {
		return false
	}
	return t.EndDate == nil || !d.After(*t.EndDate)
}

// Location returns the template's time zone, falling back to UTC if the
// stored name cannot be loaded.
func (t *ScheduledTask) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DueDate returns the due instant for an occurrence at the given instant, or
// nil when the template defines no due offset.
func (t *ScheduledTask) DueDate(occurrence time.Time) *time.Time {
	if t.DueDurationDays == nil && t.DueDurationHours == nil {
		return nil
	}
	due := occurrence
	if t.DueDurationDays != nil {
		due = due.AddDate(0, 0, *t.DueDurationDays)
	}
	if t.DueDurationHours != nil {
		due = due.Add(time.Duration(*t.DueDurationHours) * time.Hour)
	}
	due = due.UTC()
	return &due
}

// Pause stops all future firing without deleting the template.
func (t *ScheduledTask) Pause(at time.Time) {
	at = at.UTC()
	t.PausedAt = &at
	t.UpdatedAt = at
}

// Resume clears a previous pause.
func (t *ScheduledTask) Resume(at time.Time) {
	t.PausedAt = nil
	t.UpdatedAt = at.UTC()
}

// LineageID returns the recurrence group identifier shared by every task
// instance and execution record produced by one schedule entry of this
// template. It is derived from the entry's rule, not its position, so
// reordering or removing other entries leaves it unchanged. Editing a rule
// starts a new lineage. Identical rules are told apart by their order among
// themselves.
func (t *ScheduledTask) LineageID(scheduleIndex int) uuid.UUID {
	key := t.Schedules[scheduleIndex].Key()
	twins := 0
	for _, s := range t.Schedules[:scheduleIndex] {
		if s.Key() == key {
			twins++
		}
	}
	if twins > 0 {
		key = fmt.Sprintf("%s#%d", key, twins)
	}
	return uuid.NewSHA1(t.ID, []byte(key))
}

func normalizeTagNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}
