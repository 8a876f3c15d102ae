package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ScheduleKind identifies the recurrence variant of a Schedule.
type ScheduleKind string

// Supported schedule kinds.
const (
	ScheduleDaily   ScheduleKind = "daily"
	ScheduleWeekly  ScheduleKind = "weekly"
	ScheduleMonthly ScheduleKind = "monthly"
)

// Schedule is one recurrence rule of a scheduled task. It is a closed sum
// type: the only way to obtain a valid value is through NewDailySchedule,
// NewWeeklySchedule, NewMonthlySchedule or JSON decoding, each of which
// enforces the fields its variant requires.
type Schedule struct {
	kind      ScheduleKind
	at        TimeOfDay
	weekdays  []time.Weekday
	monthDays []int
}

// NewDailySchedule creates a schedule that fires every day at the given time.
func NewDailySchedule(at TimeOfDay) (Schedule, error) {
	if !at.Valid() {
		return Schedule{}, NewValidationError("time", "is out of range", ErrInvalidSchedule)
	}
	return Schedule{kind: ScheduleDaily, at: at}, nil
}

// NewWeeklySchedule creates a schedule that fires on the given weekdays.
// At least one weekday is required; duplicates are collapsed.
func NewWeeklySchedule(at TimeOfDay, days ...time.Weekday) (Schedule, error) {
	if !at.Valid() {
		return Schedule{}, NewValidationError("time", "is out of range", ErrInvalidSchedule)
	}
	if len(days) == 0 {
		return Schedule{}, NewValidationError("days", "must not be empty for a weekly schedule", ErrInvalidSchedule)
	}
	set := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return Schedule{}, NewValidationError("days", fmt.Sprintf("contains invalid weekday %d", d), ErrInvalidSchedule)
		}
		if !slices.Contains(set, d) {
			set = append(set, d)
		}
	}
	slices.Sort(set)
	return Schedule{kind: ScheduleWeekly, at: at, weekdays: set}, nil
}

// NewMonthlySchedule creates a schedule that fires on the given days of the
// month. Days beyond a month's length never fire in that month.
func NewMonthlySchedule(at TimeOfDay, dates ...int) (Schedule, error) {
	if !at.Valid() {
		return Schedule{}, NewValidationError("time", "is out of range", ErrInvalidSchedule)
	}
	if len(dates) == 0 {
		return Schedule{}, NewValidationError("dates", "must not be empty for a monthly schedule", ErrInvalidSchedule)
	}
	set := make([]int, 0, len(dates))
	for _, d := range dates {
		if d < 1 || d > 31 {
			return Schedule{}, NewValidationError("dates", fmt.Sprintf("contains invalid day of month %d", d), ErrInvalidSchedule)
		}
		if !slices.Contains(set, d) {
			set = append(set, d)
		}
	}
	slices.Sort(set)
	return Schedule{kind: ScheduleMonthly, at: at, monthDays: set}, nil
}

// Kind returns the schedule variant.
func (s Schedule) Kind() ScheduleKind { return s.kind }

// At returns the time of day the schedule fires.
func (s Schedule) At() TimeOfDay { return s.at }

// Weekdays returns a copy of the weekday set of a weekly schedule.
func (s Schedule) Weekdays() []time.Weekday { return slices.Clone(s.weekdays) }

// MonthDays returns a copy of the day-of-month set of a monthly schedule.
func (s Schedule) MonthDays() []int { return slices.Clone(s.monthDays) }

// Key returns a canonical text form of the rule. Equal rules have equal
// keys regardless of how their weekday or date sets were listed.
func (s Schedule) Key() string {
	var b strings.Builder
	b.WriteString(string(s.kind))
	b.WriteByte('@')
	b.WriteString(s.at.String())
	for _, d := range s.weekdays {
		fmt.Fprintf(&b, ":%d", d)
	}
	for _, d := range s.monthDays {
		fmt.Fprintf(&b, ":%d", d)
	}
	return b.String()
}

// IsZero reports whether the schedule was never constructed.
func (s Schedule) IsZero() bool { return s.kind == "" }

// Matches reports whether the base rule fires on the given calendar date.
// It ignores validity windows and holidays.
func (s Schedule) Matches(date time.Time) bool {
	switch s.kind {
	case ScheduleDaily:
		return true
	case ScheduleWeekly:
		return slices.Contains(s.weekdays, date.Weekday())
	case ScheduleMonthly:
		return slices.Contains(s.monthDays, date.Day())
	default:
		return false
	}
}

// scheduleJSON is the wire form shared with API clients and the JSONB column.
type scheduleJSON struct {
	Type  ScheduleKind `json:"type"`
	Time  string       `json:"time"`
	Days  []int        `json:"days,omitempty"`
	Dates []int        `json:"dates,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s Schedule) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return nil, fmt.Errorf("%w: cannot encode an empty schedule", ErrInvalidSchedule)
	}
	out := scheduleJSON{Type: s.kind, Time: s.at.String(), Dates: s.monthDays}
	for _, d := range s.weekdays {
		out.Days = append(out.Days, int(d))
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler and validates the variant.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	var in scheduleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	parsed, err := ParseSchedule(in.Type, in.Time, in.Days, in.Dates)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSchedule builds a Schedule from loosely typed fields, as received from
// API requests. Fields that do not belong to the requested kind are rejected.
func ParseSchedule(kind ScheduleKind, at string, days []int, dates []int) (Schedule, error) {
	tod, err := ParseTimeOfDay(at)
	if err != nil {
		return Schedule{}, NewValidationError("time", "must be HH:MM", ErrInvalidSchedule)
	}

	switch kind {
	case ScheduleDaily:
		if len(days) > 0 || len(dates) > 0 {
			return Schedule{}, NewValidationError("type", "daily schedules take no days or dates", ErrInvalidSchedule)
		}
		return NewDailySchedule(tod)
	case ScheduleWeekly:
		if len(dates) > 0 {
			return Schedule{}, NewValidationError("dates", "not allowed for a weekly schedule", ErrInvalidSchedule)
		}
		weekdays := make([]time.Weekday, 0, len(days))
		for _, d := range days {
			weekdays = append(weekdays, time.Weekday(d))
		}
		return NewWeeklySchedule(tod, weekdays...)
	case ScheduleMonthly:
		if len(days) > 0 {
			return Schedule{}, NewValidationError("days", "not allowed for a monthly schedule", ErrInvalidSchedule)
		}
		return NewMonthlySchedule(tod, dates...)
	default:
		return Schedule{}, NewValidationError("type", fmt.Sprintf("unknown schedule type %q", kind), ErrInvalidSchedule)
	}
}
