package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/chorecast/internal/domain"
)

// DefaultMaxShiftDays bounds how far a holiday move may push an occurrence.
const DefaultMaxShiftDays = 14

// Common errors
var (
	ErrNilHolidayResolver  = errors.New("holiday resolver cannot be nil")
	ErrNilScheduledTask    = errors.New("scheduled task cannot be nil")
	ErrScheduleOutOfRange  = errors.New("schedule index out of range")
	ErrShiftLimitExceeded  = errors.New("no business day within shift limit")
	ErrHolidayLookupFailed = errors.New("holiday lookup failed")
)

// HolidayResolver answers calendar questions for the scheduler.
type HolidayResolver interface {
	// IsHoliday reports whether the civil date is a public or custom holiday.
	IsHoliday(ctx context.Context, date time.Time) (bool, error)

	// NextBusinessDay returns the first business day strictly after date.
	NextBusinessDay(ctx context.Context, date time.Time) (time.Time, error)
}

// Reason explains an evaluation result.
type Reason string

// Evaluation reasons
const (
	ReasonMatched     Reason = "matched"
	ReasonMoved       Reason = "holiday-move"
	ReasonHolidaySkip Reason = "holiday-skip"
	ReasonNoMatch     Reason = "no-match"
	ReasonOutOfWindow Reason = "out-of-window"
	ReasonFailed      Reason = "failed"
)

// Occurrence is the result of evaluating one schedule entry on one date.
type Occurrence struct {
	ScheduleIndex int
	// NaturalDate is the date the base rule was evaluated against.
	NaturalDate time.Time
	// AdjustedDate is NaturalDate after any holiday move.
	AdjustedDate time.Time
	// At is the occurrence instant: AdjustedDate at the schedule's time of
	// day in the template's time zone. Zero unless Fires.
	At     time.Time
	Fires  bool
	Reason Reason
	// Err is set when the date could not be evaluated. The occurrence is
	// still keyed by NaturalDate so the failure is recorded against it.
	Err error
}

// Key returns the idempotency key for the occurrence.
func (o Occurrence) Key(st *domain.ScheduledTask) domain.OccurrenceKey {
	return domain.OccurrenceKey{
		ScheduledTaskID: st.ID,
		OccurrenceDate:  o.NaturalDate,
		ScheduleKey:     st.LineageID(o.ScheduleIndex),
		ScheduleIndex:   o.ScheduleIndex,
	}
}

// Calculator evaluates schedule entries against dates.
type Calculator struct {
	holidays     HolidayResolver
	maxShiftDays int
}

// NewCalculator creates a Calculator. A non-positive maxShiftDays selects
// DefaultMaxShiftDays.
func NewCalculator(holidays HolidayResolver, maxShiftDays int) (*Calculator, error) {
	if holidays == nil {
		return nil, ErrNilHolidayResolver
	}
	if maxShiftDays <= 0 {
		maxShiftDays = DefaultMaxShiftDays
	}
	return &Calculator{holidays: holidays, maxShiftDays: maxShiftDays}, nil
}

// MaxShiftDays returns the configured move bound.
func (c *Calculator) MaxShiftDays() int {
	return c.maxShiftDays
}

// Evaluate decides whether schedule entry idx of st fires on date.
func (c *Calculator) Evaluate(
	ctx context.Context,
	st *domain.ScheduledTask,
	idx int,
	date time.Time,
) (Occurrence, error) {
	if st == nil {
		return Occurrence{}, ErrNilScheduledTask
	}
	if idx < 0 || idx >= len(st.Schedules) {
		return Occurrence{}, fmt.Errorf("%w: %d", ErrScheduleOutOfRange, idx)
	}

	date = domain.CivilDate(date)
	occ := Occurrence{ScheduleIndex: idx, NaturalDate: date, AdjustedDate: date}
	schedule := st.Schedules[idx]

	if !st.InWindow(date) {
		occ.Reason = ReasonOutOfWindow
		return occ, nil
	}
	if !schedule.Matches(date) {
		occ.Reason = ReasonNoMatch
		return occ, nil
	}

	occ.Reason = ReasonMatched
	if st.SkipHolidays || st.MoveToNextBusinessDay {
		holiday, err := c.holidays.IsHoliday(ctx, date)
		if err != nil {
			return Occurrence{}, fmt.Errorf("%w: %w", ErrHolidayLookupFailed, err)
		}
		switch {
		case holiday && st.SkipHolidays:
			occ.Reason = ReasonHolidaySkip
			return occ, nil
		case holiday && st.MoveToNextBusinessDay:
			next, err := c.holidays.NextBusinessDay(ctx, date)
			if err != nil {
				return Occurrence{}, fmt.Errorf("%w: %w", ErrHolidayLookupFailed, err)
			}
			next = domain.CivilDate(next)
			if shift := domain.DaysBetween(date, next); shift <= 0 || shift > c.maxShiftDays {
				return Occurrence{}, fmt.Errorf("%w: %s shifted by %d days", ErrShiftLimitExceeded, date.Format(domain.DateLayout), shift)
			}
			occ.AdjustedDate = next
			occ.Reason = ReasonMoved
		}
	}

	occ.Fires = true
	occ.At = schedule.At().On(occ.AdjustedDate, st.Location())
	return occ, nil
}

// OccurrencesOn returns the occurrences of schedule entry idx that the batch
// for runDate must handle: fired occurrences whose adjusted date is runDate,
// and a holiday skip whose natural date is runDate. Moved occurrences are
// found by looking back over natural dates up to the shift bound, so a
// re-run of any date reproduces the same result.
//
// A date that cannot be evaluated does not hide the others. It is returned
// as an occurrence with Err set and Reason ReasonFailed. A shift limit
// failure is reported only by the run for its own natural date, since its
// outcome does not depend on the run date. Other failures on earlier dates
// are reported by every run that looks back over them, because the moved
// occurrence might have landed on runDate.
func (c *Calculator) OccurrencesOn(
	ctx context.Context,
	st *domain.ScheduledTask,
	idx int,
	runDate time.Time,
) ([]Occurrence, error) {
	if st == nil {
		return nil, ErrNilScheduledTask
	}
	if idx < 0 || idx >= len(st.Schedules) {
		return nil, fmt.Errorf("%w: %d", ErrScheduleOutOfRange, idx)
	}
	runDate = domain.CivilDate(runDate)

	lookback := 0
	if st.MoveToNextBusinessDay {
		lookback = c.maxShiftDays
	}

	var out []Occurrence
	// Oldest natural date first so records are written in calendar order.
	for back := lookback; back >= 0; back-- {
		natural := runDate.AddDate(0, 0, -back)
		occ, err := c.Evaluate(ctx, st, idx, natural)
		if err != nil {
			if back > 0 && errors.Is(err, ErrShiftLimitExceeded) {
				continue
			}
			out = append(out, Occurrence{
				ScheduleIndex: idx,
				NaturalDate:   natural,
				AdjustedDate:  natural,
				Reason:        ReasonFailed,
				Err:           err,
			})
			continue
		}
		switch {
		case occ.Fires && occ.AdjustedDate.Equal(runDate):
			out = append(out, occ)
		case back == 0 && occ.Reason == ReasonHolidaySkip:
			out = append(out, occ)
		}
	}
	return out, nil
}
