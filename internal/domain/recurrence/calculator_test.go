package recurrence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHolidays is a calendar backed by a fixed set of dates.
type fakeHolidays struct {
	days     map[string]bool
	weekends bool
	err      error
	calls    int
}

func newFakeHolidays(dates ...string) *fakeHolidays {
	f := &fakeHolidays{days: map[string]bool{}, weekends: true}
	for _, d := range dates {
		f.days[d] = true
	}
	return f
}

func (f *fakeHolidays) IsHoliday(_ context.Context, date time.Time) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.days[date.Format(domain.DateLayout)], nil
}

func (f *fakeHolidays) NextBusinessDay(_ context.Context, date time.Time) (time.Time, error) {
	if f.err != nil {
		return time.Time{}, f.err
	}
	d := date
	for i := 0; i < 60; i++ {
		d = d.AddDate(0, 0, 1)
		weekend := d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
		if f.days[d.Format(domain.DateLayout)] || (f.weekends && weekend) {
			continue
		}
		return d, nil
	}
	return time.Time{}, errors.New("calendar exhausted")
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func at(h, m int) domain.TimeOfDay { return domain.TimeOfDay{Hour: h, Minute: m} }

func newTemplate(t *testing.T, start string, schedules ...domain.Schedule) *domain.ScheduledTask {
	t.Helper()
	st, err := domain.NewScheduledTask(uuid.New(), uuid.New(), domain.ScheduledTaskParams{
		Title:      "Take out the trash",
		AutoAssign: true,
		Schedules:  schedules,
		StartDate:  date(t, start),
		Timezone:   "Asia/Tokyo",
	})
	require.NoError(t, err)
	return st
}

func TestNewCalculator(t *testing.T) {
	t.Parallel()

	_, err := NewCalculator(nil, 14)
	assert.ErrorIs(t, err, ErrNilHolidayResolver)

	c, err := NewCalculator(newFakeHolidays(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxShiftDays, c.MaxShiftDays())
}

func TestEvaluate_WeeklyFiresOnlyOnListedWeekdays(t *testing.T) {
	t.Parallel()

	weekly, err := domain.NewWeeklySchedule(at(9, 0), time.Monday, time.Wednesday)
	require.NoError(t, err)
	st := newTemplate(t, "2025-01-01", weekly)
	c, err := NewCalculator(newFakeHolidays(), 14)
	require.NoError(t, err)

	d := date(t, "2025-01-01")
	for i := 0; i < 366; i++ {
		occ, err := c.Evaluate(context.Background(), st, 0, d)
		require.NoError(t, err)
		want := d.Weekday() == time.Monday || d.Weekday() == time.Wednesday
		assert.Equal(t, want, occ.Fires, "date %s", d.Format(domain.DateLayout))
		d = d.AddDate(0, 0, 1)
	}
}

func TestEvaluate_MonthlyDoesNotClamp(t *testing.T) {
	t.Parallel()

	monthly, err := domain.NewMonthlySchedule(at(8, 0), 31)
	require.NoError(t, err)
	st := newTemplate(t, "2025-01-01", monthly)
	c, err := NewCalculator(newFakeHolidays(), 14)
	require.NoError(t, err)

	tests := []struct {
		date  string
		fires bool
	}{
		{"2025-01-31", true},
		{"2025-02-28", false},
		{"2025-04-30", false},
		{"2025-05-31", true},
	}
	for _, tc := range tests {
		occ, err := c.Evaluate(context.Background(), st, 0, date(t, tc.date))
		require.NoError(t, err)
		assert.Equal(t, tc.fires, occ.Fires, tc.date)
	}
}

func TestEvaluate_Window(t *testing.T) {
	t.Parallel()

	daily, err := domain.NewDailySchedule(at(7, 30))
	require.NoError(t, err)
	st := newTemplate(t, "2025-03-10", daily)
	end := date(t, "2025-03-20")
	st.EndDate = &end
	c, err := NewCalculator(newFakeHolidays(), 14)
	require.NoError(t, err)

	tests := []struct {
		name   string
		date   string
		fires  bool
		reason Reason
	}{
		{"before start", "2025-03-09", false, ReasonOutOfWindow},
		{"on start", "2025-03-10", true, ReasonMatched},
		{"inside", "2025-03-15", true, ReasonMatched},
		{"on end", "2025-03-20", true, ReasonMatched},
		{"after end", "2025-03-21", false, ReasonOutOfWindow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			occ, err := c.Evaluate(context.Background(), st, 0, date(t, tc.date))
			require.NoError(t, err)
			assert.Equal(t, tc.fires, occ.Fires)
			assert.Equal(t, tc.reason, occ.Reason)
		})
	}
}

func TestEvaluate_OccurrenceInstantUsesTemplateZone(t *testing.T) {
	t.Parallel()

	daily, err := domain.NewDailySchedule(at(9, 0))
	require.NoError(t, err)
	st := newTemplate(t, "2025-01-01", daily)
	c, err := NewCalculator(newFakeHolidays(), 14)
	require.NoError(t, err)

	occ, err := c.Evaluate(context.Background(), st, 0, date(t, "2025-01-06"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), occ.At.UTC())
}

func TestEvaluate_HolidayPolicy(t *testing.T) {
	t.Parallel()

	// 2025-01-13 is a Monday public holiday.
	monday, err := domain.NewWeeklySchedule(at(9, 0), time.Monday)
	require.NoError(t, err)

	t.Run("skip", func(t *testing.T) {
		st := newTemplate(t, "2025-01-01", monday)
		st.SkipHolidays = true
		c, err := NewCalculator(newFakeHolidays("2025-01-13"), 14)
		require.NoError(t, err)

		occ, err := c.Evaluate(context.Background(), st, 0, date(t, "2025-01-13"))
		require.NoError(t, err)
		assert.False(t, occ.Fires)
		assert.Equal(t, ReasonHolidaySkip, occ.Reason)
	})

	t.Run("move", func(t *testing.T) {
		st := newTemplate(t, "2025-01-01", monday)
		st.MoveToNextBusinessDay = true
		c, err := NewCalculator(newFakeHolidays("2025-01-13"), 14)
		require.NoError(t, err)

		occ, err := c.Evaluate(context.Background(), st, 0, date(t, "2025-01-13"))
		require.NoError(t, err)
		assert.True(t, occ.Fires)
		assert.Equal(t, ReasonMoved, occ.Reason)
		assert.Equal(t, date(t, "2025-01-14"), occ.AdjustedDate)
		assert.Equal(t, date(t, "2025-01-13"), occ.NaturalDate)
	})

	t.Run("move over weekend", func(t *testing.T) {
		friday, err := domain.NewWeeklySchedule(at(9, 0), time.Friday)
		require.NoError(t, err)
		st := newTemplate(t, "2025-01-01", friday)
		st.MoveToNextBusinessDay = true
		c, err := NewCalculator(newFakeHolidays("2025-01-10"), 14)
		require.NoError(t, err)

		occ, err := c.Evaluate(context.Background(), st, 0, date(t, "2025-01-10"))
		require.NoError(t, err)
		assert.Equal(t, date(t, "2025-01-13"), occ.AdjustedDate)
	})

	t.Run("neither flag uses date as is", func(t *testing.T) {
		st := newTemplate(t, "2025-01-01", monday)
		holidays := newFakeHolidays("2025-01-13")
		c, err := NewCalculator(holidays, 14)
		require.NoError(t, err)

		occ, err := c.Evaluate(context.Background(), st, 0, date(t, "2025-01-13"))
		require.NoError(t, err)
		assert.True(t, occ.Fires)
		assert.Equal(t, date(t, "2025-01-13"), occ.AdjustedDate)
		assert.Zero(t, holidays.calls)
	})

	t.Run("shift limit", func(t *testing.T) {
		st := newTemplate(t, "2025-01-01", monday)
		st.MoveToNextBusinessDay = true
		holidays := newFakeHolidays("2025-01-13", "2025-01-14", "2025-01-15", "2025-01-16", "2025-01-17")
		c, err := NewCalculator(holidays, 3)
		require.NoError(t, err)

		_, err = c.Evaluate(context.Background(), st, 0, date(t, "2025-01-13"))
		assert.ErrorIs(t, err, ErrShiftLimitExceeded)
	})

	t.Run("lookup error", func(t *testing.T) {
		st := newTemplate(t, "2025-01-01", monday)
		st.SkipHolidays = true
		holidays := newFakeHolidays()
		holidays.err = errors.New("calendar unavailable")
		c, err := NewCalculator(holidays, 14)
		require.NoError(t, err)

		_, err = c.Evaluate(context.Background(), st, 0, date(t, "2025-01-13"))
		assert.ErrorIs(t, err, ErrHolidayLookupFailed)
	})
}

func TestEvaluate_InvalidInput(t *testing.T) {
	t.Parallel()

	c, err := NewCalculator(newFakeHolidays(), 14)
	require.NoError(t, err)

	_, err = c.Evaluate(context.Background(), nil, 0, time.Now())
	assert.ErrorIs(t, err, ErrNilScheduledTask)

	daily, err := domain.NewDailySchedule(at(9, 0))
	require.NoError(t, err)
	st := newTemplate(t, "2025-01-01", daily)
	_, err = c.Evaluate(context.Background(), st, 1, time.Now())
	assert.ErrorIs(t, err, ErrScheduleOutOfRange)
}

func TestOccurrencesOn(t *testing.T) {
	t.Parallel()

	monday, err := domain.NewWeeklySchedule(at(9, 0), time.Monday)
	require.NoError(t, err)

	t.Run("moved occurrence lands on shifted date only", func(t *testing.T) {
		st := newTemplate(t, "2025-01-01", monday)
		st.MoveToNextBusinessDay = true
		c, err := NewCalculator(newFakeHolidays("2025-01-13"), 14)
		require.NoError(t, err)

		onHoliday, err := c.OccurrencesOn(context.Background(), st, 0, date(t, "2025-01-13"))
		require.NoError(t, err)
		assert.Empty(t, onHoliday)

		nextDay, err := c.OccurrencesOn(context.Background(), st, 0, date(t, "2025-01-14"))
		require.NoError(t, err)
		require.Len(t, nextDay, 1)
		assert.Equal(t, date(t, "2025-01-13"), nextDay[0].NaturalDate)
		assert.Equal(t, date(t, "2025-01-14"), nextDay[0].AdjustedDate)

		// Re-evaluating the same run date is stable.
		again, err := c.OccurrencesOn(context.Background(), st, 0, date(t, "2025-01-14"))
		require.NoError(t, err)
		require.Len(t, again, 1)
		assert.Equal(t, nextDay[0].NaturalDate, again[0].NaturalDate)
		assert.True(t, nextDay[0].At.Equal(again[0].At))
	})

	t.Run("moved occurrence joins a natural one", func(t *testing.T) {
		daily, err := domain.NewDailySchedule(at(9, 0))
		require.NoError(t, err)
		st := newTemplate(t, "2025-01-01", daily)
		st.MoveToNextBusinessDay = true
		c, err := NewCalculator(newFakeHolidays("2025-01-13"), 14)
		require.NoError(t, err)

		occs, err := c.OccurrencesOn(context.Background(), st, 0, date(t, "2025-01-14"))
		require.NoError(t, err)
		require.Len(t, occs, 2)
		assert.Equal(t, date(t, "2025-01-13"), occs[0].NaturalDate)
		assert.Equal(t, date(t, "2025-01-14"), occs[1].NaturalDate)
	})

	t.Run("holiday skip is reported on its own date", func(t *testing.T) {
		st := newTemplate(t, "2025-01-01", monday)
		st.SkipHolidays = true
		c, err := NewCalculator(newFakeHolidays("2025-01-13"), 14)
		require.NoError(t, err)

		occs, err := c.OccurrencesOn(context.Background(), st, 0, date(t, "2025-01-13"))
		require.NoError(t, err)
		require.Len(t, occs, 1)
		assert.False(t, occs[0].Fires)
		assert.Equal(t, ReasonHolidaySkip, occs[0].Reason)

		next, err := c.OccurrencesOn(context.Background(), st, 0, date(t, "2025-01-14"))
		require.NoError(t, err)
		assert.Empty(t, next)
	})

	t.Run("unmovable date does not block later dates", func(t *testing.T) {
		daily, err := domain.NewDailySchedule(at(9, 0))
		require.NoError(t, err)
		st := newTemplate(t, "2025-01-01", daily)
		st.MoveToNextBusinessDay = true

		// Every weekday from Aug 1 to Aug 19 is closed. The weekend of Aug 2
		// is not a holiday, so it still fires on its own date.
		var closed []string
		for d := date(t, "2025-08-01"); !d.After(date(t, "2025-08-19")); d = d.AddDate(0, 0, 1) {
			if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
				closed = append(closed, d.Format(domain.DateLayout))
			}
		}
		c, err := NewCalculator(newFakeHolidays(closed...), 14)
		require.NoError(t, err)

		first, err := c.OccurrencesOn(context.Background(), st, 0, date(t, "2025-08-01"))
		require.NoError(t, err)
		require.Len(t, first, 1)
		assert.Equal(t, ReasonFailed, first[0].Reason)
		assert.False(t, first[0].Fires)
		assert.ErrorIs(t, first[0].Err, ErrShiftLimitExceeded)
		assert.Equal(t, date(t, "2025-08-01"), first[0].NaturalDate)

		saturday, err := c.OccurrencesOn(context.Background(), st, 0, date(t, "2025-08-02"))
		require.NoError(t, err)
		require.Len(t, saturday, 1)
		assert.True(t, saturday[0].Fires)
		assert.NoError(t, saturday[0].Err)
		assert.Equal(t, date(t, "2025-08-02"), saturday[0].NaturalDate)
		assert.Equal(t, date(t, "2025-08-02"), saturday[0].AdjustedDate)
	})

	t.Run("lookup failures are reported per date", func(t *testing.T) {
		daily, err := domain.NewDailySchedule(at(9, 0))
		require.NoError(t, err)
		st := newTemplate(t, "2025-01-01", daily)
		st.MoveToNextBusinessDay = true
		cal := newFakeHolidays()
		cal.err = errors.New("calendar unavailable")
		c, err := NewCalculator(cal, 2)
		require.NoError(t, err)

		occs, err := c.OccurrencesOn(context.Background(), st, 0, date(t, "2025-01-14"))
		require.NoError(t, err)
		require.Len(t, occs, 3)
		for i, want := range []string{"2025-01-12", "2025-01-13", "2025-01-14"} {
			assert.Equal(t, date(t, want), occs[i].NaturalDate)
			assert.Equal(t, ReasonFailed, occs[i].Reason)
			assert.ErrorIs(t, occs[i].Err, ErrHolidayLookupFailed)
		}
	})

	t.Run("invalid input is an error", func(t *testing.T) {
		c, err := NewCalculator(newFakeHolidays(), 14)
		require.NoError(t, err)

		_, err = c.OccurrencesOn(context.Background(), nil, 0, date(t, "2025-01-14"))
		assert.ErrorIs(t, err, ErrNilScheduledTask)

		st := newTemplate(t, "2025-01-01", monday)
		_, err = c.OccurrencesOn(context.Background(), st, 3, date(t, "2025-01-14"))
		assert.ErrorIs(t, err, ErrScheduleOutOfRange)
	})

	t.Run("non matching date yields nothing", func(t *testing.T) {
		st := newTemplate(t, "2025-01-01", monday)
		c, err := NewCalculator(newFakeHolidays(), 14)
		require.NoError(t, err)

		occs, err := c.OccurrencesOn(context.Background(), st, 0, date(t, "2025-01-07"))
		require.NoError(t, err)
		assert.Empty(t, occs)
	})
}
