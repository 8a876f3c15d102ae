package holiday

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/domain/recurrence"
	"github.com/phrazzld/chorecast/internal/platform/logger"
	"github.com/phrazzld/chorecast/internal/store"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/us"
)

// Options configures a Resolver.
type Options struct {
	// Country selects the public calendar: "JP" or "US".
	Country string
	// WeekendsAreNonBusiness makes NextBusinessDay skip Saturdays and Sundays.
	WeekendsAreNonBusiness bool
	// MaxSearchDays bounds NextBusinessDay. Non-positive selects
	// recurrence.DefaultMaxShiftDays.
	MaxSearchDays int
}

// Resolver answers holiday questions for the occurrence calculator.
type Resolver struct {
	calendar      *cal.BusinessCalendar
	custom        store.HolidayStore
	weekends      bool
	maxSearchDays int
	logger        *slog.Logger
}

var _ recurrence.HolidayResolver = (*Resolver)(nil)

// NewResolver builds a Resolver for opts.Country. custom may be nil, in which
// case only the public calendar is consulted. If logger is nil, a default
// logger will be used.
func NewResolver(opts Options, custom store.HolidayStore, logger *slog.Logger) (*Resolver, error) {
	holidays, err := countryHolidays(opts.Country)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxSearchDays <= 0 {
		opts.MaxSearchDays = recurrence.DefaultMaxShiftDays
	}

	c := cal.NewBusinessCalendar()
	c.AddHoliday(holidays...)

	return &Resolver{
		calendar:      c,
		custom:        custom,
		weekends:      opts.WeekendsAreNonBusiness,
		maxSearchDays: opts.MaxSearchDays,
		logger:        logger.With(slog.String("component", "holiday_resolver")),
	}, nil
}

func countryHolidays(country string) ([]*cal.Holiday, error) {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "JP":
		return jp.Holidays, nil
	case "US":
		return us.Holidays, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCountry, country)
	}
}

// IsHoliday reports whether date is a public holiday (actual or observed) or
// a custom holiday.
func (r *Resolver) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	date = domain.CivilDate(date)
	if r.isPublicHoliday(date) {
		return true, nil
	}
	if r.custom == nil {
		return false, nil
	}

	custom, err := r.custom.ListBetween(ctx, date, date)
	if err != nil {
		logger.FromContextOrDefault(ctx, r.logger).Error("failed to load custom holidays",
			slog.String("error", err.Error()),
			slog.String("date", date.Format(domain.DateLayout)))
		return false, fmt.Errorf("load custom holidays: %w", err)
	}
	return len(custom) > 0, nil
}

// NextBusinessDay returns the first day strictly after date that is not a
// holiday and, when configured, not a weekend.
func (r *Resolver) NextBusinessDay(ctx context.Context, date time.Time) (time.Time, error) {
	date = domain.CivilDate(date)
	from := date.AddDate(0, 0, 1)
	to := date.AddDate(0, 0, r.maxSearchDays)

	customDays := map[time.Time]struct{}{}
	if r.custom != nil {
		custom, err := r.custom.ListBetween(ctx, from, to)
		if err != nil {
			return time.Time{}, fmt.Errorf("load custom holidays: %w", err)
		}
		for _, h := range custom {
			customDays[domain.CivilDate(h.Date)] = struct{}{}
		}
	}

	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if r.weekends && isWeekend(d) {
			continue
		}
		if r.isPublicHoliday(d) {
			continue
		}
		if _, ok := customDays[d]; ok {
			continue
		}
		return d, nil
	}

	logger.FromContextOrDefault(ctx, r.logger).Warn("no business day found",
		slog.String("date", date.Format(domain.DateLayout)),
		slog.Int("max_search_days", r.maxSearchDays))
	return time.Time{}, fmt.Errorf("%w: %d days after %s",
		ErrNoBusinessDay, r.maxSearchDays, date.Format(domain.DateLayout))
}

func (r *Resolver) isPublicHoliday(date time.Time) bool {
	actual, observed, _ := r.calendar.IsHoliday(date)
	return actual || observed
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
