package holiday

import "errors"

// Common errors
var (
	// ErrUnsupportedCountry is returned when no public calendar exists for the
	// configured country code.
	ErrUnsupportedCountry = errors.New("unsupported holiday country")

	// ErrNoBusinessDay is returned when every day in the search window is a
	// non-business day.
	ErrNoBusinessDay = errors.New("no business day within search window")
)
