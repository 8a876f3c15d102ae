// Package holiday implements recurrence.HolidayResolver on top of a public
// holiday calendar from github.com/rickar/cal/v2, supplemented by
// organization-specific holidays read from a store.HolidayStore.
//
// Only holidays cause an occurrence to be skipped or moved. Weekends are
// consulted solely while searching for the next business day, and only when
// the resolver is configured to treat them as non-business days.
package holiday
