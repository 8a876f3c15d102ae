package domain

import "time"

// Holiday is an organization-specific non-business day kept alongside the
// public calendar.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}
