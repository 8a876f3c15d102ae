// Package domain contains the core business entities, value objects, and
// domain logic of the recurring task scheduler: scheduled task templates,
// their recurrence schedules, the task instances they materialize, and the
// immutable execution records that audit each occurrence.
package domain
