// Package recurrence decides on which calendar dates a scheduled task's
// schedule entries fire, applying the template's validity window and holiday
// policy. It is pure apart from the HolidayResolver it is given, and every
// evaluation takes the date explicitly.
package recurrence
