package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Domain validation errors are returned unwrapped so callers can map them to 400
// 3. Unexpected errors are wrapped in service-specific error types
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrScheduledTaskNotFound indicates the template does not exist or was deleted.
	// API layer should map this to HTTP 404 Not Found.
	ErrScheduledTaskNotFound = errors.New("scheduled task not found")
)
