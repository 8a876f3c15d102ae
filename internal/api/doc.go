// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting for the template administration, execution
// history and manual batch endpoints. It translates HTTP concerns to service
// calls and maps service errors to sanitized responses.
package api
