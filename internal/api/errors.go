package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/chorecast/internal/api/shared"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/service"
	"github.com/phrazzld/chorecast/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so internal
// error types never reach clients.
func MapErrorToStatusCode(err error) int {
	var ve validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrScheduledTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, shared.ErrEmptyBody),
		errors.As(err, &ve):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var ve validator.ValidationErrors
	var de *domain.ValidationError
	switch {
	case errors.Is(err, service.ErrScheduledTaskNotFound),
		errors.Is(err, store.ErrScheduledTaskNotFound):
		return "Scheduled task not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.As(err, &ve):
		return SanitizeValidationError(err)

	// Domain field errors carry only field names and fixed messages.
	case errors.As(err, &de):
		return fmt.Sprintf("Invalid %s: %s", de.Field, de.Message)

	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Validation error"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns the first validator failure into a short
// message naming the JSON field.
func SanitizeValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "Validation error"
	}
	fe := ve[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "must be a UUID"
	case "datetime":
		return "must be a YYYY-MM-DD date"
	case "timezone":
		return "unknown time zone"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the mapped status and a sanitized message for err.
// A non-empty fallback replaces the generic message of 500 responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
