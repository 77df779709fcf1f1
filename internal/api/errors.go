package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/gauge/internal/api/shared"
	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/service/auth"
	"github.com/phrazzld/gauge/internal/service/diagnostic"
	"github.com/phrazzld/gauge/internal/service/planning"
	"github.com/phrazzld/gauge/internal/service/reminder"
	"github.com/phrazzld/gauge/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes. Order
// matters: specific sentinels are matched before the generic ones they wrap.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingSubject):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors: the request was well formed but the resource moved on
	case errors.Is(err, store.ErrVersionConflict),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, diagnostic.ErrSessionTerminal),
		errors.Is(err, diagnostic.ErrDuplicateResponse),
		errors.Is(err, diagnostic.ErrOutOfOrder),
		errors.Is(err, planning.ErrSessionActive),
		errors.Is(err, reminder.ErrPlanInactive):
		return http.StatusConflict

	// Unprocessable: the data the request depends on is inconsistent
	case errors.Is(err, domain.ErrDataIntegrity),
		errors.Is(err, domain.ErrNoActiveDomains):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTerminationReason),
		errors.Is(err, domain.ErrInvalidReminderTier),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// The notification channel refused the reminder
	case errors.Is(err, reminder.ErrSendFailed):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err that never
// includes wrapped internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingSubject):
		return "Invalid token"

	case errors.Is(err, planning.ErrSessionNotOwned):
		return "Session belongs to another user"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Operation not permitted"

	case errors.Is(err, store.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, store.ErrPlanNotFound):
		return "Learning plan not found"
	case errors.Is(err, store.ErrItemNotFound):
		return "Item not found"
	case errors.Is(err, store.ErrDomainNotFound):
		return "Domain not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrVersionConflict):
		return "Session was modified concurrently; reload and retry"
	case errors.Is(err, diagnostic.ErrSessionTerminal):
		return "Session is no longer active"
	case errors.Is(err, diagnostic.ErrDuplicateResponse):
		return "Item already answered in this session"
	case errors.Is(err, diagnostic.ErrOutOfOrder):
		return "Item is not the one awaiting an answer"
	case errors.Is(err, diagnostic.ErrUnknownItem):
		return "Item does not belong to this session"
	case errors.Is(err, diagnostic.ErrUnknownDomain):
		return "Requested domain is not active"
	case errors.Is(err, planning.ErrSessionActive):
		return "Session has not finished yet"
	case errors.Is(err, reminder.ErrPlanInactive):
		return "Learning plan is not active"
	case errors.Is(err, store.ErrActivePlanExists):
		return "An active learning plan already exists"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, diagnostic.ErrEmptyItemPool):
		return "No items are available for the requested domains"
	case errors.Is(err, domain.ErrNoActiveDomains):
		return "No active domains are configured"
	case errors.Is(err, domain.ErrDataIntegrity):
		return "Stored data is inconsistent"

	case errors.Is(err, domain.ErrInvalidTerminationReason):
		return "Invalid termination reason"
	case errors.Is(err, domain.ErrInvalidReminderTier):
		return "Invalid reminder tier"
	case errors.As(err, &validationErr):
		if validationErr.Field == "" {
			return "Invalid request: " + validationErr.Message
		}
		return fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"

	case errors.Is(err, reminder.ErrSendFailed):
		return "Reminder could not be delivered"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. A non-empty
// fallback replaces the generic message of unmapped (500) errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError turns a struct validation failure into a message
// naming the first offending field, by its JSON name, and rule.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid", "uuid4":
		return "invalid ID format"
	case "dive":
		return "invalid entry"
	default:
		return "validation failed"
	}
}
