package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/hrisapi"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrNotAuthenticated):
		Unauthorized(w, "Not signed in")
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrPunchInProgress):
		Conflict(w, "A punch is already in progress")
	case errors.Is(err, attendance.ErrPermissionDenied):
		Forbidden(w, "Location permission denied")
	case errors.Is(err, attendance.ErrLocationUnavailable):
		UnprocessableEntity(w, "LOCATION_UNAVAILABLE", "Unable to acquire device location")
	case errors.Is(err, attendance.ErrOutsideGeofence):
		Forbidden(w, err.Error())
	case errors.Is(err, attendance.ErrPunchRejected):
		UnprocessableEntity(w, "PUNCH_REJECTED", upstreamMessage(err, "Punch was not accepted"))
	case errors.Is(err, attendance.ErrInvalidPunchRequest):
		BadRequest(w, err.Error(), nil)

	default:
		handleUpstreamError(w, err)
	}
}

func handleUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *hrisapi.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
		return
	}

	switch apiErr.Kind {
	case hrisapi.KindAuth:
		Unauthorized(w, apiErr.Message)
	case hrisapi.KindNotFound:
		NotFound(w, apiErr.Message)
	case hrisapi.KindValidation, hrisapi.KindRejected:
		UnprocessableEntity(w, "UPSTREAM_REJECTED", apiErr.Message)
	case hrisapi.KindNetwork:
		ServiceUnavailable(w, "HRIS backend is unreachable")
	default:
		slog.Error("hris backend error", "error", err)
		BadGateway(w, "HRIS backend error")
	}
}

func upstreamMessage(err error, fallback string) string {
	var apiErr *hrisapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
