package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"pickupsports/internal/domain"
)

// WriteServiceError maps a service error onto the response envelope. Store failures are logged;
// client errors are not.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := StatusFor(err)
	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		logger.WarnContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err,
			"repair_needed", errors.Is(err, domain.ErrRepairNeeded))
		message = "storage temporarily unavailable, try again"
		if errors.Is(err, domain.ErrRepairNeeded) {
			message = "membership partially applied, retry the request"
		}
	case http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		message = "internal error"
	}
	WriteJSONError(w, status, code, message)
}

// StatusFor returns the HTTP status and error code for a domain error kind.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, ErrCodeUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, domain.ErrConcurrency), errors.Is(err, domain.ErrStore), errors.Is(err, domain.ErrRepairNeeded):
		return http.StatusServiceUnavailable, ErrCodeUnavailable
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}
