package api

import (
	"errors"
	"log/slog"
	"net/http"

	"groupman/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var unsupported *domain.UnsupportedError
	var quota *domain.QuotaExceededError
	var upstream *domain.UpstreamError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &unsupported):
		return http.StatusMethodNotAllowed
	case errors.As(err, &quota):
		return http.StatusUnprocessableEntity
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorKind is the machine-readable error name for a status.
func errorKind(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusConflict:
		return "conflict"
	case http.StatusMethodNotAllowed:
		return "unsupported"
	case http.StatusUnprocessableEntity:
		return "quota_exceeded"
	case http.StatusBadGateway:
		return "upstream_unavailable"
	default:
		return "internal"
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeDomainError renders err. Internal errors hide their message.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := httpStatusFromDomainError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("unhandled error", "error", err)
		msg = "internal server error"
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Code: status, Error: errorKind(status), Message: message})
}
