// Package group implements federation, mutation, status and admin
// operations over the record store and the directory.
package group

import (
	"errors"
	"log/slog"

	"groupman/internal/domain"
)

// isBusiness reports whether err is an expected outcome that must reach the
// caller unchanged.
func isBusiness(err error) bool {
	var (
		notFound    *domain.NotFoundError
		denied      *domain.AccessDeniedError
		validation  *domain.ValidationError
		conflict    *domain.ConflictError
		unsupported *domain.UnsupportedError
		quota       *domain.QuotaExceededError
		upstream    *domain.UpstreamError
	)
	return errors.As(err, &notFound) || errors.As(err, &denied) || errors.As(err, &validation) ||
		errors.As(err, &conflict) || errors.As(err, &unsupported) || errors.As(err, &quota) ||
		errors.As(err, &upstream)
}

func isNotFound(err error) bool {
	var notFound *domain.NotFoundError
	return errors.As(err, &notFound)
}

func isUpstream(err error) bool {
	var up *domain.UpstreamError
	return errors.As(err, &up)
}

// upstream passes business errors through and wraps everything else as a
// failure of source, logging it.
func upstream(logger *slog.Logger, source, op string, err error) error {
	if err == nil || isBusiness(err) {
		return err
	}
	logger.Error("upstream call failed", "source", source, "op", op, "error", err)
	return domain.ErrUpstream(source, op, err)
}

func requireCaller(caller domain.Caller) error {
	if caller.Name == "" {
		return domain.ErrAccessDenied("caller identity is required")
	}
	return nil
}
