// Package domain defines core types, interfaces, and errors for group management.
package domain

import "fmt"

// NotFoundError indicates a group is absent from every consulted source.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates the caller may not perform the operation.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a uniqueness violation or a version mismatch.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// UnsupportedError indicates a mutation aimed at a directory group.
type UnsupportedError struct {
	Message string
}

func (e *UnsupportedError) Error() string { return e.Message }

// QuotaExceededError indicates the caller already owns the maximum number of groups.
type QuotaExceededError struct {
	Owned int64
	Max   int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %d of %d groups owned", e.Owned, e.Max)
}

// Upstream sources named in UpstreamError.
const (
	UpstreamStore     = "store"
	UpstreamDirectory = "directory"
)

// UpstreamError wraps an infrastructural failure of the record store or the directory.
type UpstreamError struct {
	Source string
	Op     string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Source, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnsupported creates an UnsupportedError with a formatted message.
func ErrUnsupported(format string, args ...interface{}) *UnsupportedError {
	return &UnsupportedError{Message: fmt.Sprintf(format, args...)}
}

// ErrUpstream wraps err as a failure of the given source and operation.
func ErrUpstream(source, op string, err error) *UpstreamError {
	return &UpstreamError{Source: source, Op: op, Err: err}
}
