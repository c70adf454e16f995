// Package errors defines the sentinel errors shared across the recommendation
// platform and maps them onto HTTP status codes. Every error returned by the
// recommendation core wraps exactly one of these sentinels so callers can
// tell the failure classes apart with errors.Is.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput marks a malformed query or catalog record. Nothing is
	// scored when it is returned.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIndexNotReady is returned when no snapshot has been published yet.
	ErrIndexNotReady = errors.New("relevance index not ready")
	// ErrRebuildFailed wraps a supplier or build failure during refresh. The
	// previously published snapshot stays live.
	ErrRebuildFailed = errors.New("index rebuild failed")
	// ErrRebuildInProgress is returned when a rebuild is requested while
	// another one is still running.
	ErrRebuildInProgress = errors.New("index rebuild already in progress")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrInternal          = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Invalid is shorthand for a 400 AppError wrapping ErrInvalidInput.
func Invalid(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRebuildInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrIndexNotReady), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrRebuildFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns a short stable label for the sentinel err wraps, for use as a
// metric label or log attribute.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrIndexNotReady):
		return "index_not_ready"
	case errors.Is(err, ErrRebuildInProgress):
		return "rebuild_in_progress"
	case errors.Is(err, ErrRebuildFailed):
		return "rebuild_failed"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}
