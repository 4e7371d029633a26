// Package errors defines the sentinel errors shared by the decoder packages
// and an AppError type that attaches a message and HTTP status to them.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrConfigurationMissing = errors.New("required configuration section missing")
	ErrFunctionNotFound     = errors.New("feature function not found")
	ErrScoreCountMismatch   = errors.New("score count mismatch")
	ErrMalformedValue       = errors.New("malformed value")
	ErrLoadFailure          = errors.New("feature function load failed")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotReady             = errors.New("decoder not ready")
	ErrInternal             = errors.New("internal error")
	ErrTimeout              = errors.New("operation timed out")
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

// CountMismatch reports a weight or score line whose value count differs
// from the number of scores a feature function owns.
type CountMismatch struct {
	Name     string
	Expected int
	Actual   int
}

func (e *CountMismatch) Error() string {
	return fmt.Sprintf("%s: %s expects %d values, got %d", ErrScoreCountMismatch, e.Name, e.Expected, e.Actual)
}

func (e *CountMismatch) Unwrap() error {
	return ErrScoreCountMismatch
}

// HTTPStatusCode maps err to a response status. An AppError built with a
// zero status falls back to its sentinel.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode >= 100 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrFunctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMalformedValue):
		return http.StatusBadRequest
	case errors.Is(err, ErrScoreCountMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrConfigurationMissing), errors.Is(err, ErrLoadFailure):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
