// Package errors defines the error kinds returned by TierStore's storage
// tier operations.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed tier operation.
type Kind string

const (
	// KindInvalidName means the file name is empty or would escape the tier's
	// base directory.
	KindInvalidName Kind = "InvalidName"
	// KindInvalidTier means the tier value is not one of the declared tiers.
	KindInvalidTier Kind = "InvalidTier"
	// KindPermissionDenied means the external storage permission is missing.
	KindPermissionDenied Kind = "PermissionDenied"
	// KindNotFound means the file to read does not exist.
	KindNotFound Kind = "NotFound"
	// KindIOFailure wraps any other storage error.
	KindIOFailure Kind = "IOFailure"
)

// TierError is the single error type returned across the storage manager
// boundary. It carries a machine-readable kind, a human-readable message that
// names the file, the HTTP status the API layer maps it to, and the
// underlying cause if any.
type TierError struct {
	// Kind is the failure classification.
	Kind Kind
	// Message is a human-readable description of the failure.
	Message string
	// Name is the file name the operation was called with.
	Name string
	// HTTPStatus is the status code the HTTP API responds with.
	HTTPStatus int
	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface for TierError.
func (e *TierError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Name != "" {
		msg = fmt.Sprintf("%s: %s (file %q)", e.Kind, e.Message, e.Name)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *TierError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a TierError of the same kind, so callers can
// write errors.Is(err, ErrNotFound).
func (e *TierError) Is(target error) bool {
	t, ok := target.(*TierError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithName returns a copy of the error bound to the given file name.
func (e *TierError) WithName(name string) *TierError {
	cp := *e
	cp.Name = name
	return &cp
}

// WithMessage returns a copy of the error with a replaced message.
func (e *TierError) WithMessage(format string, args ...any) *TierError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of the error carrying cause.
func (e *TierError) Wrap(cause error) *TierError {
	cp := *e
	cp.Err = cause
	return &cp
}

// Pre-defined errors, one per kind. Use the With*/Wrap helpers to derive a
// call-specific error; never mutate these.
var (
	// ErrInvalidName is returned when the file name is rejected.
	ErrInvalidName = &TierError{
		Kind:       KindInvalidName,
		Message:    "file name must be non-empty and must not contain path separators",
		HTTPStatus: http.StatusBadRequest,
	}

	// ErrInvalidTier is returned for tier values outside the enumeration.
	ErrInvalidTier = &TierError{
		Kind:       KindInvalidTier,
		Message:    "unknown storage tier",
		HTTPStatus: http.StatusBadRequest,
	}

	// ErrPermissionDenied is returned when an external tier is accessed
	// without the matching storage permission.
	ErrPermissionDenied = &TierError{
		Kind:       KindPermissionDenied,
		Message:    "storage permission not granted",
		HTTPStatus: http.StatusForbidden,
	}

	// ErrNotFound is returned when reading a file that does not exist.
	ErrNotFound = &TierError{
		Kind:       KindNotFound,
		Message:    "file does not exist",
		HTTPStatus: http.StatusNotFound,
	}

	// ErrIOFailure is returned for every other storage failure.
	ErrIOFailure = &TierError{
		Kind:       KindIOFailure,
		Message:    "storage operation failed",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// KindOf returns the kind of err. Errors that are not TierErrors classify as
// KindIOFailure; a nil error returns the empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var te *TierError
	if stderrors.As(err, &te) {
		return te.Kind
	}
	return KindIOFailure
}

// HTTPStatusOf returns the HTTP status code for err, defaulting to 500.
func HTTPStatusOf(err error) int {
	var te *TierError
	if stderrors.As(err, &te) && te.HTTPStatus != 0 {
		return te.HTTPStatus
	}
	return http.StatusInternalServerError
}
