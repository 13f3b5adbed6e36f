package core

import "github.com/pkg/errors"

// FieldError pairs a request field name with the message it failed
// validation with.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports bad input. Fields carries the per-field
// breakdown when one is available; Err is the summary.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

// NewValidationError builds a *ValidationError from a summary error and
// an optional per-field breakdown.
func NewValidationError(err error, fields ...FieldError) error {
	return &ValidationError{Err: err, Fields: fields}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// shutdownError signals that the server cannot usefully continue and
// should be brought down gracefully.
type shutdownError struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdownError{message: msg}
}

func (s shutdownError) Error() string { return s.message }

// IsShutdown reports whether err (or its cause) requests a shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdownError)
	return ok
}
