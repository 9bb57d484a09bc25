// Package apperr defines the error taxonomy shared by the registry, the
// billing engine and the loaders.
//
//   - ValidationError: a caller supplied a bad value. Nothing was written.
//   - IntegrityError: persisted data is corrupt. Partial results accompany it.
//   - NotFoundError: an id or name does not resolve.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid is a shorthand for a ValidationError without a cause.
func Invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IntegrityError reports a corrupt persisted row. Row is 1-based and counts
// the header line, so it matches what an editor shows.
type IntegrityError struct {
	Source string
	Row    int
	Err    error
}

func (e *IntegrityError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("integrity: %s row %d: %v", e.Source, e.Row, e.Err)
	}
	return fmt.Sprintf("integrity: %s: %v", e.Source, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// NotFoundError reports an unknown patient, doctor or service.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsIntegrity(err error) bool {
	var target *IntegrityError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// HTTPStatus maps err onto a response code: 504 for an expired request
// deadline, 400 for validation failures, 404 for unknown ids and 500 for
// everything else. Validation is checked before not-found so a
// ValidationError wrapping a NotFoundError stays a 400.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
