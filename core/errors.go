package core

import (
	"github.com/pkg/errors"
)

// Error kinds reported to clients.
const (
	KindValidation  = "validation"
	KindConflict    = "conflict"
	KindNotFound    = "not_found"
	KindForbidden   = "forbidden"
	KindUnavailable = "unavailable"
	KindInternal    = "internal"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ConflictError reports a request that is invalid for the current state of a resource.
type ConflictError struct {
	Message string
}

func NewConflictError(msg string) error {
	return &ConflictError{Message: msg}
}

func (err ConflictError) Error() string { return err.Message }

type NotFoundError struct {
	Message string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{Message: msg}
}

func (err NotFoundError) Error() string { return err.Message }

type ForbiddenError struct {
	Message string
}

func NewForbiddenError(msg string) error {
	return &ForbiddenError{Message: msg}
}

func (err ForbiddenError) Error() string { return err.Message }

// UnavailableError reports a store or collaborator that failed or did not answer in time. Callers may retry.
type UnavailableError struct {
	Err error
}

func NewUnavailableError(err error) error {
	return &UnavailableError{Err: err}
}

func (err UnavailableError) Error() string {
	if err.Err == nil {
		return "service unavailable"
	}
	return "service unavailable: " + err.Err.Error()
}

// AsUnavailable marks a store or collaborator failure as retryable.
// Errors that already carry a kind, and shutdown errors, are only wrapped.
func AsUnavailable(err error, msg string) error {
	if err == nil {
		return nil
	}
	if ErrorKind(err) != KindInternal || IsShutdown(err) {
		return errors.Wrap(err, msg)
	}
	return NewUnavailableError(errors.Wrap(err, msg))
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsForbidden(err error) bool {
	_, ok := errors.Cause(err).(*ForbiddenError)
	return ok
}

func IsUnavailable(err error) bool {
	_, ok := errors.Cause(err).(*UnavailableError)
	return ok
}

// ErrorKind returns the client facing kind of err.
func ErrorKind(err error) string {
	switch errors.Cause(err).(type) {
	case *ValidationError:
		return KindValidation
	case *ConflictError:
		return KindConflict
	case *NotFoundError:
		return KindNotFound
	case *ForbiddenError:
		return KindForbidden
	case *UnavailableError:
		return KindUnavailable
	}
	return KindInternal
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
