// Package apperr defines the error kinds raised by the assessment engine and
// their mapping to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindConflict          Kind = "conflict"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden_cross_tenant"
	KindInvalidIdentifier Kind = "invalid_identifier"
	KindEmptyParticipants Kind = "empty_participants"
)

// Sentinels for errors.Is checks. Every *Error matches the sentinel of its kind.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("resource belongs to another institution")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrEmptyParticipants = errors.New("nothing to assign")
)

var sentinels = map[Kind]error{
	KindValidation:        ErrValidation,
	KindConflict:          ErrConflict,
	KindNotFound:          ErrNotFound,
	KindForbidden:         ErrForbidden,
	KindInvalidIdentifier: ErrInvalidIdentifier,
	KindEmptyParticipants: ErrEmptyParticipants,
}

// Error is an application error with a kind and an optional per-field breakdown.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if s, ok := sentinels[e.Kind]; ok {
		return s.Error()
	}
	return string(e.Kind)
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a validation error.
func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }

// ValidationFields returns a validation error with per-field messages.
func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: ErrValidation.Error(), Fields: fields}
}

// Conflict returns a conflict error.
func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

// NotFound returns a not-found error.
func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

// Forbidden returns a cross-tenant error.
func Forbidden(format string, args ...any) *Error { return newf(KindForbidden, format, args...) }

// InvalidIdentifier returns a malformed-id error.
func InvalidIdentifier(format string, args ...any) *Error {
	return newf(KindInvalidIdentifier, format, args...)
}

// EmptyParticipants returns the error for an assignment with nothing to add.
func EmptyParticipants() *Error {
	return &Error{Kind: KindEmptyParticipants, Message: ErrEmptyParticipants.Error()}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Status maps err to an HTTP status code. Unknown errors are 500.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConflict, KindEmptyParticipants, KindInvalidIdentifier:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
