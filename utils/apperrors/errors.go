// Package apperrors defines the error taxonomy shared by all services.
// Handlers map kinds to HTTP statuses; services never leak storage-engine
// details past a Storage-kind wrapper.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary mapping
type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR" // malformed/missing input, user-correctable
	KindNotFound   Kind = "NOT_FOUND"        // referenced entity absent
	KindConflict   Kind = "CONFLICT"         // duplicate or idempotency violation
	KindStorage    Kind = "STORAGE_ERROR"    // underlying store unavailable or write failed
	KindDependency Kind = "DEPENDENCY_ERROR" // collaborator (notification/blob/identity) failure
)

// Error is a classified application error with optional field-level detail.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string // field -> problem, for validation errors
	Err     error             // wrapped cause, never surfaced to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidation returns a validation error with field details.
func NewValidation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// NewNotFound returns a not-found error for the named entity.
func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// NewConflict returns a conflict/idempotency error.
func NewConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// NewStorage wraps a storage-layer failure.
func NewStorage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// NewDependency wraps a collaborator failure.
func NewDependency(message string, err error) *Error {
	return &Error{Kind: KindDependency, Message: message, Err: err}
}

// KindOf extracts the Kind from err, defaulting to KindStorage for
// unclassified errors so internals never leak as-is.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FieldsOf returns the field detail map of a validation error, or nil.
func FieldsOf(err error) map[string]string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}

// MessageOf returns the client-safe message for err. Unclassified errors
// get a generic message.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
