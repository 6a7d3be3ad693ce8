package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/refgraph/internal/model"
)

// Error is a domain failure returned by engine operations.
//
// Domain errors are returned as values and never alongside a record.
// Infrastructure failures (store I/O) are wrapped with fmt.Errorf and pass
// through unchanged, so callers can tell the two apart with errors.As.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Kind is the entity kind the error refers to, if any.
	Kind model.Kind

	// ID is the offending record id, if any.
	ID string

	// Details contains additional context.
	Details map[string]string

	cause error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the primary record of an operation is absent.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalidReference indicates a reference field points to a
	// record that does not exist (or is disallowed by policy).
	ErrCodeInvalidReference ErrorCode = "INVALID_REFERENCE"

	// ErrCodeEdgeNotFound indicates unsubscribe on an absent edge.
	ErrCodeEdgeNotFound ErrorCode = "EDGE_NOT_FOUND"

	// ErrCodeValidation indicates a malformed payload.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeProfileExists indicates the owner already has a profile.
	ErrCodeProfileExists ErrorCode = "PROFILE_EXISTS"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind != "" && e.ID != "" {
		return fmt.Sprintf("%s: %s (%s=%s)", e.Code, e.Message, e.Kind, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsNotFound returns true if the error is a NOT_FOUND error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsInvalidReference returns true if the error is an INVALID_REFERENCE error.
func IsInvalidReference(err error) bool { return hasCode(err, ErrCodeInvalidReference) }

// IsEdgeNotFound returns true if the error is an EDGE_NOT_FOUND error.
func IsEdgeNotFound(err error) bool { return hasCode(err, ErrCodeEdgeNotFound) }

// IsValidation returns true if the error is a VALIDATION error.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsProfileExists returns true if the error is a PROFILE_EXISTS error.
func IsProfileExists(err error) bool { return hasCode(err, ErrCodeProfileExists) }

// CodeOf returns the engine error code of err, or "" for other errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// NewNotFoundError creates an Error for an absent primary record.
func NewNotFoundError(kind model.Kind, id string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", kind),
		Kind:    kind,
		ID:      id,
	}
}

// NewInvalidReferenceError creates an Error for a dangling reference field.
func NewInvalidReferenceError(kind model.Kind, id, field string) *Error {
	return &Error{
		Code:    ErrCodeInvalidReference,
		Message: fmt.Sprintf("%s references unknown %s", field, kind),
		Kind:    kind,
		ID:      id,
		Details: map[string]string{"field": field},
	}
}

// NewEdgeNotFoundError creates an Error for unsubscribe without an edge.
func NewEdgeNotFoundError(subscriberID, followedID string) *Error {
	return &Error{
		Code:    ErrCodeEdgeNotFound,
		Message: "subscription does not exist",
		Kind:    model.KindAccount,
		ID:      subscriberID,
		Details: map[string]string{"followed": followedID},
	}
}

// NewValidationError wraps a payload validation failure.
func NewValidationError(err error) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: err.Error(),
		cause:   err,
	}
}

// NewProfileExistsError creates an Error for a second profile on one account.
func NewProfileExistsError(ownerID, profileID string) *Error {
	return &Error{
		Code:    ErrCodeProfileExists,
		Message: "account already has a profile",
		Kind:    model.KindAccount,
		ID:      ownerID,
		Details: map[string]string{"profile": profileID},
	}
}
