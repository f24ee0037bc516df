package common

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (

	// repository specific errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// service specific errors
	ErrInternal           = errors.New("internal error")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLockedOut          = errors.New("too many failed login attempts")
	ErrInvalidToken       = errors.New("invalid token")

	// session errors, both surface as 401
	ErrDeviceMismatch  = fmt.Errorf("%w: invalid refresh token or device association", ErrUnauthorized)
	ErrSessionInactive = fmt.Errorf("%w: session is not active", ErrUnauthorized)

	// password errors
	ErrInvalidOldPassword = errors.New("invalid old password")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrSamePassword       = errors.New("new password must differ from the old password")
	ErrWeakPassword       = errors.New("password too weak")

	// invitation errors
	ErrInvitationExpired = errors.New("invitation has expired")
	ErrInvitationUsed    = errors.New("invitation has reached its maximum number of uses")
)

// ValidationError collects per-field messages. It unwraps to Cause so callers
// can still match on the underlying sentinel.
type ValidationError struct {
	Cause  error
	Fields map[string][]string
}

func NewValidationError(cause error) *ValidationError {
	return &ValidationError{Cause: cause, Fields: map[string][]string{}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// FieldError is a shortcut for a validation error with a single message.
func FieldError(cause error, field, message string) *ValidationError {
	v := NewValidationError(cause)
	v.Add(field, message)
	return v
}
