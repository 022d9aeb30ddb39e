// Package common defines shared constants and sentinel errors used across
// the server layers of Neexa. Callers should use errors.Is to match these
// values; service packages wrap them with more specific failure kinds.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrAlreadyUsed   = errors.New("already used")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrLocked         = errors.New("locked")
	ErrRateLimited    = errors.New("rate limited")

	// Validation errors (malformed or weak input).
	ErrValidation = errors.New("validation failed")

	// Auth errors (missing, invalid or malformed token).
	ErrTokenMissing = errors.New("token missing")
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// ValidationError carries field-level detail for a failed validation.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records msg for field, keeping the first message per field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for f, m := range e.Fields {
			return "validation failed: " + f + ": " + m
		}
	}
	return "validation failed"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
