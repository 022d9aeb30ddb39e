package services

import (
	"github.com/neexa/neexa-backend/internal/common"
)

// Error is a service failure with a client-facing message. Kind is one of
// the common sentinels and decides how the boundary reports it.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrInvalidEmail         = newError(common.ErrValidation, "Invalid email format")
	ErrPasswordMismatch     = newError(common.ErrValidation, "Passwords do not match")
	ErrNewPasswordMismatch  = newError(common.ErrValidation, "New passwords do not match")
	ErrInvalidPassword      = newError(common.ErrValidation, "Password does not meet security requirements")
	ErrSamePassword         = newError(common.ErrValidation, "New password must be different from current password")
	ErrEmailTaken           = newError(common.ErrAlreadyExists, "User with this email already exists")
	ErrInvalidCredentials   = newError(common.ErrorUnauthorized, "Invalid email or password")
	ErrAccountInactive      = newError(common.ErrorUnauthorized, "Account is deactivated")
	ErrWrongCurrentPassword = newError(common.ErrorUnauthorized, "Current password is incorrect")
	ErrAccountLocked        = newError(common.ErrLocked, "Account is temporarily locked due to multiple failed login attempts")
	ErrAccountNotFound      = newError(common.ErrorNotFound, "User not found")

	ErrResetTokenNotFound = newError(common.ErrorNotFound, "Invalid or expired token")
	ErrResetTokenExpired  = newError(common.ErrTokenExpired, "Token has expired")
	ErrResetTokenUsed     = newError(common.ErrAlreadyUsed, "Token has already been used")
)
