// Package password holds the password strength policy and the bcrypt hasher.
package password

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/neexa/neexa-backend/internal/common"
)

// MinLength is the minimum number of characters in a password.
const MinLength = 8

// SpecialChars lists the characters that satisfy the special-character rule.
const SpecialChars = `!@#$%^&*(),.?":{}|<>`

// Rule sentinels, in the order they are checked.
var (
	ErrTooShort    = errors.New("Password must be at least 8 characters long")
	ErrNoUppercase = errors.New("Password must contain at least one uppercase letter")
	ErrNoLowercase = errors.New("Password must contain at least one lowercase letter")
	ErrNoDigit     = errors.New("Password must contain at least one digit")
	ErrNoSpecial   = errors.New("Password must contain at least one special character")
	ErrTooLong     = errors.New("Password is too long")
)

// PolicyError reports the first policy rule a password broke. It matches
// both common.ErrValidation and the rule sentinel under errors.Is.
type PolicyError struct {
	Rule error
}

func (e *PolicyError) Error() string {
	return e.Rule.Error()
}

func (e *PolicyError) Unwrap() []error {
	return []error{common.ErrValidation, e.Rule}
}

// Validate checks pw against the strength rules and returns a *PolicyError
// for the first rule that fails, or nil.
func Validate(pw string) error {
	if utf8.RuneCountInString(pw) < MinLength {
		return &PolicyError{Rule: ErrTooShort}
	}

	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(SpecialChars, r):
			special = true
		}
	}

	switch {
	case !upper:
		return &PolicyError{Rule: ErrNoUppercase}
	case !lower:
		return &PolicyError{Rule: ErrNoLowercase}
	case !digit:
		return &PolicyError{Rule: ErrNoDigit}
	case !special:
		return &PolicyError{Rule: ErrNoSpecial}
	}
	return nil
}
