package services

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/neexa/neexa-backend/internal/common"
)

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nameRe     = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚñÑ\s]+$`)
	nonDigitRe = regexp.MustCompile(`\D`)
	currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
)

const (
	maxEmailLength = 120
	maxNameLength  = 50
	maxPhoneLength = 20
)

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether a normalized email is well formed.
func ValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailRe.MatchString(email)
}

// ProfileUpdate carries optional profile changes; nil fields are left alone.
type ProfileUpdate struct {
	FirstName         *string
	LastName          *string
	Phone             *string
	DateOfBirth       *time.Time
	PreferredCurrency *string
}

func validateName(v *common.ValidationError, field, label, value string) {
	trimmed := strings.TrimSpace(value)
	switch {
	case trimmed == "":
		v.Add(field, label+" cannot be empty")
	case utf8.RuneCountInString(value) > maxNameLength:
		v.Add(field, "Length must be between 1 and 50.")
	case !nameRe.MatchString(value):
		v.Add(field, label+" can only contain letters and spaces")
	}
}

func validatePhone(v *common.ValidationError, phone string) {
	if phone == "" {
		return
	}
	if len(phone) > maxPhoneLength {
		v.Add("phone", "Longer than maximum length 20.")
		return
	}
	digits := nonDigitRe.ReplaceAllString(phone, "")
	if len(digits) < 10 || len(digits) > 15 {
		v.Add("phone", "Phone number must be between 10 and 15 digits")
	}
}

// normalizeCurrency upper-cases a currency code and checks it is three letters.
func normalizeCurrency(v *common.ValidationError, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !currencyRe.MatchString(code) {
		v.Add("preferred_currency", "Currency must be a 3-letter code")
	}
	return code
}

func (u *ProfileUpdate) validate() error {
	v := &common.ValidationError{}
	if u.FirstName != nil {
		validateName(v, "first_name", "First name", *u.FirstName)
	}
	if u.LastName != nil {
		validateName(v, "last_name", "Last name", *u.LastName)
	}
	if u.Phone != nil {
		validatePhone(v, *u.Phone)
	}
	if u.PreferredCurrency != nil {
		c := normalizeCurrency(v, *u.PreferredCurrency)
		u.PreferredCurrency = &c
	}
	if v.Empty() {
		return nil
	}
	return v
}
