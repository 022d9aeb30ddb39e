package models

import "time"

// Account is a registered user of the platform.
//
// PasswordHash is a bcrypt hash and is never serialized. LockedUntil is set
// only when FailedAttempts crosses the lockout threshold; a successful login
// clears both.
type Account struct {
	ID                int64      `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	IsActive          bool       `json:"is_active"`
	IsVerified        bool       `json:"is_verified"`
	FailedAttempts    int        `json:"-"`
	LockedUntil       *time.Time `json:"-"`
	LastLogin         *time.Time `json:"last_login"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Phone             *string    `json:"phone"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	PreferredCurrency string     `json:"preferred_currency"`
}

// IsLocked reports whether the account is inside a lockout window at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// FullName joins first and last name.
func (a *Account) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Profile is the public view of an Account returned by the API.
type Profile struct {
	ID                int64      `json:"id"`
	Email             string     `json:"email"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	IsActive          bool       `json:"is_active"`
	IsVerified        bool       `json:"is_verified"`
	CreatedAt         time.Time  `json:"created_at"`
	LastLogin         *time.Time `json:"last_login"`
	Phone             *string    `json:"phone"`
	DateOfBirth       *string    `json:"date_of_birth"`
	PreferredCurrency string     `json:"preferred_currency"`
}

// DateLayout is the wire format of DateOfBirth.
const DateLayout = "2006-01-02"

func (a *Account) Profile() Profile {
	p := Profile{
		ID:                a.ID,
		Email:             a.Email,
		FirstName:         a.FirstName,
		LastName:          a.LastName,
		IsActive:          a.IsActive,
		IsVerified:        a.IsVerified,
		CreatedAt:         a.CreatedAt,
		LastLogin:         a.LastLogin,
		Phone:             a.Phone,
		PreferredCurrency: a.PreferredCurrency,
	}
	if a.DateOfBirth != nil {
		s := a.DateOfBirth.Format(DateLayout)
		p.DateOfBirth = &s
	}
	return p
}

// Clone returns a deep copy, so pointer fields can be mutated independently.
func (a *Account) Clone() *Account {
	c := *a
	c.LockedUntil = cloneTime(a.LockedUntil)
	c.LastLogin = cloneTime(a.LastLogin)
	c.DateOfBirth = cloneTime(a.DateOfBirth)
	if a.Phone != nil {
		p := *a.Phone
		c.Phone = &p
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
