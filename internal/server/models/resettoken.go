package models

import "time"

// ResetToken is a single-use password reset credential. Rows are never
// deleted; a token is dead once Used is set or ExpiresAt has passed.
type ResetToken struct {
	ID        int64
	Token     string
	AccountID int64
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Expired reports whether now is past the token's expiry.
func (t *ResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
