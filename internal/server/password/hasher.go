package password

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// maxBytes is the bcrypt input limit; longer inputs would be silently cut.
const maxBytes = 72

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher returns a Hasher using cost, clamped to bcrypt's valid range.
// Zero selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of pw.
func (h *Hasher) Hash(pw string) (string, error) {
	if len(pw) > maxBytes {
		return "", &PolicyError{Rule: ErrTooLong}
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether pw matches hash. Malformed hashes never match.
func (h *Hasher) Verify(hash, pw string) bool {
	if len(pw) > maxBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// VerifyAbsent burns one comparison against a fixed hash of the same cost,
// so a login for an unknown email takes as long as a wrong password. It
// always returns false.
func (h *Hasher) VerifyAbsent(pw string) bool {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("neexa-absent-account"), h.cost)
	})
	if len(pw) > maxBytes {
		pw = pw[:maxBytes]
	}
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(pw))
	return false
}
