package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString reads size random bytes and returns them hex-encoded,
// so the result is 2*size characters long. Used for signing secrets.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray zeroes b in place. Raw passwords read from a terminal are
// wiped once hashed. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
