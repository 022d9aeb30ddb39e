package services

import (
	"sync"
	"testing"
	"time"

	"github.com/neexa/neexa-backend/internal/logging"
	"github.com/neexa/neexa-backend/internal/server/auth"
	"github.com/neexa/neexa-backend/internal/server/password"
	"github.com/neexa/neexa-backend/internal/server/shared/db"
	"golang.org/x/crypto/bcrypt"
)

const strongPassword = "Secret123!"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *db.MemoryStore
	clock    *testClock
	hasher   *password.Hasher
	issuer   *auth.Issuer
	accounts *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  db.NewMemoryStore(),
		clock:  newTestClock(),
		hasher: password.NewHasher(bcrypt.MinCost),
	}
	f.issuer = auth.NewIssuer([]byte("test-secret"), time.Hour, 30*24*time.Hour, auth.WithIssuerClock(f.clock.Now))
	f.accounts = NewAccountService(f.store, f.hasher, f.issuer, logging.Discard(), WithClock(f.clock.Now))
	return f
}

func aliceInput() RegisterInput {
	return RegisterInput{
		Email:           "  Alice@Example.com ",
		Password:        strongPassword,
		ConfirmPassword: strongPassword,
		FirstName:       "Alice",
		LastName:        "Smith",
	}
}
