// Package db is the durable store the services talk to: a unit of work over
// the account and reset token repositories, backed by PostgreSQL or by an
// in-memory map for tests and local runs.
package db

import (
	"context"

	"github.com/neexa/neexa-backend/internal/server/repositories/accounts"
	"github.com/neexa/neexa-backend/internal/server/repositories/resettokens"
)

// Repositories groups the repositories bound to one connection or
// transaction.
type Repositories interface {
	Accounts() accounts.Repository
	ResetTokens() resettokens.Repository
}

// Store hands out repositories. Work passed to WithinTx commits when fn
// returns nil and is discarded otherwise; inside fn only the repositories
// passed as argument may be used.
type Store interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}
