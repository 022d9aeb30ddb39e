package repomanager

import (
	"context"
	"database/sql"

	"github.com/neexa/neexa-backend/internal/dbx"
	"github.com/neexa/neexa-backend/internal/server/repositories/accounts"
	"github.com/neexa/neexa-backend/internal/server/repositories/resettokens"
)

// RepositoryManager builds repositories over a connection or transaction
// and owns the schema migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	ResetTokens(db dbx.DBTX) resettokens.Repository
}
