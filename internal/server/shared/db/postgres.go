package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neexa/neexa-backend/internal/dbx"
	"github.com/neexa/neexa-backend/internal/server/repositories/accounts"
	"github.com/neexa/neexa-backend/internal/server/repositories/repomanager"
	"github.com/neexa/neexa-backend/internal/server/repositories/resettokens"
)

// PostgresStore runs repositories over a *sql.DB opened with the pgx driver.
type PostgresStore struct {
	db *sql.DB
	rm repomanager.RepositoryManager
}

func NewPostgresStore(db *sql.DB, rm repomanager.RepositoryManager) *PostgresStore {
	return &PostgresStore{db: db, rm: rm}
}

// OpenPostgres opens a pgx connection pool for dsn. The pool connects lazily;
// use Ping to check reachability.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return NewPostgresStore(conn, repomanager.NewPostgresRepositoryManager()), nil
}

type pgRepositories struct {
	rm repomanager.RepositoryManager
	db dbx.DBTX
}

func (r pgRepositories) Accounts() accounts.Repository {
	return r.rm.Accounts(r.db)
}

func (r pgRepositories) ResetTokens() resettokens.Repository {
	return r.rm.ResetTokens(r.db)
}

func (s *PostgresStore) Repositories() Repositories {
	return pgRepositories{rm: s.rm, db: s.db}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, pgRepositories{rm: s.rm, db: tx})
	})
}

// Migrate applies the schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := s.rm.RunMigrations(ctx, s.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
