package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/neexa/neexa-backend/internal/dbx"
	"github.com/neexa/neexa-backend/internal/server/repositories/accounts"
	"github.com/neexa/neexa-backend/internal/server/repositories/resettokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeManager struct {
	migrateErr error
	migrated   bool
}

func (f *fakeManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	f.migrated = true
	return f.migrateErr
}

func (f *fakeManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

func (f *fakeManager) ResetTokens(db dbx.DBTX) resettokens.Repository {
	return resettokens.NewPostgresRepository(db)
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *fakeManager) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp), sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	rm := &fakeManager{}
	return NewPostgresStore(conn, rm), mock, rm
}

func TestPostgresStore_WithinTxCommits(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE\s+password_reset_tokens`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithinTx(context.Background(), func(ctx context.Context, repos Repositories) error {
		return repos.ResetTokens().MarkUsed(ctx, 3)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithinTxRollsBack(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE\s+password_reset_tokens`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), func(ctx context.Context, repos Repositories) error {
		return repos.ResetTokens().MarkUsed(ctx, 3)
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, _, rm := newMockStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	assert.True(t, rm.migrated)

	rm.migrateErr = errors.New("boom")
	err := s.Migrate(context.Background())
	assert.ErrorContains(t, err, "migration error: boom")
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectPing()
	require.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, s.Ping(context.Background()))
}
