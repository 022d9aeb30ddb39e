package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openAccounts(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE accounts (
		id INTEGER PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		failed_attempts INTEGER NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO accounts(email) VALUES ('alice@example.com')`)
	require.NoError(t, err)
	return db
}

func failedAttempts(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT failed_attempts FROM accounts WHERE id = 1`).Scan(&n))
	return n
}

func bump(ctx context.Context, tx DBTX) error {
	_, err := tx.ExecContext(ctx, `UPDATE accounts SET failed_attempts = failed_attempts + 1 WHERE id = 1`)
	return err
}

func TestWithTx_Commit(t *testing.T) {
	db := openAccounts(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return bump(ctx, tx)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, failedAttempts(t, db))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := openAccounts(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, bump(ctx, tx))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, failedAttempts(t, db))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := openAccounts(t)

	assert.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, bump(ctx, tx))
			panic("kaput")
		})
	})
	assert.Equal(t, 0, failedAttempts(t, db))
}

func TestWithTx_ConstraintErrorRollsBackEarlierWrites(t *testing.T) {
	db := openAccounts(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, bump(ctx, tx))
		_, err := tx.ExecContext(ctx, `INSERT INTO accounts(email) VALUES ('alice@example.com')`)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, 0, failedAttempts(t, db))
}

func TestWithTx_BeginError(t *testing.T) {
	db := openAccounts(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestWithTx_CanceledContext(t *testing.T) {
	db := openAccounts(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
		return bump(ctx, tx)
	})
	assert.Error(t, err)
	assert.Equal(t, 0, failedAttempts(t, db))
}
