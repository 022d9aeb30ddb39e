// Package accounts stores account rows.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neexa/neexa-backend/internal/common"
	"github.com/neexa/neexa-backend/internal/dbx"
	"github.com/neexa/neexa-backend/internal/server/models"
)

const selectColumns = `SELECT id, email, password_hash, first_name, last_name, is_active, is_verified,
		 failed_attempts, locked_until, last_login, phone, date_of_birth, preferred_currency,
		 created_at, updated_at FROM accounts`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (email, password_hash, first_name, last_name, is_active, is_verified,
		 failed_attempts, phone, date_of_birth, preferred_currency, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.Email, account.PasswordHash, account.FirstName, account.LastName,
		account.IsActive, account.IsVerified, account.FailedAttempts,
		account.Phone, account.DateOfBirth, account.PreferredCurrency,
		account.CreatedAt, account.UpdatedAt).Scan(&account.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, selectColumns+` WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, selectColumns+` WHERE email = $1 FOR UPDATE`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.IsActive, &a.IsVerified,
		&a.FailedAttempts, &a.LockedUntil, &a.LastLogin, &a.Phone, &a.DateOfBirth, &a.PreferredCurrency,
		&a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

// Update writes every mutable column of account. Email and created_at are
// fixed at registration.
func (r *PostgresRepository) Update(ctx context.Context, account *models.Account) error {
	query :=
		`UPDATE accounts SET password_hash = $2, first_name = $3, last_name = $4, is_active = $5,
		 is_verified = $6, failed_attempts = $7, locked_until = $8, last_login = $9, phone = $10,
		 date_of_birth = $11, preferred_currency = $12, updated_at = $13
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, account.ID,
		account.PasswordHash, account.FirstName, account.LastName, account.IsActive,
		account.IsVerified, account.FailedAttempts, account.LockedUntil, account.LastLogin, account.Phone,
		account.DateOfBirth, account.PreferredCurrency, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
