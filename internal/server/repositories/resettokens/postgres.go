// Package resettokens stores password reset tokens.
package resettokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neexa/neexa-backend/internal/common"
	"github.com/neexa/neexa-backend/internal/dbx"
	"github.com/neexa/neexa-backend/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.ResetToken) (*models.ResetToken, error) {
	query :=
		`INSERT INTO password_reset_tokens (token, account_id, expires_at, used, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		token.Token, token.AccountID, token.ExpiresAt, token.Used, token.CreatedAt).Scan(&token.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.ResetToken, error) {
	return r.getOne(ctx,
		`SELECT id, token, account_id, expires_at, used, created_at FROM password_reset_tokens
		 WHERE token = $1`, token)
}

func (r *PostgresRepository) GetByTokenForUpdate(ctx context.Context, token string) (*models.ResetToken, error) {
	return r.getOne(ctx,
		`SELECT id, token, account_id, expires_at, used, created_at FROM password_reset_tokens
		 WHERE token = $1 FOR UPDATE`, token)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, token string) (*models.ResetToken, error) {
	t := &models.ResetToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&t.ID, &t.Token, &t.AccountID, &t.ExpiresAt, &t.Used, &t.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id int64) error {
	query :=
		`UPDATE password_reset_tokens SET used = TRUE
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id)
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
