package resettokens

import (
	"context"

	"github.com/neexa/neexa-backend/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.ResetToken) (*models.ResetToken, error)
	GetByToken(ctx context.Context, token string) (*models.ResetToken, error)
	// GetByTokenForUpdate locks the row until the surrounding transaction ends.
	GetByTokenForUpdate(ctx context.Context, token string) (*models.ResetToken, error)
	MarkUsed(ctx context.Context, id int64) error
}
