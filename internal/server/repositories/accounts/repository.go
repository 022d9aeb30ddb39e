package accounts

import (
	"context"

	"github.com/neexa/neexa-backend/internal/server/models"
)

// Repository persists accounts. The ForUpdate variants lock the row until
// the surrounding transaction ends and must be called inside one.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByEmailForUpdate(ctx context.Context, email string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
}
