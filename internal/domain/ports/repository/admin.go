package repository

import (
	"context"
	"time"

	"subscription-billing/internal/domain/model"
)

type AdminRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Admin) error
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Admin, error)
	TouchLogin(ctx context.Context, tx Tx, id string, at time.Time) error
}
