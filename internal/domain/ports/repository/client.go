package repository

import (
	"context"

	"subscription-billing/internal/domain/model"
)

type ClientRepository interface {
	// Save inserts a client; a taken email yields domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, c *model.Client) error
	Update(ctx context.Context, tx Tx, c *model.Client) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Client, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Client, error)
	List(ctx context.Context, tx Tx, limit, offset int) ([]*model.Client, error)
	// Delete removes the client and, by cascade, its subscriptions, invoices
	// and payments.
	Delete(ctx context.Context, tx Tx, id string) error
	Count(ctx context.Context, tx Tx) (int, error)
}
