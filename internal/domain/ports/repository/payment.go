package repository

import (
	"context"

	"subscription-billing/internal/domain/model"
)

// PaymentRepository stores immutable gateway payment records.
type PaymentRepository interface {
	// Save inserts once per gateway reference; a replay yields
	// domain.ErrAlreadyExists without aborting an enclosing transaction.
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Payment, error)
	List(ctx context.Context, tx Tx, limit, offset int) ([]*model.PaymentView, error)
}
