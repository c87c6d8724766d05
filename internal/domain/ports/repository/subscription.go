package repository

import (
	"context"
	"time"

	"subscription-billing/internal/domain/model"

	"github.com/shopspring/decimal"
)

type SubscriptionFilter struct {
	ClientID string
	Status   model.SubscriptionStatus
	Limit    int
	Offset   int
}

// SubscriptionRepository is the port for recurring billing agreements.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	// FindByID locks the row when called inside a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	List(ctx context.Context, tx Tx, f SubscriptionFilter) ([]*model.Subscription, error)
	Delete(ctx context.Context, tx Tx, id string) error

	// UpdateNextBilling persists an advanced billing date.
	UpdateNextBilling(ctx context.Context, tx Tx, id string, next, updatedAt time.Time) error
	// Cancel flips active to cancelled; false when the row was not active.
	Cancel(ctx context.Context, tx Tx, id string, now time.Time) (bool, error)
	// ExpireDue flips every active subscription whose next billing is before
	// now to expired and returns the affected ids.
	ExpireDue(ctx context.Context, tx Tx, now time.Time) ([]string, error)
	// FindDue returns active subscriptions billing within [from, to] joined
	// with their client.
	FindDue(ctx context.Context, tx Tx, from, to time.Time) ([]*model.DueSubscription, error)

	// --- Statistics read-only methods ---
	CountActive(ctx context.Context, tx Tx) (int, error)
	CountDue(ctx context.Context, tx Tx, from, to time.Time) (int, error)
	// ActiveRevenueByDuration sums price_usd of active subscriptions per cycle.
	ActiveRevenueByDuration(ctx context.Context, tx Tx) (map[model.Duration]decimal.Decimal, error)
}
