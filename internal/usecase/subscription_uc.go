// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/logging"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionInput struct {
	ClientID  string          `json:"client_id" validate:"required"`
	PlanName  string          `json:"plan_name" validate:"required,min=3,max=100"`
	PriceUSD  decimal.Decimal `json:"price_usd"`
	Duration  string          `json:"duration" validate:"required,oneof=monthly quarterly yearly"`
	StartDate *time.Time      `json:"start_date,omitempty"`
}

type SubscriptionUseCase interface {
	// Create stores the subscription and issues its first invoice. Invoice
	// failures are logged; the subscription is still returned.
	Create(ctx context.Context, in SubscriptionInput) (*model.Subscription, *model.Invoice, error)
	Get(ctx context.Context, id string) (*model.Subscription, error)
	List(ctx context.Context, f repository.SubscriptionFilter) ([]*model.Subscription, error)
	Delete(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) (*model.Subscription, error)
}

type subscriptionUC struct {
	clients   repository.ClientRepository
	subs      repository.SubscriptionRepository
	lifecycle LifecycleUseCase
	log       *zerolog.Logger
}

func NewSubscriptionUseCase(clients repository.ClientRepository, subs repository.SubscriptionRepository, lifecycle LifecycleUseCase, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{clients: clients, subs: subs, lifecycle: lifecycle, log: logger}
}

func (u *subscriptionUC) Create(ctx context.Context, in SubscriptionInput) (*model.Subscription, *model.Invoice, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Create")()

	dur, err := model.ParseDuration(in.Duration)
	if err != nil {
		return nil, nil, err
	}
	if _, err := u.clients.FindByID(ctx, repository.NoTX, in.ClientID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.NewValidationError("client_id", "client does not exist")
		}
		return nil, nil, err
	}
	var start time.Time
	if in.StartDate != nil {
		start = *in.StartDate
	}
	sub, err := model.NewSubscription(in.ClientID, in.PlanName, in.PriceUSD, dur, start)
	if err != nil {
		return nil, nil, err
	}
	if err := u.subs.Save(ctx, repository.NoTX, sub); err != nil {
		return nil, nil, err
	}

	inv, err := u.lifecycle.CreateInvoiceForCycle(ctx, sub)
	if err != nil {
		log := logging.With(ctx, u.log)
		log.Error().Err(err).Str("subscription_id", sub.ID).Msg("first invoice not created; removing subscription")
		if derr := u.subs.Delete(ctx, repository.NoTX, sub.ID); derr != nil {
			log.Error().Err(derr).Str("subscription_id", sub.ID).Msg("subscription without invoice left behind")
		}
		return nil, nil, fmt.Errorf("create first invoice: %w", err)
	}
	return sub, inv, nil
}

func (u *subscriptionUC) Get(ctx context.Context, id string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Get")()
	return u.subs.FindByID(ctx, repository.NoTX, id)
}

func (u *subscriptionUC) List(ctx context.Context, f repository.SubscriptionFilter) ([]*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.List")()
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	return u.subs.List(ctx, repository.NoTX, f)
}

func (u *subscriptionUC) Delete(ctx context.Context, id string) error {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Delete")()
	return u.subs.Delete(ctx, repository.NoTX, id)
}

func (u *subscriptionUC) Cancel(ctx context.Context, id string) (*model.Subscription, error) {
	return u.lifecycle.CancelSubscription(ctx, id)
}
