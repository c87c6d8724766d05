package adapter

import (
	"context"

	"subscription-billing/internal/domain/model"

	"github.com/shopspring/decimal"
)

// ExchangeRateProvider yields the NGN-per-USD rate. Rate never fails: it
// degrades to cached, stale or fallback values.
type ExchangeRateProvider interface {
	Rate(ctx context.Context) model.RateQuote
	// Refresh forces a live fetch and caches the result.
	Refresh(ctx context.Context) (model.RateQuote, error)
}

// RateSource fetches a live rate from an upstream API.
type RateSource interface {
	FetchUSDNGN(ctx context.Context) (decimal.Decimal, error)
}

// RateCache stores the last known good quote. Get returns nil, nil on miss.
type RateCache interface {
	Get(ctx context.Context) (*model.RateQuote, error)
	Set(ctx context.Context, q model.RateQuote) error
}
