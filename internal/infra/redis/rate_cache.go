package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/infra/metrics"
)

const exchangeRateKey = "billing:exchange:usd_ngn"

var _ adapter.RateCache = (*RateCache)(nil)

// RateCache keeps the last good USD/NGN quote. Entries live for ttl so the
// provider can still serve them as stale once they stop being fresh.
type RateCache struct {
	cli RedisClient
	ttl time.Duration
}

func NewRateCache(cli RedisClient, ttl time.Duration) *RateCache {
	return &RateCache{cli: cli, ttl: ttl}
}

type cachedQuote struct {
	Rate      string    `json:"rate"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (c *RateCache) Get(ctx context.Context) (*model.RateQuote, error) {
	raw, err := c.cli.Get(ctx, exchangeRateKey)
	if errors.Is(err, ErrCacheMiss) {
		metrics.IncCacheRequest("exchange_rate", "miss")
		return nil, nil
	}
	if err != nil {
		metrics.IncCacheRequest("exchange_rate", "error")
		return nil, err
	}
	var cq cachedQuote
	if err := json.Unmarshal([]byte(raw), &cq); err != nil {
		metrics.IncCacheRequest("exchange_rate", "error")
		return nil, err
	}
	rate, err := decimal.NewFromString(cq.Rate)
	if err != nil || !rate.IsPositive() {
		metrics.IncCacheRequest("exchange_rate", "error")
		return nil, errors.New("cached exchange rate is invalid")
	}
	metrics.IncCacheRequest("exchange_rate", "hit")
	return &model.RateQuote{Rate: rate, Source: model.RateSourceCache, FetchedAt: cq.FetchedAt}, nil
}

func (c *RateCache) Set(ctx context.Context, q model.RateQuote) error {
	b, err := json.Marshal(cachedQuote{Rate: q.Rate.String(), FetchedAt: q.FetchedAt})
	if err != nil {
		return err
	}
	return c.cli.Set(ctx, exchangeRateKey, string(b), c.ttl)
}
