package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/infra/metrics"
)

var _ adapter.ExchangeRateProvider = (*Provider)(nil)

// Provider answers in order: fresh cache, live source, stale cache, fixed
// fallback. Rate never fails.
type Provider struct {
	source   adapter.RateSource
	cache    adapter.RateCache
	fresh    time.Duration
	fallback decimal.Decimal
	log      *zerolog.Logger
	now      func() time.Time
}

func NewProvider(source adapter.RateSource, cache adapter.RateCache, freshFor time.Duration, fallback decimal.Decimal, logger *zerolog.Logger) *Provider {
	if cache == nil {
		cache = NewMemoryCache()
	}
	l := logger.With().Str("component", "exchange_rate").Logger()
	return &Provider{
		source:   source,
		cache:    cache,
		fresh:    freshFor,
		fallback: fallback,
		log:      &l,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *Provider) Rate(ctx context.Context) model.RateQuote {
	cached, err := p.cache.Get(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("rate cache read failed")
	}
	if cached != nil && p.now().Sub(cached.FetchedAt) < p.fresh {
		return p.observe(*cached)
	}

	q, err := p.Refresh(ctx)
	if err == nil {
		return q
	}

	if cached != nil {
		p.log.Warn().Err(err).Time("fetched_at", cached.FetchedAt).Msg("live rate unavailable, serving stale cache")
		stale := *cached
		stale.Source = model.RateSourceStale
		return p.observe(stale)
	}
	p.log.Warn().Err(err).Str("fallback", p.fallback.String()).Msg("live rate unavailable, serving fallback")
	return p.observe(model.RateQuote{Rate: p.fallback, Source: model.RateSourceFallback, FetchedAt: p.now()})
}

func (p *Provider) Refresh(ctx context.Context) (model.RateQuote, error) {
	rate, err := p.source.FetchUSDNGN(ctx)
	if err != nil {
		return model.RateQuote{}, err
	}
	q := model.RateQuote{Rate: rate, Source: model.RateSourceLive, FetchedAt: p.now()}
	if err := p.cache.Set(ctx, q); err != nil {
		p.log.Warn().Err(err).Msg("rate cache write failed")
	}
	return p.observe(q), nil
}

func (p *Provider) observe(q model.RateQuote) model.RateQuote {
	f, _ := q.Rate.Float64()
	metrics.ObserveExchangeRate(string(q.Source), f)
	return q
}

var _ adapter.RateCache = (*MemoryCache)(nil)

// MemoryCache is the process-local RateCache used when redis is not
// configured.
type MemoryCache struct {
	mu sync.RWMutex
	q  *model.RateQuote
}

func NewMemoryCache() *MemoryCache { return &MemoryCache{} }

func (c *MemoryCache) Get(context.Context) (*model.RateQuote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.q == nil {
		return nil, nil
	}
	q := *c.q
	q.Source = model.RateSourceCache
	return &q, nil
}

func (c *MemoryCache) Set(_ context.Context, q model.RateQuote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.q = &q
	return nil
}
