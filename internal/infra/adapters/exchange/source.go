package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/infra/httpclient"
)

var _ adapter.RateSource = (*HTTPSource)(nil)

// HTTPSource reads NGN from an exchangerate-api style "latest/USD" document.
type HTTPSource struct {
	url    string
	client *httpclient.Client
}

func NewHTTPSource(cfg config.ExchangeConfig, logger *zerolog.Logger) *HTTPSource {
	l := logger.With().Str("component", "exchange_source").Logger()
	return &HTTPSource{
		url:    cfg.URL,
		client: httpclient.New(httpclient.Options{Name: "exchange_rate", Timeout: cfg.Timeout}, &l),
	}
}

type latestRates struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (s *HTTPSource) FetchUSDNGN(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, &domain.TransportError{Channel: "exchange_rate", Err: err}
	}
	if resp.Status != http.StatusOK {
		return decimal.Zero, &domain.TransportError{Channel: "exchange_rate", Err: fmt.Errorf("http %d", resp.Status)}
	}
	var doc latestRates
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return decimal.Zero, &domain.TransportError{Channel: "exchange_rate", Err: fmt.Errorf("decode: %w", err)}
	}
	ngn, ok := doc.Rates["NGN"]
	if !ok || !ngn.IsPositive() {
		return decimal.Zero, &domain.TransportError{Channel: "exchange_rate", Err: fmt.Errorf("no usable NGN rate")}
	}
	return ngn, nil
}
