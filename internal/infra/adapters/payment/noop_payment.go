package payment

import (
	"context"
	"fmt"
	"sync"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for dev runs without a
// Paystack key. Every initialized charge verifies as successful.
type NoopPaymentGateway struct {
	mu      sync.Mutex
	intents map[string]adapter.ChargeRequest
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{intents: make(map[string]adapter.ChargeRequest)}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) InitializeCharge(ctx context.Context, req adapter.ChargeRequest) (adapter.ChargeSession, error) {
	if req.Reference == "" || req.AmountMinor <= 0 {
		return adapter.ChargeSession{}, domain.ErrInvalidArgument
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[req.Reference] = req
	return adapter.ChargeSession{
		AuthorizationURL: "https://example.test/pay/" + req.Reference,
		AccessCode:       "noop-" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *NoopPaymentGateway) VerifyCharge(ctx context.Context, reference string) (adapter.ChargeVerification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	req, ok := g.intents[reference]
	if !ok {
		return adapter.ChargeVerification{}, &domain.GatewayError{Provider: "noop", Status: 404, Message: fmt.Sprintf("reference %s not found", reference)}
	}
	currency := req.Currency
	if currency == "" {
		currency = "NGN"
	}
	return adapter.ChargeVerification{
		Reference:       reference,
		Status:          "success",
		Channel:         "noop",
		AmountMinor:     req.AmountMinor,
		Currency:        currency,
		GatewayResponse: "Approved",
	}, nil
}
