package adapter

import (
	"context"
	"encoding/json"

	"subscription-billing/internal/domain/model"
)

// ChargeRequest initializes a hosted checkout. Amounts are in minor units.
type ChargeRequest struct {
	Email       string
	AmountMinor int64
	Currency    string
	Reference   string
	CallbackURL string
	CancelURL   string
	Metadata    map[string]any
}

type ChargeSession struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

type ChargeVerification struct {
	Reference       string
	Status          string
	Channel         string
	AmountMinor     int64
	Currency        string
	GatewayResponse string
	PaidAt          string
	Raw             json.RawMessage
}

// PaymentGateway is the hex port for hosted payment providers. Provider
// failures surface as *domain.GatewayError.
type PaymentGateway interface {
	Name() string
	InitializeCharge(ctx context.Context, req ChargeRequest) (ChargeSession, error)
	VerifyCharge(ctx context.Context, reference string) (ChargeVerification, error)
}

// WebhookEvent is an authenticated provider notification. Charge is set only
// for successful charge events.
type WebhookEvent struct {
	Type   string
	Charge *model.ChargeEvent
}

// WebhookVerifier authenticates and decodes provider callbacks.
// Returns domain.ErrInvalidSignature or domain.ErrMalformedPayload.
type WebhookVerifier interface {
	ParseWebhook(body []byte, signature string) (WebhookEvent, error)
}
