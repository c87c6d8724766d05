package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/infra/httpclient"
	"subscription-billing/internal/infra/metrics"
)

const providerPaystack = "paystack"

var _ adapter.PaymentGateway = (*PaystackGateway)(nil)

// PaystackGateway implements PaymentGateway against the Paystack
// transaction API using the secret key as bearer token.
type PaystackGateway struct {
	secretKey string
	baseURL   string
	client    *httpclient.Client
	log       *zerolog.Logger
}

func NewPaystackGateway(cfg config.PaystackConfig, logger *zerolog.Logger) *PaystackGateway {
	l := logger.With().Str("component", "paystack").Logger()
	return &PaystackGateway{
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		client:    httpclient.New(httpclient.Options{Name: providerPaystack, Timeout: cfg.Timeout}, &l),
		log:       &l,
	}
}

func (g *PaystackGateway) Name() string { return providerPaystack }

// envelope is Paystack's common response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Channel         string `json:"channel"`
	GatewayResponse string `json:"gateway_response"`
	PaidAt          string `json:"paid_at"`
}

func (g *PaystackGateway) InitializeCharge(ctx context.Context, req adapter.ChargeRequest) (adapter.ChargeSession, error) {
	if g.secretKey == "" {
		return adapter.ChargeSession{}, &domain.GatewayError{Provider: providerPaystack, Message: "secret key not configured"}
	}
	if req.Email == "" || req.AmountMinor <= 0 || req.Reference == "" {
		return adapter.ChargeSession{}, domain.ErrInvalidArgument
	}
	currency := req.Currency
	if currency == "" {
		currency = "NGN"
	}
	body := map[string]any{
		"email":     req.Email,
		"amount":    req.AmountMinor,
		"currency":  currency,
		"reference": req.Reference,
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}
	if req.CancelURL != "" {
		body["metadata"] = withCancelAction(req.Metadata, req.CancelURL)
	} else if req.Metadata != nil {
		body["metadata"] = req.Metadata
	}

	var data initializeData
	if err := g.call(ctx, "initialize", http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return adapter.ChargeSession{}, err
	}
	if data.AuthorizationURL == "" {
		return adapter.ChargeSession{}, &domain.GatewayError{Provider: providerPaystack, Message: "no authorization url returned"}
	}
	ref := data.Reference
	if ref == "" {
		ref = req.Reference
	}
	return adapter.ChargeSession{AuthorizationURL: data.AuthorizationURL, AccessCode: data.AccessCode, Reference: ref}, nil
}

// withCancelAction copies meta and adds the checkout cancel redirect, which
// Paystack reads from metadata.cancel_action.
func withCancelAction(meta map[string]any, cancelURL string) map[string]any {
	out := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out["cancel_action"] = cancelURL
	return out
}

func (g *PaystackGateway) VerifyCharge(ctx context.Context, reference string) (adapter.ChargeVerification, error) {
	if reference == "" {
		return adapter.ChargeVerification{}, domain.ErrInvalidArgument
	}
	var raw json.RawMessage
	if err := g.call(ctx, "verify", http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &raw); err != nil {
		return adapter.ChargeVerification{}, err
	}
	var data verifyData
	if err := json.Unmarshal(raw, &data); err != nil {
		return adapter.ChargeVerification{}, &domain.GatewayError{Provider: providerPaystack, Message: "undecodable verify payload"}
	}
	return adapter.ChargeVerification{
		Reference:       data.Reference,
		Status:          data.Status,
		Channel:         data.Channel,
		AmountMinor:     data.Amount,
		Currency:        data.Currency,
		GatewayResponse: data.GatewayResponse,
		PaidAt:          data.PaidAt,
		Raw:             raw,
	}, nil
}

// call performs one API round trip and decodes envelope.data into out.
func (g *PaystackGateway) call(ctx context.Context, op, method, path string, in any, out any) (err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.ObserveGateway(op, result, time.Since(start).Seconds())
	}()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Warn().Err(err).Str("op", op).Msg("paystack unreachable")
		return &domain.GatewayError{Provider: providerPaystack, Message: err.Error()}
	}

	var env envelope
	decodeErr := json.Unmarshal(resp.Body, &env)
	if resp.Status < 200 || resp.Status > 299 || decodeErr != nil || !env.Status {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.Status)
		}
		g.log.Warn().Int("status", resp.Status).Str("op", op).Str("message", msg).Msg("paystack rejected request")
		return &domain.GatewayError{Provider: providerPaystack, Status: resp.Status, Message: msg}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &domain.GatewayError{Provider: providerPaystack, Status: resp.Status, Message: "undecodable response data"}
	}
	return nil
}
