package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
)

const (
	// SignatureHeader carries the hex HMAC-SHA512 of the raw body.
	SignatureHeader = "x-paystack-signature"

	EventChargeSuccess = "charge.success"
)

var _ adapter.WebhookVerifier = (*PaystackWebhook)(nil)

type PaystackWebhook struct {
	secret []byte
}

func NewPaystackWebhook(secretKey string) *PaystackWebhook {
	return &PaystackWebhook{secret: []byte(secretKey)}
}

// Sign returns the signature Paystack would send for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (w *PaystackWebhook) verify(body []byte, signature string) bool {
	if len(w.secret) == 0 || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, w.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string          `json:"reference"`
		Amount    int64           `json:"amount"`
		Currency  string          `json:"currency"`
		Channel   string          `json:"channel"`
		Status    string          `json:"status"`
		Metadata  json.RawMessage `json:"metadata"`
	} `json:"data"`
}

// ParseWebhook authenticates the body before decoding it. Only
// charge.success events carry a Charge; other event types come back with
// just their Type.
func (w *PaystackWebhook) ParseWebhook(body []byte, signature string) (adapter.WebhookEvent, error) {
	if !w.verify(body, signature) {
		return adapter.WebhookEvent{}, domain.ErrInvalidSignature
	}
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil || p.Event == "" {
		return adapter.WebhookEvent{}, domain.ErrMalformedPayload
	}
	ev := adapter.WebhookEvent{Type: p.Event}
	if p.Event != EventChargeSuccess {
		return ev, nil
	}
	if p.Data.Reference == "" {
		return adapter.WebhookEvent{}, domain.ErrMalformedPayload
	}
	meta := p.Data.Metadata
	// Paystack sends "" or null when no metadata was attached
	if t := bytes.TrimSpace(meta); len(t) == 0 || bytes.Equal(t, []byte(`""`)) || bytes.Equal(t, []byte("null")) {
		meta = nil
	}
	ev.Charge = &model.ChargeEvent{
		Reference:   p.Data.Reference,
		AmountMinor: p.Data.Amount,
		Currency:    p.Data.Currency,
		Channel:     p.Data.Channel,
		Status:      p.Data.Status,
		Metadata:    meta,
	}
	return ev, nil
}
