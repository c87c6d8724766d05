package model

import (
	"encoding/json"
	"time"

	"subscription-billing/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is the immutable record of one successful gateway charge. The
// gateway reference is unique, which makes webhook replays detectable.
type Payment struct {
	ID               string          `json:"id"`
	InvoiceID        string          `json:"invoice_id"`
	GatewayReference string          `json:"gateway_reference"`
	Amount           decimal.Decimal `json:"amount"` // major units (naira)
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	Channel          string          `json:"channel,omitempty"`
	PaidAt           time.Time       `json:"paid_at"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ChargeEvent is a gateway "charge succeeded" notification, amounts in minor
// units as the gateway sends them.
type ChargeEvent struct {
	Reference   string
	AmountMinor int64
	Currency    string
	Channel     string
	Status      string
	Metadata    json.RawMessage
}

func NewPaymentFromCharge(invoiceID string, ev ChargeEvent, now time.Time) (*Payment, error) {
	if invoiceID == "" || ev.Reference == "" {
		return nil, domain.ErrInvalidArgument
	}
	currency := ev.Currency
	if currency == "" {
		currency = "NGN"
	}
	status := ev.Status
	if status == "" {
		status = "success"
	}
	return &Payment{
		ID:               uuid.NewString(),
		InvoiceID:        invoiceID,
		GatewayReference: ev.Reference,
		Amount:           decimal.New(ev.AmountMinor, -2),
		Currency:         currency,
		Status:           status,
		Channel:          ev.Channel,
		PaidAt:           now,
		Metadata:         ev.Metadata,
		CreatedAt:        now,
	}, nil
}

// PaymentView is a payment joined with its invoice and owner for listings.
type PaymentView struct {
	Payment
	InvoiceNumber string `json:"invoice_number"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	PlanName      string `json:"plan_name"`
}
