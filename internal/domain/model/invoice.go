package model

import (
	"crypto/rand"
	"time"

	"subscription-billing/internal/domain"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// ProcessingFeeRate is the flat gateway fee added on top of the NGN amount.
var ProcessingFeeRate = decimal.RequireFromString("0.05")

// Invoice is one billing instance of a subscription cycle. Amounts and the
// exchange rate are snapshotted at creation and never recomputed.
type Invoice struct {
	ID               string          `json:"id"`
	SubscriptionID   string          `json:"subscription_id"`
	ClientID         string          `json:"client_id"`
	InvoiceNumber    string          `json:"invoice_number"`
	AmountUSD        decimal.Decimal `json:"amount_usd"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	AmountNGN        decimal.Decimal `json:"amount_ngn"`
	ProcessingFeeNGN decimal.Decimal `json:"processing_fee_ngn"`
	TotalNGN         decimal.Decimal `json:"total_ngn"`
	DueDate          time.Time       `json:"due_date"`
	Status           InvoiceStatus   `json:"status"`
	GatewayReference *string         `json:"gateway_reference,omitempty"`
	PaymentLink      *string         `json:"payment_link,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	ReminderSent     bool            `json:"reminder_sent"`
	ReminderSentAt   *time.Time      `json:"reminder_sent_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Charges is the NGN breakdown of a USD price at a given rate.
type Charges struct {
	AmountNGN        decimal.Decimal
	ProcessingFeeNGN decimal.Decimal
	TotalNGN         decimal.Decimal
}

// ComputeCharges converts to whole naira, then adds the processing fee
// rounded to the kobo.
func ComputeCharges(priceUSD, rate decimal.Decimal) Charges {
	amount := priceUSD.Mul(rate).Round(0)
	fee := amount.Mul(ProcessingFeeRate).Round(2)
	return Charges{
		AmountNGN:        amount,
		ProcessingFeeNGN: fee,
		TotalNGN:         amount.Add(fee),
	}
}

// NewInvoiceForCycle builds the pending invoice for the subscription's
// current cycle.
func NewInvoiceForCycle(sub *Subscription, rate decimal.Decimal, now time.Time) (*Invoice, error) {
	if sub == nil || sub.ID == "" || sub.ClientID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !sub.IsActive() {
		return nil, domain.ErrSubscriptionNotActive
	}
	if !rate.IsPositive() {
		return nil, domain.ErrInvalidArgument
	}
	c := ComputeCharges(sub.PriceUSD, rate)
	return &Invoice{
		ID:               uuid.NewString(),
		SubscriptionID:   sub.ID,
		ClientID:         sub.ClientID,
		InvoiceNumber:    NewInvoiceNumber(now),
		AmountUSD:        sub.PriceUSD,
		ExchangeRate:     rate,
		AmountNGN:        c.AmountNGN,
		ProcessingFeeNGN: c.ProcessingFeeNGN,
		TotalNGN:         c.TotalNGN,
		DueDate:          sub.NextBilling,
		Status:           InvoiceStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// NewInvoiceNumber returns a sortable, collision-resistant number such as
// INV-01J9Z3K6V8W2N4Q7R5T1Y0X3AB.
func NewInvoiceNumber(now time.Time) string {
	return "INV-" + ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// IsOpen reports whether the invoice still blocks a new one for its
// subscription.
func (i *Invoice) IsOpen() bool {
	return i.Status == InvoiceStatusPending || i.Status == InvoiceStatusOverdue
}

// TotalKobo is the amount charged through the gateway, in minor units.
func (i *Invoice) TotalKobo() int64 {
	return i.TotalNGN.Shift(2).Round(0).IntPart()
}

// ReminderCoolingDown reports whether a reminder was sent within window.
func (i *Invoice) ReminderCoolingDown(now time.Time, window time.Duration) bool {
	return i.ReminderSent && i.ReminderSentAt != nil && i.ReminderSentAt.After(now.Add(-window))
}

// InvoiceFilter narrows admin listings.
type InvoiceFilter struct {
	Status         InvoiceStatus
	SubscriptionID string
	ClientID       string
	Limit          int
}
