package model

import (
	"strings"
	"time"

	"subscription-billing/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Duration is the length of one billing cycle, always a whole number of
// calendar months.
type Duration string

const (
	DurationMonthly   Duration = "monthly"
	DurationQuarterly Duration = "quarterly"
	DurationYearly    Duration = "yearly"
)

func ParseDuration(s string) (Duration, error) {
	d := Duration(strings.ToLower(strings.TrimSpace(s)))
	if d.Months() == 0 {
		return "", domain.NewValidationError("duration", "must be one of monthly, quarterly, yearly")
	}
	return d, nil
}

// Months returns the cycle length in calendar months, 0 for an unknown value.
func (d Duration) Months() int {
	switch d {
	case DurationMonthly:
		return 1
	case DurationQuarterly:
		return 3
	case DurationYearly:
		return 12
	default:
		return 0
	}
}

// Advance moves from forward by exactly one cycle. The day of month is
// pinned to anchorDay and clamped to the last day of shorter months, so a
// subscription anchored on the 31st bills Jan 31, Feb 28, Mar 31.
// The calendar is UTC whatever location from carries; time of day is kept.
func (d Duration) Advance(from time.Time, anchorDay int) time.Time {
	months := d.Months()
	if months == 0 {
		return from
	}
	from = from.UTC()
	if anchorDay <= 0 {
		anchorDay = from.Day()
	}
	y, m, _ := from.Date()
	idx := int(m) - 1 + months
	ty, tm := y+idx/12, time.Month(idx%12+1)
	day := anchorDay
	if last := daysIn(ty, tm); day > last {
		day = last
	}
	return time.Date(ty, tm, day, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), time.UTC)
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Subscription is a recurring billing agreement for one client.
type Subscription struct {
	ID          string             `json:"id"`
	ClientID    string             `json:"client_id"`
	PlanName    string             `json:"plan_name"`
	PriceUSD    decimal.Decimal    `json:"price_usd"`
	Duration    Duration           `json:"duration"`
	StartDate   time.Time          `json:"start_date"`
	NextBilling time.Time          `json:"next_billing"`
	Status      SubscriptionStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewSubscription validates input and sets the first billing date one cycle
// after start.
func NewSubscription(clientID, planName string, priceUSD decimal.Decimal, duration Duration, start time.Time) (*Subscription, error) {
	if clientID == "" {
		return nil, domain.NewValidationError("client_id", "is required")
	}
	planName = strings.TrimSpace(planName)
	if len(planName) < 3 || len(planName) > 100 {
		return nil, domain.NewValidationError("plan_name", "must be between 3 and 100 characters")
	}
	if !priceUSD.IsPositive() {
		return nil, domain.NewValidationError("price_usd", "must be positive")
	}
	if duration.Months() == 0 {
		return nil, domain.NewValidationError("duration", "must be one of monthly, quarterly, yearly")
	}
	now := time.Now().UTC()
	if start.IsZero() {
		start = now
	}
	start = start.UTC()
	return &Subscription{
		ID:          uuid.NewString(),
		ClientID:    clientID,
		PlanName:    planName,
		PriceUSD:    priceUSD,
		Duration:    duration,
		StartDate:   start,
		NextBilling: duration.Advance(start, start.Day()),
		Status:      SubscriptionStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Subscription) IsActive() bool { return s != nil && s.Status == SubscriptionStatusActive }

// AdvanceBilling moves NextBilling one cycle forward from its current value.
func (s *Subscription) AdvanceBilling(now time.Time) {
	s.NextBilling = s.Duration.Advance(s.NextBilling, s.StartDate.UTC().Day())
	s.UpdatedAt = now
}

// DueSubscription is an active subscription joined with its client, as
// selected for a renewal reminder.
type DueSubscription struct {
	Subscription *Subscription
	Client       *Client
}
