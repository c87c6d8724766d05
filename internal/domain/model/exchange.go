package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type RateSource string

const (
	RateSourceLive     RateSource = "live"
	RateSourceCache    RateSource = "cache"
	RateSourceStale    RateSource = "stale"
	RateSourceFallback RateSource = "fallback"
)

// RateQuote is an NGN-per-USD rate and where it came from.
type RateQuote struct {
	Rate      decimal.Decimal `json:"rate"`
	Source    RateSource      `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}
