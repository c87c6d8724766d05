package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		exchangeRate,
		exchangeRateLookupsTotal,
	)
}

var (
	exchangeRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "billing_exchange_rate_usd_ngn",
			Help: "Last NGN per USD rate handed out.",
		},
	)

	exchangeRateLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_exchange_rate_lookups_total",
			Help: "Exchange rate lookups by the source that answered.",
		},
		[]string{"source"}, // 'live', 'cache', 'stale', 'fallback'
	)
)

func ObserveExchangeRate(source string, rate float64) {
	exchangeRateLookupsTotal.WithLabelValues(norm(source)).Inc()
	exchangeRate.Set(rate)
}
