package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		gatewayRequestsTotal,
		gatewayDuration,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_payments_total",
			Help: "Payments recorded, labeled by channel.",
		},
		[]string{"channel"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_payments_revenue_total",
			Help: "The total monetary value of recorded payments in major units, labeled by currency.",
		},
		[]string{"currency"},
	)

	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_gateway_requests_total",
			Help: "Outbound payment gateway calls by operation and result.",
		},
		[]string{"op", "result"}, // op: initialize|verify; result: ok|error|open
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_gateway_duration_seconds",
			Help:    "Payment gateway call latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"op"},
	)
)

func IncPayment(channel string) {
	if channel == "" {
		channel = "unknown"
	}
	paymentsTotal.WithLabelValues(norm(channel)).Inc()
}

func AddPaymentRevenue(currency string, amount float64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount)
}

func ObserveGateway(op, result string, seconds float64) {
	gatewayRequestsTotal.WithLabelValues(norm(op), norm(result)).Inc()
	gatewayDuration.WithLabelValues(norm(op)).Observe(seconds)
}
