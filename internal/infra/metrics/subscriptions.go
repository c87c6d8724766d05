package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionsExpiredTotal,
		subscriptionsCancelledTotal,
		subscriptionsActive,
	)
}

var (
	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_subscriptions_expired_total",
			Help: "Total number of subscriptions expired by the maintenance sweep.",
		},
	)

	subscriptionsCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_subscriptions_cancelled_total",
			Help: "Total number of subscriptions cancelled by an admin.",
		},
	)

	subscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "billing_subscriptions_active",
			Help: "Current number of active subscriptions, refreshed by the dashboard.",
		},
	)
)

func IncSubscriptionsExpired(count int) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func IncSubscriptionsCancelled() {
	subscriptionsCancelledTotal.Inc()
}

func SetSubscriptionsActive(n int) {
	subscriptionsActive.Set(float64(n))
}
