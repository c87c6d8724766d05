package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(webhookEventsTotal) }

// outcome: paid|replay|late_payment|unknown_reference|orphan_invoice|ignored|bad_signature|bad_payload|error
var webhookEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Payment webhook deliveries by provider and outcome.",
	},
	[]string{"provider", "outcome"},
)

func IncWebhookEvent(provider, outcome string) {
	webhookEventsTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
}
