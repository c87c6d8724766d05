package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(remindersTotal) }

var remindersTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "billing_reminders_total",
		Help: "Renewal reminders by result.",
	},
	[]string{"result"}, // 'sent', 'skipped', 'failed'
)

func IncReminder(result string) {
	remindersTotal.WithLabelValues(norm(result)).Inc()
}
