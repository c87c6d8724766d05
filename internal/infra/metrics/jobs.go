package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		jobRunsTotal,
		jobDuration,
	)
}

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_job_runs_total",
			Help: "Scheduled job runs, labeled by job and status.",
		},
		[]string{"job", "status"}, // status: 'ok', 'error', 'panic', 'locked'
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_job_duration_seconds",
			Help:    "Scheduled job duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"job"},
	)
)

func ObserveJob(job, status string, seconds float64) {
	jobRunsTotal.WithLabelValues(norm(job), norm(status)).Inc()
	if seconds > 0 {
		jobDuration.WithLabelValues(norm(job)).Observe(seconds)
	}
}
