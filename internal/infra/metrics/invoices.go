package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		invoicesCreatedTotal,
		invoiceTransitionsTotal,
		invoicesByStatus,
	)
}

var (
	invoicesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_invoices_created_total",
			Help: "Invoices created, labeled by origin.",
		},
		[]string{"origin"}, // 'subscription', 'admin', 'renewal', 'reminder'
	)

	invoiceTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_invoice_transitions_total",
			Help: "Invoice status transitions.",
		},
		[]string{"to"}, // 'paid', 'overdue'
	)

	invoicesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billing_invoices",
			Help: "Current number of invoices by status, refreshed by the dashboard.",
		},
		[]string{"status"},
	)
)

func IncInvoiceCreated(origin string) {
	invoicesCreatedTotal.WithLabelValues(norm(origin)).Inc()
}

func AddInvoiceTransitions(to string, n int64) {
	if n > 0 {
		invoiceTransitionsTotal.WithLabelValues(norm(to)).Add(float64(n))
	}
}

func SetInvoicesByStatus(counts map[string]int) {
	for status, n := range counts {
		invoicesByStatus.WithLabelValues(norm(status)).Set(float64(n))
	}
}
