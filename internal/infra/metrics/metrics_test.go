//go:build !integration

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestHelpers(t *testing.T) {
	t.Run("should normalize label values", func(t *testing.T) {
		before := counterValue(t, webhookEventsTotal.WithLabelValues("paystack", "replay"))
		IncWebhookEvent(" Paystack ", "REPLAY")
		after := counterValue(t, webhookEventsTotal.WithLabelValues("paystack", "replay"))
		if after-before != 1 {
			t.Errorf("expected counter to grow by 1, got %v", after-before)
		}
	})

	t.Run("should ignore empty transition batches", func(t *testing.T) {
		before := counterValue(t, invoiceTransitionsTotal.WithLabelValues("overdue"))
		AddInvoiceTransitions("overdue", 0)
		AddInvoiceTransitions("overdue", 3)
		after := counterValue(t, invoiceTransitionsTotal.WithLabelValues("overdue"))
		if after-before != 3 {
			t.Errorf("expected counter to grow by 3, got %v", after-before)
		}
	})

	t.Run("should register once", func(t *testing.T) {
		MustRegister()
		MustRegister()
	})
}
