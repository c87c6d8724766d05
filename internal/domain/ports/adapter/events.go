package adapter

import "context"

const (
	EventInvoiceCreated      = "invoice.created"
	EventInvoicePaid         = "invoice.paid"
	EventPaymentRecorded     = "payment.recorded"
	EventSubscriptionExpired = "subscription.expired.sweep"
)

// EventPublisher emits lifecycle events. Publishing is best effort; callers
// log and continue on error.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}
