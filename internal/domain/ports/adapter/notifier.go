package adapter

import (
	"context"

	"subscription-billing/internal/domain/model"
)

// Reminder is everything a renewal reminder shows.
type Reminder struct {
	Client       *model.Client
	Subscription *model.Subscription
	Invoice      *model.Invoice
}

// ReminderNotifier renders and delivers a renewal reminder. Delivery
// failures surface as *domain.TransportError.
type ReminderNotifier interface {
	SendReminder(ctx context.Context, r Reminder) error
}

// AdminAlerter pushes short operational notes to the operators.
type AdminAlerter interface {
	Alert(ctx context.Context, text string) error
}
