package repository

import (
	"context"
	"time"

	"subscription-billing/internal/domain/model"
)

type InvoiceRepository interface {
	// Save inserts an invoice. A second open invoice for the same
	// subscription yields domain.ErrDuplicateInvoice.
	Save(ctx context.Context, tx Tx, inv *model.Invoice) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Invoice, error)
	// FindByReference locks the row when called inside a transaction.
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Invoice, error)
	// FindOpenBySubscription returns the pending or overdue invoice, or
	// domain.ErrNotFound.
	FindOpenBySubscription(ctx context.Context, tx Tx, subscriptionID string) (*model.Invoice, error)
	List(ctx context.Context, tx Tx, f model.InvoiceFilter) ([]*model.Invoice, error)

	SetPaymentLink(ctx context.Context, tx Tx, id, reference, link string) error
	// MarkPaid moves pending to paid; false when the invoice was not pending.
	MarkPaid(ctx context.Context, tx Tx, id string, paidAt time.Time) (bool, error)
	// MarkOverdue moves every pending invoice due before now to overdue.
	MarkOverdue(ctx context.Context, tx Tx, now time.Time) (int64, error)

	// ClaimReminder stamps reminder_sent_at=now on a pending invoice unless a
	// reminder was sent after notBefore. False means another caller owns it.
	ClaimReminder(ctx context.Context, tx Tx, id string, now, notBefore time.Time) (bool, error)
	// ReleaseReminder undoes a claim made at claimedAt, restoring prev.
	ReleaseReminder(ctx context.Context, tx Tx, id string, claimedAt time.Time, prev *time.Time) error

	CountByStatus(ctx context.Context, tx Tx) (map[model.InvoiceStatus]int, error)
}
