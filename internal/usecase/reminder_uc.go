// File: internal/usecase/reminder_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/logging"
	"subscription-billing/internal/infra/metrics"
	"subscription-billing/internal/infra/worker"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ReminderUseCase = (*reminderUC)(nil)

const (
	ReminderSent    = "sent"
	ReminderSkipped = "skipped"
	ReminderFailed  = "failed"
)

// ReminderUseCase selects due subscriptions and mails renewal reminders.
type ReminderUseCase interface {
	FindDueSubscriptions(ctx context.Context, now time.Time, windowDays int) ([]*model.DueSubscription, error)
	SendReminderForSubscription(ctx context.Context, due *model.DueSubscription, now time.Time) (ReminderResult, error)
	// SendReminder is the admin single-send for one subscription.
	SendReminder(ctx context.Context, subscriptionID string) (ReminderResult, error)
	// RunBatch sends to every entry; one failure never stops the others.
	RunBatch(ctx context.Context, due []*model.DueSubscription, now time.Time) BatchResult
	SendDueReminders(ctx context.Context, now time.Time, windowDays int) (BatchResult, error)
}

type ReminderResult struct {
	SubscriptionID string `json:"subscription_id"`
	ClientEmail    string `json:"client_email,omitempty"`
	InvoiceID      string `json:"invoice_id,omitempty"`
	InvoiceNumber  string `json:"invoice_number,omitempty"`
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
	Error          string `json:"error,omitempty"`
}

type BatchResult struct {
	Results []ReminderResult `json:"results"`
	Sent    int              `json:"sent"`
	Skipped int              `json:"skipped"`
	Failed  int              `json:"failed"`
}

type ReminderConfig struct {
	Cooldown time.Duration
	Workers  int
}

type reminderUC struct {
	clients   repository.ClientRepository
	subs      repository.SubscriptionRepository
	invoices  repository.InvoiceRepository
	lifecycle LifecycleUseCase
	notifier  adapter.ReminderNotifier
	cfg       ReminderConfig
	log       *zerolog.Logger
	now       func() time.Time
}

func NewReminderUseCase(
	clients repository.ClientRepository,
	subs repository.SubscriptionRepository,
	invoices repository.InvoiceRepository,
	lifecycle LifecycleUseCase,
	notifier adapter.ReminderNotifier,
	cfg ReminderConfig,
	logger *zerolog.Logger,
) *reminderUC {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 24 * time.Hour
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	l := logger.With().Str("component", "reminders").Logger()
	return &reminderUC{
		clients:   clients,
		subs:      subs,
		invoices:  invoices,
		lifecycle: lifecycle,
		notifier:  notifier,
		cfg:       cfg,
		log:       &l,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (u *reminderUC) FindDueSubscriptions(ctx context.Context, now time.Time, windowDays int) ([]*model.DueSubscription, error) {
	defer logging.TraceDuration(u.log, "ReminderUC.FindDueSubscriptions")()
	if windowDays < 0 {
		return nil, domain.NewValidationError("window_days", "must not be negative")
	}
	return u.subs.FindDue(ctx, repository.NoTX, now, now.AddDate(0, 0, windowDays))
}

func (u *reminderUC) SendReminderForSubscription(ctx context.Context, due *model.DueSubscription, now time.Time) (ReminderResult, error) {
	defer logging.TraceDuration(u.log, "ReminderUC.SendReminderForSubscription")()
	if due == nil || due.Subscription == nil || due.Client == nil {
		return ReminderResult{Status: ReminderFailed, Reason: "invalid_input"}, domain.ErrInvalidArgument
	}
	sub := due.Subscription
	res := ReminderResult{SubscriptionID: sub.ID, ClientEmail: due.Client.Email}
	log := logging.With(ctx, u.log).With().Str("subscription_id", sub.ID).Logger()

	if !sub.IsActive() {
		return u.skip(res, "not_active"), nil
	}

	inv, err := u.openInvoice(ctx, sub)
	if err != nil {
		log.Error().Err(err).Msg("resolve invoice for reminder")
		return u.fail(res, err), err
	}
	res.InvoiceID, res.InvoiceNumber = inv.ID, inv.InvoiceNumber

	if inv.Status == model.InvoiceStatusOverdue {
		return u.skip(res, "overdue_invoice"), nil
	}
	if inv.ReminderCoolingDown(now, u.cfg.Cooldown) {
		return u.skip(res, "cooldown"), nil
	}

	prev := inv.ReminderSentAt
	claimed, err := u.invoices.ClaimReminder(ctx, repository.NoTX, inv.ID, now, now.Add(-u.cfg.Cooldown))
	if err != nil {
		log.Error().Err(err).Msg("claim reminder slot")
		return u.fail(res, err), err
	}
	if !claimed {
		return u.skip(res, "cooldown"), nil
	}

	inv = u.lifecycle.EnsurePaymentLink(ctx, inv, due.Client)

	if err := u.notifier.SendReminder(ctx, adapter.Reminder{Client: due.Client, Subscription: sub, Invoice: inv}); err != nil {
		if relErr := u.invoices.ReleaseReminder(ctx, repository.NoTX, inv.ID, now, prev); relErr != nil {
			log.Error().Err(relErr).Msg("release reminder claim")
		}
		var te *domain.TransportError
		if !errors.As(err, &te) {
			err = &domain.TransportError{Channel: "email", Err: err}
		}
		log.Warn().Err(err).Str("to", logging.Redact(due.Client.Email, false)).Msg("reminder not delivered")
		return u.fail(res, err), err
	}

	metrics.IncReminder(ReminderSent)
	log.Info().Str("invoice", inv.InvoiceNumber).Msg("reminder sent")
	res.Status = ReminderSent
	return res, nil
}

// openInvoice reuses the subscription's open invoice or issues a new one.
func (u *reminderUC) openInvoice(ctx context.Context, sub *model.Subscription) (*model.Invoice, error) {
	inv, err := u.invoices.FindOpenBySubscription(ctx, repository.NoTX, sub.ID)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	inv, err = u.lifecycle.CreateInvoiceForCycle(ctx, sub)
	if errors.Is(err, domain.ErrDuplicateInvoice) {
		// lost a race with another creator; use theirs
		return u.invoices.FindOpenBySubscription(ctx, repository.NoTX, sub.ID)
	}
	return inv, err
}

func (u *reminderUC) skip(res ReminderResult, reason string) ReminderResult {
	metrics.IncReminder(ReminderSkipped)
	res.Status, res.Reason = ReminderSkipped, reason
	return res
}

func (u *reminderUC) fail(res ReminderResult, err error) ReminderResult {
	metrics.IncReminder(ReminderFailed)
	res.Status, res.Error = ReminderFailed, err.Error()
	return res
}

func (u *reminderUC) SendReminder(ctx context.Context, subscriptionID string) (ReminderResult, error) {
	defer logging.TraceDuration(u.log, "ReminderUC.SendReminder")()
	sub, err := u.subs.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return ReminderResult{}, err
	}
	if !sub.IsActive() {
		return ReminderResult{}, domain.ErrSubscriptionNotActive
	}
	client, err := u.clients.FindByID(ctx, repository.NoTX, sub.ClientID)
	if err != nil {
		return ReminderResult{}, err
	}
	return u.SendReminderForSubscription(ctx, &model.DueSubscription{Subscription: sub, Client: client}, u.now())
}

func (u *reminderUC) RunBatch(ctx context.Context, due []*model.DueSubscription, now time.Time) BatchResult {
	defer logging.TraceDuration(u.log, "ReminderUC.RunBatch")()

	results := make([]ReminderResult, len(due))
	pool := worker.NewPool(u.cfg.Workers, u.log)
	for i, d := range due {
		i, d := i, d
		err := pool.Submit(ctx, func(ctx context.Context) error {
			r, err := u.SendReminderForSubscription(ctx, d, now)
			results[i] = r
			return err
		})
		if err != nil {
			r := ReminderResult{Status: ReminderFailed, Error: err.Error()}
			if d != nil && d.Subscription != nil {
				r.SubscriptionID = d.Subscription.ID
			}
			results[i] = r
		}
	}
	pool.Close()

	out := BatchResult{Results: results}
	for _, r := range results {
		switch r.Status {
		case ReminderSent:
			out.Sent++
		case ReminderSkipped:
			out.Skipped++
		default:
			out.Failed++
		}
	}
	logging.With(ctx, u.log).Info().
		Int("due", len(due)).Int("sent", out.Sent).Int("skipped", out.Skipped).Int("failed", out.Failed).
		Msg("reminder batch finished")
	return out
}

func (u *reminderUC) SendDueReminders(ctx context.Context, now time.Time, windowDays int) (BatchResult, error) {
	due, err := u.FindDueSubscriptions(ctx, now, windowDays)
	if err != nil {
		return BatchResult{}, err
	}
	return u.RunBatch(ctx, due, now), nil
}
