// File: internal/usecase/lifecycle_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/logging"
	"subscription-billing/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ LifecycleUseCase = (*lifecycleUC)(nil)

// Webhook confirmation outcomes.
const (
	OutcomePaid             = "paid"
	OutcomeReplay           = "replay"
	OutcomeLatePayment      = "late_payment"
	OutcomeUnknownReference = "unknown_reference"
	OutcomeOrphanInvoice    = "orphan_invoice"
)

// LifecycleUseCase drives the subscription, invoice and payment state machine.
type LifecycleUseCase interface {
	// CreateInvoiceForCycle issues the pending invoice for sub's current cycle.
	CreateInvoiceForCycle(ctx context.Context, sub *model.Subscription) (*model.Invoice, error)
	// GenerateInvoice is the admin entry point for CreateInvoiceForCycle.
	GenerateInvoice(ctx context.Context, subscriptionID string) (*model.Invoice, error)
	// EnsurePaymentLink initializes a gateway charge for inv when it has no
	// link yet. Best effort: inv is returned unchanged on gateway failure.
	EnsurePaymentLink(ctx context.Context, inv *model.Invoice, client *model.Client) *model.Invoice
	// ConfirmPayment applies a successful charge notification exactly once.
	ConfirmPayment(ctx context.Context, ev model.ChargeEvent) (ConfirmResult, error)
	// SweepOverdue expires lapsed subscriptions and marks late invoices overdue.
	SweepOverdue(ctx context.Context, now time.Time) (SweepResult, error)
	VerifyPayment(ctx context.Context, reference string) (*PaymentVerification, error)
	CancelSubscription(ctx context.Context, id string) (*model.Subscription, error)
}

type ConfirmResult struct {
	Outcome       string `json:"outcome"`
	InvoiceID     string `json:"invoice_id,omitempty"`
	PaymentID     string `json:"payment_id,omitempty"`
	NextInvoiceID string `json:"next_invoice_id,omitempty"`
}

type SweepResult struct {
	Expired int   `json:"expired"`
	Overdue int64 `json:"overdue"`
}

type PaymentVerification struct {
	Payment *model.Payment             `json:"payment"`
	Gateway adapter.ChargeVerification `json:"gateway"`
}

// LifecycleConfig carries the checkout URLs handed to the gateway.
type LifecycleConfig struct {
	CallbackURL string
	CancelURL   string
	Currency    string
	Dev         bool
}

type lifecycleUC struct {
	clients  repository.ClientRepository
	subs     repository.SubscriptionRepository
	invoices repository.InvoiceRepository
	payments repository.PaymentRepository
	tm       repository.TransactionManager
	gateway  adapter.PaymentGateway
	rates    adapter.ExchangeRateProvider
	events   adapter.EventPublisher
	cfg      LifecycleConfig
	log      *zerolog.Logger
	now      func() time.Time
}

// errPaymentReplay rolls back a confirmation whose payment already exists.
var errPaymentReplay = errors.New("payment already recorded")

func NewLifecycleUseCase(
	clients repository.ClientRepository,
	subs repository.SubscriptionRepository,
	invoices repository.InvoiceRepository,
	payments repository.PaymentRepository,
	tm repository.TransactionManager,
	gateway adapter.PaymentGateway,
	rates adapter.ExchangeRateProvider,
	events adapter.EventPublisher,
	cfg LifecycleConfig,
	logger *zerolog.Logger,
) *lifecycleUC {
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	l := logger.With().Str("component", "lifecycle").Logger()
	return &lifecycleUC{
		clients:  clients,
		subs:     subs,
		invoices: invoices,
		payments: payments,
		tm:       tm,
		gateway:  gateway,
		rates:    rates,
		events:   events,
		cfg:      cfg,
		log:      &l,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (u *lifecycleUC) CreateInvoiceForCycle(ctx context.Context, sub *model.Subscription) (*model.Invoice, error) {
	defer logging.TraceDuration(u.log, "LifecycleUC.CreateInvoiceForCycle")()
	return u.createInvoice(ctx, sub, "cycle")
}

func (u *lifecycleUC) createInvoice(ctx context.Context, sub *model.Subscription, origin string) (*model.Invoice, error) {
	if !sub.IsActive() {
		return nil, domain.ErrSubscriptionNotActive
	}
	quote := u.rates.Rate(ctx)
	inv, err := model.NewInvoiceForCycle(sub, quote.Rate, u.now())
	if err != nil {
		return nil, err
	}
	if err := u.invoices.Save(ctx, repository.NoTX, inv); err != nil {
		return nil, err
	}
	metrics.IncInvoiceCreated(origin)
	u.publish(ctx, adapter.EventInvoiceCreated, inv)

	log := logging.With(ctx, u.log)
	log.Info().
		Str("invoice", inv.InvoiceNumber).
		Str("subscription_id", sub.ID).
		Str("total_ngn", inv.TotalNGN.StringFixed(2)).
		Str("rate_source", string(quote.Source)).
		Msg("invoice created")

	client, err := u.clients.FindByID(ctx, repository.NoTX, inv.ClientID)
	if err != nil {
		log.Warn().Err(err).Str("invoice", inv.InvoiceNumber).Msg("client lookup failed; invoice left without payment link")
		return inv, nil
	}
	return u.EnsurePaymentLink(ctx, inv, client), nil
}

func (u *lifecycleUC) GenerateInvoice(ctx context.Context, subscriptionID string) (*model.Invoice, error) {
	defer logging.TraceDuration(u.log, "LifecycleUC.GenerateInvoice")()

	sub, err := u.subs.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !sub.IsActive() {
		return nil, domain.ErrSubscriptionNotActive
	}
	open, err := u.invoices.FindOpenBySubscription(ctx, repository.NoTX, sub.ID)
	switch {
	case err == nil && open != nil:
		return nil, domain.ErrDuplicateInvoice
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	return u.createInvoice(ctx, sub, "admin")
}

func (u *lifecycleUC) EnsurePaymentLink(ctx context.Context, inv *model.Invoice, client *model.Client) *model.Invoice {
	if inv == nil || inv.Status != model.InvoiceStatusPending {
		return inv
	}
	if inv.PaymentLink != nil && *inv.PaymentLink != "" {
		return inv
	}
	log := logging.With(ctx, u.log)
	if client == nil {
		log.Warn().Str("invoice", inv.InvoiceNumber).Msg("no client for payment link")
		return inv
	}

	reference := fmt.Sprintf("%s-%d", inv.InvoiceNumber, u.now().UnixMilli())
	sess, err := u.gateway.InitializeCharge(ctx, adapter.ChargeRequest{
		Email:       client.Email,
		AmountMinor: inv.TotalKobo(),
		Currency:    u.cfg.Currency,
		Reference:   reference,
		CallbackURL: u.cfg.CallbackURL,
		CancelURL:   u.cfg.CancelURL,
		Metadata: map[string]any{
			"invoice_id":      inv.ID,
			"subscription_id": inv.SubscriptionID,
			"client_id":       inv.ClientID,
			"invoice_number":  inv.InvoiceNumber,
			"custom_fields": []map[string]string{
				{"display_name": "Invoice Number", "variable_name": "invoice_number", "value": inv.InvoiceNumber},
				{"display_name": "Client", "variable_name": "client_name", "value": client.Name},
			},
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("invoice", inv.InvoiceNumber).Msg("payment link not created")
		return inv
	}
	if sess.Reference != "" {
		reference = sess.Reference
	}
	if err := u.invoices.SetPaymentLink(ctx, repository.NoTX, inv.ID, reference, sess.AuthorizationURL); err != nil {
		log.Error().Err(err).Str("invoice", inv.InvoiceNumber).Msg("store payment link")
		return inv
	}
	link := sess.AuthorizationURL
	inv.GatewayReference = &reference
	inv.PaymentLink = &link
	return inv
}

func (u *lifecycleUC) ConfirmPayment(ctx context.Context, ev model.ChargeEvent) (ConfirmResult, error) {
	defer logging.TraceDuration(u.log, "LifecycleUC.ConfirmPayment")()
	if ev.Reference == "" {
		return ConfirmResult{}, domain.NewValidationError("reference", "is required")
	}
	log := logging.With(ctx, u.log).With().Str("reference", logging.Redact(ev.Reference, u.cfg.Dev)).Logger()

	// The next cycle's rate is fetched outside the transaction so a slow
	// upstream never holds the invoice lock.
	quote := u.rates.Rate(ctx)
	now := u.now()

	var (
		res     ConfirmResult
		payment *model.Payment
		next    *model.Invoice
		paidInv *model.Invoice
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		res, payment, next, paidInv = ConfirmResult{}, nil, nil, nil

		inv, err := u.invoices.FindByReference(ctx, tx, ev.Reference)
		if errors.Is(err, domain.ErrNotFound) {
			res.Outcome = OutcomeUnknownReference
			return nil
		}
		if err != nil {
			return err
		}
		res.InvoiceID = inv.ID

		switch inv.Status {
		case model.InvoiceStatusPaid:
			res.Outcome = OutcomeReplay
			return nil
		case model.InvoiceStatusOverdue:
			p, err := u.recordPayment(ctx, tx, inv, ev, now)
			if err != nil {
				return err
			}
			payment = p
			res.Outcome = OutcomeLatePayment
			res.PaymentID = p.ID
			return nil
		}

		ok, err := u.invoices.MarkPaid(ctx, tx, inv.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			res.Outcome = OutcomeReplay
			return nil
		}
		inv.Status = model.InvoiceStatusPaid
		inv.PaidAt = &now
		paidInv = inv

		sub, err := u.subs.FindByID(ctx, tx, inv.SubscriptionID)
		if errors.Is(err, domain.ErrNotFound) {
			res.Outcome = OutcomeOrphanInvoice
			return nil
		}
		if err != nil {
			return err
		}

		if sub.IsActive() {
			sub.AdvanceBilling(now)
			if err := u.subs.UpdateNextBilling(ctx, tx, sub.ID, sub.NextBilling, now); err != nil {
				return err
			}
			n, err := model.NewInvoiceForCycle(sub, quote.Rate, now)
			if err != nil {
				return err
			}
			if err := u.invoices.Save(ctx, tx, n); err != nil {
				return err
			}
			next = n
			res.NextInvoiceID = n.ID
		}

		p, err := u.recordPayment(ctx, tx, inv, ev, now)
		if err != nil {
			return err
		}
		payment = p
		res.PaymentID = p.ID
		res.Outcome = OutcomePaid
		return nil
	})
	if errors.Is(err, errPaymentReplay) {
		log.Info().Msg("payment already recorded; confirmation rolled back")
		return ConfirmResult{Outcome: OutcomeReplay, InvoiceID: res.InvoiceID}, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("confirm payment failed")
		return ConfirmResult{}, err
	}

	switch res.Outcome {
	case OutcomeUnknownReference:
		log.Warn().Msg("charge for unknown reference ignored")
	case OutcomeReplay:
		log.Info().Str("invoice_id", res.InvoiceID).Msg("invoice already paid; replay ignored")
	case OutcomeOrphanInvoice:
		log.Warn().Str("invoice_id", res.InvoiceID).Msg("invoice paid but subscription is gone")
	case OutcomeLatePayment:
		log.Warn().Str("invoice_id", res.InvoiceID).Msg("payment for overdue invoice recorded without renewal")
	default:
		log.Info().Str("invoice_id", res.InvoiceID).Str("next_invoice_id", res.NextInvoiceID).Msg("invoice paid")
	}

	if paidInv != nil {
		metrics.AddInvoiceTransitions(string(model.InvoiceStatusPaid), 1)
		u.publish(ctx, adapter.EventInvoicePaid, paidInv)
	}
	if payment != nil {
		metrics.IncPayment(payment.Channel)
		metrics.AddPaymentRevenue(payment.Currency, payment.Amount.InexactFloat64())
		u.publish(ctx, adapter.EventPaymentRecorded, payment)
		if expected := paidInvTotal(paidInv); expected > 0 && ev.AmountMinor < expected {
			log.Warn().Int64("paid_minor", ev.AmountMinor).Int64("expected_minor", expected).Msg("charge amount below invoice total")
		}
	}
	if next != nil {
		metrics.IncInvoiceCreated("renewal")
		u.publish(ctx, adapter.EventInvoiceCreated, next)
		client, err := u.clients.FindByID(ctx, repository.NoTX, next.ClientID)
		if err != nil {
			log.Warn().Err(err).Str("invoice", next.InvoiceNumber).Msg("client lookup failed; renewal left without payment link")
		} else {
			u.EnsurePaymentLink(ctx, next, client)
		}
	}
	return res, nil
}

func paidInvTotal(inv *model.Invoice) int64 {
	if inv == nil {
		return 0
	}
	return inv.TotalKobo()
}

func (u *lifecycleUC) recordPayment(ctx context.Context, tx repository.Tx, inv *model.Invoice, ev model.ChargeEvent, now time.Time) (*model.Payment, error) {
	p, err := model.NewPaymentFromCharge(inv.ID, ev, now)
	if err != nil {
		return nil, err
	}
	if err := u.payments.Save(ctx, tx, p); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, errPaymentReplay
		}
		return nil, err
	}
	return p, nil
}

func (u *lifecycleUC) SweepOverdue(ctx context.Context, now time.Time) (SweepResult, error) {
	defer logging.TraceDuration(u.log, "LifecycleUC.SweepOverdue")()
	log := logging.With(ctx, u.log)

	var res SweepResult
	ids, expErr := u.subs.ExpireDue(ctx, repository.NoTX, now)
	if expErr != nil {
		log.Error().Err(expErr).Msg("expire subscriptions")
	} else {
		res.Expired = len(ids)
		metrics.IncSubscriptionsExpired(len(ids))
		if len(ids) > 0 {
			u.publish(ctx, adapter.EventSubscriptionExpired, map[string]any{"subscription_ids": ids, "at": now})
		}
	}

	n, ovdErr := u.invoices.MarkOverdue(ctx, repository.NoTX, now)
	if ovdErr != nil {
		log.Error().Err(ovdErr).Msg("mark invoices overdue")
	} else {
		res.Overdue = n
		metrics.AddInvoiceTransitions(string(model.InvoiceStatusOverdue), n)
	}

	log.Info().Int("expired", res.Expired).Int64("overdue", res.Overdue).Msg("maintenance sweep finished")
	return res, errors.Join(expErr, ovdErr)
}

func (u *lifecycleUC) VerifyPayment(ctx context.Context, reference string) (*PaymentVerification, error) {
	defer logging.TraceDuration(u.log, "LifecycleUC.VerifyPayment")()
	if reference == "" {
		return nil, domain.NewValidationError("reference", "is required")
	}
	p, err := u.payments.FindByReference(ctx, repository.NoTX, reference)
	if err != nil {
		return nil, err
	}
	v, err := u.gateway.VerifyCharge(ctx, reference)
	if err != nil {
		return nil, err
	}
	return &PaymentVerification{Payment: p, Gateway: v}, nil
}

func (u *lifecycleUC) CancelSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "LifecycleUC.CancelSubscription")()
	ok, err := u.subs.Cancel(ctx, repository.NoTX, id, u.now())
	if err != nil {
		return nil, err
	}
	sub, err := u.subs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSubscriptionNotActive
	}
	metrics.IncSubscriptionsCancelled()
	logging.With(ctx, u.log).Info().Str("subscription_id", id).Msg("subscription cancelled")
	return sub, nil
}

func (u *lifecycleUC) publish(ctx context.Context, key string, payload any) {
	if u.events == nil {
		return
	}
	if err := u.events.Publish(ctx, key, payload); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Str("event", key).Msg("publish event")
	}
}
