package main

import (
	"context"
	"fmt"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/adapters/email"
	"subscription-billing/internal/infra/adapters/events"
	"subscription-billing/internal/infra/adapters/exchange"
	"subscription-billing/internal/infra/adapters/payment"
	"subscription-billing/internal/infra/adapters/telegram"
	pg "subscription-billing/internal/infra/db/postgres"
	red "subscription-billing/internal/infra/redis"
	"subscription-billing/internal/infra/sched"
	"subscription-billing/internal/usecase"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// app holds every wired component. Optional infrastructure (redis, amqp,
// telegram) degrades to in-process fallbacks when not configured.
type app struct {
	cfg *config.Config
	log *zerolog.Logger

	pool   *pgxpool.Pool
	redis  *red.Client
	events adapter.EventPublisher

	invoices repository.InvoiceRepository
	payments repository.PaymentRepository

	webhook *payment.PaystackWebhook
	rates   *exchange.Provider

	auth          usecase.AuthUseCase
	clients       usecase.ClientUseCase
	subscriptions usecase.SubscriptionUseCase
	lifecycle     usecase.LifecycleUseCase
	reminders     usecase.ReminderUseCase
	stats         usecase.StatsUseCase

	scheduler *sched.Scheduler

	closers []func()
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)

	// ---- Redis (optional) ----
	var rateCache adapter.RateCache
	if cfg.Redis.URL != "" {
		cli, err := red.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable; using in-process rate cache without locks")
		} else {
			a.redis = cli
			a.closers = append(a.closers, func() { _ = cli.Close() })
			rateCache = red.NewRateCache(cli, cfg.Redis.TTL)
		}
	}

	// ---- Events (optional) ----
	a.events = events.NewNoopPublisher(logger)
	if cfg.AMQP.URL != "" {
		pub, err := events.NewRabbitMQPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("amqp unavailable; lifecycle events are not published")
		} else {
			a.events = pub
			a.closers = append(a.closers, func() { _ = pub.Close() })
		}
	}

	// ---- Gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Paystack.SecretKey != "" {
		gateway = payment.NewPaystackGateway(cfg.Paystack, logger)
	} else {
		logger.Warn().Msg("paystack.secret_key not set; using noop gateway and rejecting all webhooks")
		gateway = payment.NewNoopPaymentGateway()
	}
	a.webhook = payment.NewPaystackWebhook(cfg.Paystack.SecretKey)

	// ---- Exchange rate ----
	fallback, err := decimal.NewFromString(cfg.Exchange.Fallback)
	if err != nil || !fallback.IsPositive() {
		return nil, fmt.Errorf("exchange.fallback %q is not a positive number", cfg.Exchange.Fallback)
	}
	a.rates = exchange.NewProvider(exchange.NewHTTPSource(cfg.Exchange, logger), rateCache, cfg.Exchange.CacheTTL, fallback, logger)

	// ---- Email ----
	sender, err := email.NewSender(cfg.Email, logger)
	if err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}
	notifier := email.NewReminderNotifier(sender, cfg.Email.FromName)

	// ---- Repositories ----
	clientRepo := pg.NewClientRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	adminRepo := pg.NewAdminRepo(pool)
	tm := pg.NewTxManager(pool)
	a.invoices, a.payments = invoiceRepo, paymentRepo

	// ---- Use cases ----
	lifecycle := usecase.NewLifecycleUseCase(
		clientRepo, subRepo, invoiceRepo, paymentRepo, tm,
		gateway, a.rates, a.events,
		usecase.LifecycleConfig{
			CallbackURL: cfg.HTTP.FrontendURL + "/payment-success",
			CancelURL:   cfg.HTTP.FrontendURL + "/payment-cancelled",
			Dev:         cfg.Runtime.Dev,
		},
		logger,
	)
	a.lifecycle = lifecycle
	a.reminders = usecase.NewReminderUseCase(clientRepo, subRepo, invoiceRepo, lifecycle, notifier,
		usecase.ReminderConfig{Cooldown: cfg.Scheduler.ReminderCooldown, Workers: cfg.Scheduler.Workers}, logger)
	a.clients = usecase.NewClientUseCase(clientRepo, logger)
	a.subscriptions = usecase.NewSubscriptionUseCase(clientRepo, subRepo, lifecycle, logger)
	a.auth = usecase.NewAuthUseCase(adminRepo, logger)
	a.stats = usecase.NewStatsUseCase(clientRepo, subRepo, invoiceRepo, a.rates, logger)

	// ---- Scheduler ----
	deps := sched.Deps{
		Reminders: a.reminders,
		Lifecycle: lifecycle,
		Rates:     a.rates,
		Alerter:   a.alerter(),
	}
	if a.redis != nil {
		deps.Locker = red.NewLocker(a.redis)
	}
	a.scheduler, err = sched.New(cfg.Scheduler, deps, logger)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return a, nil
}

func (a *app) alerter() adapter.AdminAlerter {
	if a.cfg.Telegram.Token == "" {
		return telegram.NewNoopAlerter(a.log)
	}
	bot, err := telegram.NewBotAlerter(a.cfg.Telegram, a.log)
	if err != nil {
		a.log.Warn().Err(err).Msg("telegram alerts disabled")
		return telegram.NewNoopAlerter(a.log)
	}
	return bot
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
