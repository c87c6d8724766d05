package web

import (
	"context"
	"net/http"
	"time"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// LoginLimiter throttles login attempts. *redis.RateLimiter satisfies it.
type LoginLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Pinger reports dependency health for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Auth          usecase.AuthUseCase
	Clients       usecase.ClientUseCase
	Subscriptions usecase.SubscriptionUseCase
	Lifecycle     usecase.LifecycleUseCase
	Reminders     usecase.ReminderUseCase
	Stats         usecase.StatsUseCase

	Invoices repository.InvoiceRepository
	Payments repository.PaymentRepository

	Webhook adapter.WebhookVerifier
	// Limiter is optional; nil disables login throttling.
	Limiter LoginLimiter
	// DB is optional; when set /health pings it.
	DB Pinger
}

type Server struct {
	deps     Deps
	auth     *AuthManager
	cfg      config.HTTPConfig
	schedCfg config.SchedulerConfig
	dev      bool
	version  string
	started  time.Time
	log      *zerolog.Logger
}

func NewServer(deps Deps, auth *AuthManager, cfg *config.Config, version string, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "http").Logger()
	return &Server{
		deps:     deps,
		auth:     auth,
		cfg:      cfg.HTTP,
		schedCfg: cfg.Scheduler,
		dev:      cfg.Runtime.Dev,
		version:  version,
		started:  time.Now(),
		log:      &l,
	}
}

// Router builds the public and admin route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		TraceID(),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(s.cfg.RequestTimeout),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found", Kind: kindNotFound})
	})

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/auth/login", s.handleLogin)
	r.Post("/webhook/paystack", s.handlePaystackWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.RequireAdmin)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", s.listClients)
			r.Post("/", s.createClient)
			r.Get("/{id}", s.getClient)
			r.Put("/{id}", s.updateClient)
			r.Delete("/{id}", s.deleteClient)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", s.listSubscriptions)
			r.Post("/", s.createSubscription)
			r.Get("/{id}", s.getSubscription)
			r.Delete("/{id}", s.deleteSubscription)
			r.Post("/{id}/cancel", s.cancelSubscription)
			r.Post("/{id}/send-reminder", s.sendReminder)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", s.listInvoices)
			r.Post("/generate", s.generateInvoice)
			r.Get("/{id}", s.getInvoice)
		})

		r.Get("/payments", s.listPayments)
		r.Get("/payments/verify/{reference}", s.verifyPayment)

		r.Post("/reminders/bulk", s.bulkReminders)
		r.Get("/exchange-rate", s.exchangeRate)
		r.Get("/dashboard/stats", s.dashboardStats)
	})
	return r
}

// NewHTTPServer wraps the router with the configured timeouts.
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "OK", http.StatusOK
	db := "skipped"
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DB.Ping(ctx); err != nil {
			s.log.Warn().Err(err).Msg("health: database ping failed")
			status, code, db = "DEGRADED", http.StatusServiceUnavailable, "down"
		} else {
			db = "up"
		}
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"version":   s.version,
		"database":  db,
	})
}
