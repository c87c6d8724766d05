package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pg "subscription-billing/internal/infra/db/postgres"
	"subscription-billing/internal/infra/metrics"
	red "subscription-billing/internal/infra/redis"
	"subscription-billing/internal/infra/web"

	"github.com/spf13/cobra"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API, payment webhook and scheduled sweeps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			metrics.MustRegister()
			metrics.SetBuildInfo(version, commit)

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrate {
				if err := pg.Migrate(ctx, a.pool, logger); err != nil {
					return err
				}
			}

			go pg.ReportPoolStats(ctx, a.pool, 15*time.Second, logger)

			// warm the rate so the first invoice does not wait on the source
			if _, err := a.rates.Refresh(ctx); err != nil {
				logger.Warn().Err(err).Msg("initial exchange rate refresh failed")
			}

			deps := web.Deps{
				Auth:          a.auth,
				Clients:       a.clients,
				Subscriptions: a.subscriptions,
				Lifecycle:     a.lifecycle,
				Reminders:     a.reminders,
				Stats:         a.stats,
				Invoices:      a.invoices,
				Payments:      a.payments,
				Webhook:       a.webhook,
				DB:            a.pool,
			}
			if a.redis != nil {
				deps.Limiter = red.NewRateLimiter(a.redis)
			}
			auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			server := web.NewServer(deps, auth, cfg, version, logger).NewHTTPServer()

			if cfg.Scheduler.Enabled {
				a.scheduler.Start()
				logger.Info().Strs("jobs", a.scheduler.JobNames()).Msg("scheduler started")
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http server listening")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
				logger.Info().Msg("shutdown requested")
			case err := <-errCh:
				if err != nil {
					logger.Error().Err(err).Msg("http server failed")
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("http shutdown")
			}
			if cfg.Scheduler.Enabled {
				if err := a.scheduler.Stop(shutdownCtx); err != nil {
					logger.Warn().Err(err).Msg("scheduler did not drain in time")
				}
			}
			logger.Info().Msg("stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}
