package usecase

import (
	"context"
	"time"

	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
	ExchangeRate(ctx context.Context) model.RateQuote
}

type statsUC struct {
	clients  repository.ClientRepository
	subs     repository.SubscriptionRepository
	invoices repository.InvoiceRepository
	rates    adapter.ExchangeRateProvider

	dueWindow time.Duration
	log       *zerolog.Logger
}

func NewStatsUseCase(clients repository.ClientRepository, subs repository.SubscriptionRepository, invoices repository.InvoiceRepository, rates adapter.ExchangeRateProvider, logger *zerolog.Logger) *statsUC {
	return &statsUC{clients: clients, subs: subs, invoices: invoices, rates: rates, dueWindow: 7 * 24 * time.Hour, log: logger}
}

func (s *statsUC) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	clients, err := s.clients.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	active, err := s.subs.CountActive(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	revenue, err := s.subs.ActiveRevenueByDuration(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	due, err := s.subs.CountDue(ctx, repository.NoTX, now, now.Add(s.dueWindow))
	if err != nil {
		return nil, err
	}
	byStatus, err := s.invoices.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	st := &model.DashboardStats{
		TotalClients:        clients,
		ActiveSubscriptions: active,
		MonthlyRevenueUSD:   revenue[model.DurationMonthly],
		QuarterlyRevenueUSD: revenue[model.DurationQuarterly],
		YearlyRevenueUSD:    revenue[model.DurationYearly],
		DueSubscriptions:    due,
		PendingInvoices:     byStatus[model.InvoiceStatusPending],
		PaidInvoices:        byStatus[model.InvoiceStatusPaid],
		OverdueInvoices:     byStatus[model.InvoiceStatusOverdue],
	}
	st.TotalRevenueUSD = st.MonthlyRevenueUSD.Add(st.QuarterlyRevenueUSD).Add(st.YearlyRevenueUSD)

	metrics.SetSubscriptionsActive(active)
	metrics.SetInvoicesByStatus(map[string]int{
		string(model.InvoiceStatusPending): st.PendingInvoices,
		string(model.InvoiceStatusPaid):    st.PaidInvoices,
		string(model.InvoiceStatusOverdue): st.OverdueInvoices,
	})
	return st, nil
}

func (s *statsUC) ExchangeRate(ctx context.Context) model.RateQuote {
	return s.rates.Rate(ctx)
}
