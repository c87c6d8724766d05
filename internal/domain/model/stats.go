package model

import "github.com/shopspring/decimal"

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalClients        int             `json:"total_clients"`
	ActiveSubscriptions int             `json:"active_subscriptions"`
	MonthlyRevenueUSD   decimal.Decimal `json:"monthly_revenue_usd"`
	QuarterlyRevenueUSD decimal.Decimal `json:"quarterly_revenue_usd"`
	YearlyRevenueUSD    decimal.Decimal `json:"yearly_revenue_usd"`
	TotalRevenueUSD     decimal.Decimal `json:"total_revenue_usd"`
	DueSubscriptions    int             `json:"due_subscriptions"`
	PendingInvoices     int             `json:"pending_invoices"`
	PaidInvoices        int             `json:"paid_invoices"`
	OverdueInvoices     int             `json:"overdue_invoices"`
}
