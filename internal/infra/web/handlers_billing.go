package web

import (
	"net/http"
	"strconv"
	"time"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"

	"github.com/go-chi/chi/v5"
)

type generateInvoiceRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
}

type bulkReminderRequest struct {
	WindowDays *int `json:"window_days,omitempty" validate:"omitempty,min=0,max=60"`
}

func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.InvoiceFilter{
		Status:         model.InvoiceStatus(q.Get("status")),
		SubscriptionID: q.Get("subscription_id"),
		ClientID:       q.Get("client_id"),
	}
	switch f.Status {
	case "", model.InvoiceStatusPending, model.InvoiceStatusPaid, model.InvoiceStatusOverdue:
	default:
		writeError(w, r, s.log, s.dev, domain.NewValidationError("status", "must be pending, paid or overdue"))
		return
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	invs, err := s.deps.Invoices.List(r.Context(), repository.NoTX, f)
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, invs)
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.deps.Invoices.FindByID(r.Context(), repository.NoTX, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) generateInvoice(w http.ResponseWriter, r *http.Request) {
	var req generateInvoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	inv, err := s.deps.Lifecycle.GenerateInvoice(r.Context(), req.SubscriptionID)
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":        "Invoice generated successfully",
		"invoice_number": inv.InvoiceNumber,
		"invoice":        inv,
	})
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	ps, err := s.deps.Payments.List(r.Context(), repository.NoTX, limit, offset)
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Lifecycle.VerifyPayment(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// bulkReminders runs the reminder sweep on demand. The body is optional.
func (s *Server) bulkReminders(w http.ResponseWriter, r *http.Request) {
	window := s.schedCfg.ReminderWindow
	if window <= 0 {
		window = 3
	}
	if r.ContentLength != 0 {
		var req bulkReminderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, s.log, s.dev, err)
			return
		}
		if req.WindowDays != nil {
			window = *req.WindowDays
		}
	}
	res, err := s.deps.Reminders.SendDueReminders(r.Context(), time.Now().UTC(), window)
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) exchangeRate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Stats.ExchangeRate(r.Context()))
}

func (s *Server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Stats.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
