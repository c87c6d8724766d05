package web

import (
	"net/http"

	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
)

type subscriptionCreated struct {
	Subscription *model.Subscription `json:"subscription"`
	Invoice      *model.Invoice      `json:"invoice,omitempty"`
}

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	q := r.URL.Query()
	f := repository.SubscriptionFilter{
		ClientID: q.Get("client_id"),
		Status:   model.SubscriptionStatus(q.Get("status")),
		Limit:    limit,
		Offset:   offset,
	}
	subs, err := s.deps.Subscriptions.List(r.Context(), f)
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// createSubscription stores the agreement together with its first invoice.
func (s *Server) createSubscription(w http.ResponseWriter, r *http.Request) {
	var in usecase.SubscriptionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	sub, inv, err := s.deps.Subscriptions.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusCreated, subscriptionCreated{Subscription: sub, Invoice: inv})
}

func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.deps.Subscriptions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Subscriptions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Subscription deleted successfully"})
}

func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.deps.Subscriptions.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) sendReminder(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Reminders.SendReminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
