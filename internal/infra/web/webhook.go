package web

import (
	"errors"
	"io"
	"net/http"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/infra/adapters/payment"
	"subscription-billing/internal/infra/logging"
	"subscription-billing/internal/infra/metrics"
)

const webhookProvider = "paystack"

// handlePaystackWebhook acknowledges every authenticated delivery with 200,
// including ones that change nothing, so the gateway stops retrying. Only
// storage failures return 5xx.
func (s *Server) handlePaystackWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		metrics.IncWebhookEvent(webhookProvider, "bad_payload")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unreadable body", Kind: kindValidation})
		return
	}

	ev, err := s.deps.Webhook.ParseWebhook(body, r.Header.Get(payment.SignatureHeader))
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		metrics.IncWebhookEvent(webhookProvider, "bad_signature")
		log.Warn().Str("remote", clientIP(r)).Msg("webhook signature rejected")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid signature", Kind: kindUnauthorized})
		return
	case err != nil:
		metrics.IncWebhookEvent(webhookProvider, "bad_payload")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed payload", Kind: kindValidation})
		return
	}

	if ev.Charge == nil {
		metrics.IncWebhookEvent(webhookProvider, "ignored")
		log.Debug().Str("event", ev.Type).Msg("webhook event ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	res, err := s.deps.Lifecycle.ConfirmPayment(r.Context(), *ev.Charge)
	if err != nil {
		metrics.IncWebhookEvent(webhookProvider, "error")
		log.Error().Err(err).Str("reference", logging.Redact(ev.Charge.Reference, s.dev)).Msg("confirm payment failed")
		writeError(w, r, s.log, s.dev, err)
		return
	}
	metrics.IncWebhookEvent(webhookProvider, res.Outcome)
	log.Info().
		Str("outcome", res.Outcome).
		Str("reference", logging.Redact(ev.Charge.Reference, s.dev)).
		Str("invoice_id", res.InvoiceID).
		Msg("webhook processed")
	writeJSON(w, http.StatusOK, map[string]string{"status": res.Outcome})
}
