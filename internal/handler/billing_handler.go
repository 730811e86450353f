package handler

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/service"
)

const maxWebhookBytes = 64 << 10

// stripeWebhookHandler needs the raw body: the signature covers the exact bytes.
func stripeWebhookHandler(svc *service.BillingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/webhooks/stripe")
		defer span.End()

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				logger.Warn("webhook body too large", zap.Int64("limit", tooLarge.Limit))
				writeError(w, http.StatusRequestEntityTooLarge, "Webhook Error: payload too large")
				return
			}
			writeError(w, http.StatusBadRequest, "Webhook Error: could not read body")
			return
		}

		ack, err := svc.HandleWebhook(ctx, payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			var sig *domain.ErrInvalidSignature
			if errors.As(err, &sig) {
				writeError(w, http.StatusBadRequest, sig.Error())
				return
			}
			logger.Error("webhook processing failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Webhook processing failed")
			return
		}
		writeJSON(w, http.StatusOK, ack)
	}
}
