package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/oru-store/checkout-api/internal/domain/order"
	"github.com/oru-store/checkout-api/internal/montonio"
)

// maxWebhookBody bounds webhook payload reads.
const maxWebhookBody = 1 << 20

// Webhook receives asynchronous payment-status notifications from the
// gateway. The HMAC signature is verified before any order lookup; once the
// sender is authenticated and the order resolves, the response is always
// {success: true} even for statuses that trigger no transition.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	secret := h.webhookSecret(r)
	if !montonio.VerifySignature(body, r.Header.Get(montonio.SignatureHeader), secret) {
		respondError(w, r, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	n, err := montonio.ParseNotification(body)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid notification body")
		return
	}

	if err := h.orders.HandleNotification(r.Context(), n); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "Order not found")
			return
		}
		zctx.From(r.Context()).Error("Webhook processing failed",
			zap.String("merchant_reference", n.MerchantReference), zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

// webhookSecret resolves the shared signing secret from the merchant
// credential chain. A missing secret fails signature verification, which is
// the correct failure mode for an unconfigured gateway.
func (h *Handler) webhookSecret(r *http.Request) []byte {
	creds, err := h.creds.Resolve(r.Context())
	if err != nil {
		if !errors.Is(err, montonio.ErrNotConfigured) {
			zctx.From(r.Context()).Error("Credential resolution failed", zap.Error(err))
		}
		return nil
	}
	return []byte(creds.SecretKey)
}
