// Package handler exposes the checkout API over HTTP.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/oru-store/checkout-api/internal/domain/order"
	"github.com/oru-store/checkout-api/internal/domain/pickup"
	"github.com/oru-store/checkout-api/internal/domain/shipping"
	"github.com/oru-store/checkout-api/internal/montonio"
)

// Handler holds the domain services behind the HTTP surface.
type Handler struct {
	orders   *order.Service
	shipping *shipping.Resolver
	pickup   *pickup.Locator
	creds    *montonio.CredentialChain
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	orders *order.Service,
	shippingResolver *shipping.Resolver,
	pickupLocator *pickup.Locator,
	creds *montonio.CredentialChain,
) *Handler {
	return &Handler{
		orders:   orders,
		shipping: shippingResolver,
		pickup:   pickupLocator,
		creds:    creds,
	}
}

// Routes mounts the checkout API endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/orders", h.CreateOrder)
	r.Post("/subscriptions", h.CreateSubscription)
	r.Post("/montonio-webhook", h.Webhook)
	r.Get("/payment-status/{order_id}", h.PaymentStatus)
	r.Get("/pickup-points/{provider}", h.PickupPoints)
	r.Get("/shipping-methods", h.ShippingMethods)
	return r
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Error("Encoding response failed", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondJSON(w, r, status, map[string]string{"error": msg, "message": msg})
}
