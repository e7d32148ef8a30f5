package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/oru-store/checkout-api/internal/domain/order"
)

// CreateOrder handles a cart submission: it builds and persists the order and
// initiates payment, returning the gateway redirect URL.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	h.createOrder(w, r, false)
}

// CreateSubscription is order creation with the subscription discount forced
// on, regardless of the submitted flag.
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	h.createOrder(w, r, true)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request, forceSubscription bool) {
	var req order.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if forceSubscription {
		req.IsSubscription = true
	}

	result, err := h.orders.Create(r.Context(), req)
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"success":     true,
		"order_id":    result.Order.ID,
		"order_key":   result.Order.Key,
		"payment_url": result.PaymentURL,
		"total":       result.Order.Total.InexactFloat64(),
		"items_count": result.ItemsAdded,
		"status":      string(result.Order.Status),
	})
}

func (h *Handler) respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrMissingBilling), errors.Is(err, order.ErrMissingItems):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNoValidItems):
		respondError(w, r, http.StatusInternalServerError, err.Error())
	default:
		var payErr *order.PaymentError
		if errors.As(err, &payErr) {
			// The order survives a gateway failure; hand its id back so the
			// client can offer a payment retry instead of a fresh checkout.
			respondJSON(w, r, http.StatusInternalServerError, map[string]any{
				"success":  false,
				"message":  "Order created but payment initialization failed: " + payErr.Err.Error(),
				"order_id": payErr.OrderID,
			})
			return
		}
		zctx.From(r.Context()).Error("Order creation failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// PaymentStatus is a read-only projection of an order's state, safe for the
// storefront to poll while the customer completes payment.
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusNotFound, "order not found")
		return
	}

	o, err := h.orders.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		zctx.From(r.Context()).Error("Order status lookup failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"order_id":       o.ID,
		"status":         string(o.Status),
		"payment_method": o.PaymentMethod,
		"total":          o.Total.InexactFloat64(),
		"paid":           o.IsPaid(),
	})
}
