package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/oru-store/checkout-api/internal/domain/shipping"
)

// shippingMethodView is the wire shape of a classified shipping method.
type shippingMethodView struct {
	ID          string  `json:"id"`
	MethodID    string  `json:"method_id"`
	InstanceID  int     `json:"instance_id"`
	Title       string  `json:"title"`
	Cost        float64 `json:"cost"`
	Description string  `json:"description"`
	IsPickup    bool    `json:"is_pickup"`
	Provider    *string `json:"provider"`
}

// ShippingMethods lists every enabled shipping method with derived carrier
// and delivery-mode fields. Store failures surface as a 500 error payload,
// never an unhandled panic.
func (h *Handler) ShippingMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.shipping.ListMethods(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("Listing shipping methods failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]shippingMethodView, len(methods))
	for i, m := range methods {
		views[i] = shippingMethodView{
			ID:          m.ID,
			MethodID:    m.MethodID,
			InstanceID:  m.InstanceID,
			Title:       m.Title,
			Cost:        m.Cost.InexactFloat64(),
			Description: m.Description,
			IsPickup:    m.IsPickup,
			Provider:    carrierView(m.Carrier),
		}
	}
	respondJSON(w, r, http.StatusOK, views)
}

// carrierView renders an unclassified carrier as JSON null, matching what the
// storefront expects.
func carrierView(c shipping.Carrier) *string {
	if c == shipping.CarrierNone {
		return nil
	}
	s := string(c)
	return &s
}
