package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// PickupPoints lists the normalized pickup locations for a carrier. An
// unknown or empty carrier yields an empty list, not an error: absence of
// pickup points is a normal condition for courier-only methods.
func (h *Handler) PickupPoints(w http.ResponseWriter, r *http.Request) {
	provider := strings.ToLower(chi.URLParam(r, "provider"))
	if !validProvider(provider) {
		respondError(w, r, http.StatusBadRequest, "invalid provider")
		return
	}

	points, err := h.pickup.Points(r.Context(), provider)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, r, http.StatusOK, points)
}

// validProvider accepts lowercase ASCII letters only, mirroring the route
// constraint the storefront relies on.
func validProvider(p string) bool {
	if p == "" {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < 'a' || p[i] > 'z' {
			return false
		}
	}
	return true
}
