package promo

import (
	"net/http"

	"github.com/noah-isme/storefront/internal/common"
)

// Handler exposes the active promotion to storefront clients.
type Handler struct {
	Svc *Service
}

// Active handles GET /api/v1/promotions/active.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, r, http.StatusInternalServerError, "INTERNAL", "promo service not configured", nil)
		return
	}
	promotion, err := h.Svc.ActivePromotion(r.Context())
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"promotion": promotion})
}
