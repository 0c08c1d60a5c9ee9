package order

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/storefront/internal/common"
)

// Handler exposes order totals.
type Handler struct {
	Svc *Service
}

// Totals handles GET /api/v1/orders/{orderId}/totals.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, r, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "orderId")))
	if err != nil {
		common.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	result, err := h.Svc.Totals(r.Context(), id.String())
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}
