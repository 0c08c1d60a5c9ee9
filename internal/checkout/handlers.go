package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/storefront/internal/common"
)

// Handler exposes checkout preview and session endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Preview handles POST /api/v1/checkout/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	quote, err := h.Svc.Preview(r.Context(), req)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// CreateSession handles POST /api/v1/checkout/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.CreateSession(r.Context(), req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

// Session handles GET /api/v1/checkout/sessions/{id}.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, r, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		common.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "session id is required", nil)
		return
	}
	summary, err := h.Svc.SessionSummary(r.Context(), id)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Request, bool) {
	if h.Svc == nil {
		common.JSONError(w, r, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return Request{}, false
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Request{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid cart", validationDetails(err))
			return Request{}, false
		}
	}
	return req, true
}

func validationDetails(err error) []map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, map[string]string{"field": fe.Namespace(), "rule": fe.Tag()})
	}
	return out
}
