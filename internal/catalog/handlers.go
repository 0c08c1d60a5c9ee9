package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/storefront/internal/common"
)

// DefaultMaxAge bounds how long clients may reuse the category list.
const DefaultMaxAge = time.Minute

// Handler exposes public catalog endpoints.
type Handler struct {
	service *Service
	maxAge  time.Duration
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
	MaxAge  time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Handler{service: cfg.Service, maxAge: maxAge}
}

type categoriesResponse struct {
	Categories []Category `json:"categories"`
}

// Categories handles GET /api/v1/categories. The list carries shipping fees
// the storefront shows before checkout, so it is tagged and revalidated
// rather than stored for long.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, r, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	rows, err := h.service.ListCategories(r.Context())
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	if rows == nil {
		rows = []Category{}
	}
	payload, err := json.Marshal(categoriesResponse{Categories: rows})
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	etag := `"` + common.HashKey("categories", string(payload))[:32] + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(h.maxAge/time.Second))+", must-revalidate")
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	common.JSON(w, http.StatusOK, categoriesResponse{Categories: rows})
}

func matchesETag(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
