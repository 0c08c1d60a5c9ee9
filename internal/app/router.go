package app

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/health"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/order"
	"github.com/noah-isme/storefront/internal/promo"
	"github.com/noah-isme/storefront/internal/security"
)

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Health   health.Handler
	Catalog  *catalog.Handler
	Promo    *promo.Handler
	Order    *order.Handler
	Checkout *checkout.Handler
}

// RouterConfig controls the middleware chain and operational endpoints.
type RouterConfig struct {
	Logger         zerolog.Logger
	Tracing        bool
	HTTPMetrics    *obs.HTTPMetrics
	MetricsHandler http.Handler
	AllowedOrigins []string
	Pprof          bool
	PprofUser      string
	PprofPass      string
	Headers        security.Headers
	// MaxBodyBytes caps checkout payloads; zero disables the check.
	MaxBodyBytes int64
	// Idempotency wraps checkout session creation.
	Idempotency func(http.Handler) http.Handler
	// RateLimit wraps the public checkout routes.
	RateLimit func(http.Handler) http.Handler
}

// NewRouter assembles the API router.
func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: cfg.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: cfg.Logger}.Middleware)
	r.Use(cfg.Headers.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.AllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.Pprof {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPass))
	}

	r.Get("/health/live", h.Health.Live)
	r.Get("/health/ready", h.Health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		if h.Catalog != nil {
			v.Get("/categories", h.Catalog.Categories)
		}
		if h.Promo != nil {
			v.Get("/promotions/active", h.Promo.Active)
		}
		if h.Order != nil {
			v.Get("/orders/{orderId}/totals", h.Order.Totals)
		}
		if h.Checkout != nil {
			v.Route("/checkout", func(c chi.Router) {
				if cfg.RateLimit != nil {
					c.Use(cfg.RateLimit)
				}
				c.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
				c.Post("/preview", h.Checkout.Preview)
				c.With(passthrough(cfg.Idempotency)).Post("/sessions", h.Checkout.CreateSession)
				c.Get("/sessions/{id}", h.Checkout.Session)
			})
		}
	})
	return r
}

func passthrough(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
