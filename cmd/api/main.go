package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/storefront/internal/app"
	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/config"
	"github.com/noah-isme/storefront/internal/health"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/order"
	"github.com/noah-isme/storefront/internal/payment"
	"github.com/noah-isme/storefront/internal/promo"
	"github.com/noah-isme/storefront/internal/ratelimit"
	"github.com/noah-isme/storefront/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "storefront")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:    "storefront-api",
			ServiceVersion: envOrDefault("APP_VERSION", ""),
			Endpoint:       envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:       envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio:  sampling,
			Environment:    cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := app.Connect(ctx, cfg, logger, metricsEnabled)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close dependencies")
		}
	}()

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Store:  catalog.PGStore{Pool: deps.DB},
		Cache:  catalog.NewCache(deps.Redis, cfg.CategoryCacheTTL),
		Logger: logger.With().Str("component", "catalog").Logger(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	promoService := &promo.Service{
		Store:  promo.PGStore{Pool: deps.DB},
		Logger: logger.With().Str("component", "promo").Logger(),
	}

	var gateway payment.Gateway
	stripeGateway, err := payment.NewStripe(payment.StripeConfig{
		APIKey:    cfg.StripeSecretKey,
		AccountID: cfg.StripeAccountID,
		Timeout:   envDurationMillis("STRIPE_TIMEOUT_MS", 15000),
		Logger:    logger.With().Str("component", "stripe").Logger(),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("payment gateway disabled")
	} else {
		gateway = stripeGateway
	}

	orderService := &order.Service{
		Store:   order.PGStore{Pool: deps.DB},
		Gateway: gateway,
		Catalog: catalogService,
		Logger:  logger.With().Str("component", "order").Logger(),
	}
	checkoutService := &checkout.Service{
		Catalog:    catalogService,
		Promos:     promoService,
		Gateway:    gateway,
		Currency:   cfg.CurrencyCode,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
		Logger:     logger.With().Str("component", "checkout").Logger(),
	}

	limiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: deps.Redis, Prefix: "ratelimit:"},
		Config: ratelimit.Config{
			Key:    ratelimit.ClientKey("checkout"),
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}
	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL, Prefix: "checkout:idem:"}

	routerCfg := app.RouterConfig{
		Logger:         logger,
		Tracing:        tracingEnabled,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Pprof:          envBool("OBS_ENABLE_PPROF", false),
		PprofUser:      envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", ""),
		PprofPass:      envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", ""),
		Headers: security.Headers{
			EnableHSTS:          cfg.AppEnv == "production",
			TrustForwardedProto: envBool("HTTP_TRUST_FORWARDED_PROTO", false),
		},
		MaxBodyBytes:   int64(envInt("HTTP_MAX_BODY_BYTES", 64<<10)),
		Idempotency:    idem.Middleware,
		RateLimit:      limiter.Middleware,
	}
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		routerCfg.HTTPMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
		routerCfg.MetricsHandler = promhttp.Handler()
	}

	r := app.NewRouter(routerCfg, app.Handlers{
		Health: health.Handler{
			Checker:      health.Pinger{DB: deps.DB, Redis: deps.Redis},
			DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
			RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		},
		Catalog:  catalog.NewHandler(catalog.HandlerConfig{Service: catalogService, MaxAge: time.Duration(envInt("CATEGORIES_MAX_AGE_SECONDS", 60)) * time.Second}),
		Promo:    &promo.Handler{Svc: promoService},
		Order:    &order.Handler{Svc: orderService},
		Checkout: &checkout.Handler{Svc: checkoutService, Validate: deps.Validator},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		health.SetReady(false)
		logger.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), envDurationMillis("SHUTDOWN_TIMEOUT_MS", 15000))
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
