// Package http provides HTTP server and routing functionality.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iruldev/modhost/internal/host"
	"github.com/iruldev/modhost/internal/infra/config"
	"github.com/iruldev/modhost/internal/infra/observability"
	infraredis "github.com/iruldev/modhost/internal/infra/redis"
	"github.com/iruldev/modhost/internal/interface/http/admin"
	"github.com/iruldev/modhost/internal/interface/http/handlers"
	"github.com/iruldev/modhost/internal/interface/http/middleware"
	"github.com/iruldev/modhost/internal/interface/http/request"
	"github.com/iruldev/modhost/internal/lifecycle"
	"github.com/iruldev/modhost/internal/runtimeutil"
)

// TracerShutdown holds the tracer provider's Shutdown method for graceful
// cleanup, set once tracing has been initialized.
var TracerShutdown func(context.Context) error

// newZapLogger adapts cfg's log level/env into the zap logger the panic
// recovery and access-log middleware expect. Every other package in the
// module host logs through log/slog via observability.NewLogger; these
// two middleware are the one corner of the HTTP layer that still speaks
// zap, matching how the access log and panic recovery were built.
func newZapLogger(cfg *config.Config) *zap.Logger {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newRateLimiter builds the HTTP rate limiter: a Redis-backed limiter
// shared across every instance of the module host when
// cfg.RateLimitRedisAddr is set, falling back to the in-memory limiter
// when it is empty or the Redis client can't be reached. The Redis path
// itself falls back to an in-memory limiter on per-request Redis
// failures (internal/infra/redis.RedisRateLimiter's own circuit breaker).
func newRateLimiter(cfg *config.Config, logger *slog.Logger) runtimeutil.RateLimiter {
	defaultRate := runtimeutil.NewRate(cfg.RateLimitRPS, time.Minute)

	if cfg.RateLimitRedisAddr == "" {
		return middleware.NewInMemoryRateLimiter(middleware.WithDefaultRate(defaultRate))
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RateLimitRedisAddr,
		DB:   cfg.RateLimitRedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Error("rate limiter: redis unreachable, falling back to in-memory limiter", "addr", cfg.RateLimitRedisAddr, "error", err)
		return middleware.NewInMemoryRateLimiter(middleware.WithDefaultRate(defaultRate))
	}

	fallback := middleware.NewInMemoryRateLimiter(middleware.WithDefaultRate(defaultRate))
	return infraredis.NewRedisRateLimiter(client,
		infraredis.WithRedisDefaultRate(defaultRate),
		infraredis.WithFallbackLimiter(fallback),
	)
}

// NewRouter builds the chi router mounting the module-host's public
// (/api/v1) control surface, the administrative (/admin) surface, the
// Prometheus scrape endpoint, and health checks.
//
// h and ml may be nil, in which case the module-control routes and
// /admin/modules are omitted and only the health (/api/v1/health,
// /admin/health), example and metrics routes are mounted (used by tests
// that don't need a live host).
func NewRouter(cfg *config.Config, h *host.Host, ml lifecycle.ManifestLoader) chi.Router {
	logger := observability.NewLogger(cfg)
	zlog := newZapLogger(cfg)

	if cfg.OTELEnabled {
		tp, err := observability.InitTracer(context.Background(), cfg)
		if err != nil {
			logger.Error("failed to initialize tracer", "error", err)
		} else {
			TracerShutdown = tp.Shutdown
		}
	}

	reg, httpMetrics := observability.NewMetricsRegistry()

	limiter := newRateLimiter(cfg, logger)

	r := chi.NewRouter()

	r.Use(middleware.Recovery(zlog))
	r.Use(middleware.BodyLimit(cfg.MaxRequestSize))
	r.Use(middleware.RequestID)
	r.Use(middleware.Otel("modhost"))
	r.Use(middleware.Logging(zlog))
	r.Use(middleware.Metrics(httpMetrics))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RateLimitMiddleware(limiter, middleware.WithKeyExtractor(func(req *http.Request) string {
		return request.GetRealIP(req, cfg.TrustProxy)
	})))

	r.Get("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP)

	var mods *handlers.Modules
	if h != nil && ml != nil {
		mods = handlers.NewModules(h, ml)
	}
	r.Route("/api/v1", func(r chi.Router) {
		RegisterRoutes(r, mods)
	})

	r.Group(func(r chi.Router) {
		if cfg.JWTEnabled {
			auth, err := middleware.NewJWTAuthenticator(
				[]byte(cfg.JWTSecret),
				middleware.WithIssuer(cfg.JWTIssuer),
				middleware.WithAudience(cfg.JWTAudience),
				middleware.WithClockSkew(cfg.JWTClockSkew),
			)
			if err != nil {
				logger.Error("failed to build JWT authenticator, admin routes unprotected", "error", err)
			} else {
				r.Use(middleware.AuthMiddleware(auth))
				r.Use(middleware.RequireRole("admin"))
			}
		}

		var adm *admin.Admin
		if h != nil {
			adm = admin.NewAdmin(h)
		}
		r.Route("/admin", func(r chi.Router) {
			RegisterAdminRoutes(r, adm)
		})
	})

	return r
}
