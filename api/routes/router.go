package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/extraitexto-backend/api/controllers"
	"github.com/angelmondragon/extraitexto-backend/api/middleware"
	"github.com/angelmondragon/extraitexto-backend/pkg/config"
	"github.com/angelmondragon/extraitexto-backend/pkg/db"
	"github.com/angelmondragon/extraitexto-backend/pkg/logger"
	"github.com/angelmondragon/extraitexto-backend/pkg/metrics"
	"github.com/angelmondragon/extraitexto-backend/pkg/redis"
)

// multipartOverhead leaves room for boundaries and form fields on top of the
// upload ceiling.
const multipartOverhead = 1 << 20

// RedisStore is the redis surface the HTTP layer needs. Leave it as a nil
// interface when redis is not configured; rate limiting and idempotency are
// then skipped.
type RedisStore interface {
	redis.Pinger
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (redis.Window, error)
}

// Dependencies groups what the router hands to controllers.
type Dependencies struct {
	DB           db.Pinger
	Redis        RedisStore
	Gatherer     prometheus.Gatherer
	HTTPMetrics  *metrics.HTTPMetrics
	Catalog      controllers.CatalogService
	Entitlements controllers.EntitlementService
	Usage        controllers.UsageService
	Extractions  controllers.ExtractionService
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	extractionPolicy := middleware.NewRateLimitPolicy(
		"extractions",
		cfg.RateLimit.ExtractionWindow,
		cfg.RateLimit.ExtractionIPLimit,
		cfg.RateLimit.ExtractionUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/plans", controllers.ListPlans(deps.Catalog, logg))
		r.Get("/languages", controllers.ListLanguages(deps.Catalog, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth, logg))

		r.Route("/me", func(r chi.Router) {
			r.Get("/entitlement", controllers.MeEntitlement(deps.Entitlements, logg))
			r.Post("/entitlement/check", controllers.MeCheckEntitlement(deps.Entitlements, logg))
			r.Get("/subscription", controllers.MeSubscription(deps.Entitlements, logg))
			r.Get("/languages", controllers.MeLanguages(deps.Entitlements, logg))
			r.Get("/usage", controllers.MeDailyUsage(deps.Usage, logg))
			r.Get("/usage/logs", controllers.MeUsageLogs(deps.Usage, logg))
		})

		r.With(
			middleware.MaxBodyBytes(cfg.Upload.MaxBytes()+multipartOverhead),
			middleware.RateLimit(extractionPolicy, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, cfg.RateLimit.IdempotencyTTL, logg),
		).Post("/extractions", controllers.CreateExtraction(deps.Extractions, logg))
	})

	return r
}
