package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/medicalcare-backend/api/controllers"
	"github.com/angelmondragon/medicalcare-backend/api/middleware"
	"github.com/angelmondragon/medicalcare-backend/internal/applications"
	"github.com/angelmondragon/medicalcare-backend/internal/institutions"
	"github.com/angelmondragon/medicalcare-backend/pkg/config"
	"github.com/angelmondragon/medicalcare-backend/pkg/logger"
	"github.com/angelmondragon/medicalcare-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/medicalcare-backend/pkg/redis"
)

// NewRouter wires the middleware chain, the resource routes and the
// operational endpoints. redisP and idempotencyStore may be nil when Redis is
// not configured.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	applicationService applications.Service,
	institutionService institutions.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)
	if cfg.FeatureFlags.Idempotency && idempotencyStore != nil {
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Idempotency.TTL, logg))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/applications", func(r chi.Router) {
		r.Get("/", controllers.ApplicationList(applicationService, logg))
		r.Post("/", controllers.ApplicationCreate(applicationService, logg))
		r.Get("/number/{number}", controllers.ApplicationGetByNumber(applicationService, logg))
		r.Get("/institution/{institutionId}", controllers.ApplicationListByInstitution(applicationService, logg))
		r.Get("/status/{status}", controllers.ApplicationListByStatus(applicationService, logg))
		r.Get("/type/{type}", controllers.ApplicationListByType(applicationService, logg))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", controllers.ApplicationGet(applicationService, logg))
			r.Put("/", controllers.ApplicationUpdate(applicationService, logg))
			r.Delete("/", controllers.ApplicationDelete(applicationService, logg))
			r.Post("/submit", controllers.ApplicationSubmit(applicationService, logg))
			r.Post("/approve", controllers.ApplicationApprove(applicationService, logg))
			r.Post("/reject", controllers.ApplicationReject(applicationService, logg))
		})
	})

	r.Route("/medical-institutions", func(r chi.Router) {
		r.Get("/", controllers.InstitutionList(institutionService, logg))
		r.Post("/", controllers.InstitutionCreate(institutionService, logg))
		r.Get("/code/{code}", controllers.InstitutionGetByCode(institutionService, logg))
		r.Get("/status/{status}", controllers.InstitutionListByStatus(institutionService, logg))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", controllers.InstitutionGet(institutionService, logg))
			r.Put("/", controllers.InstitutionUpdate(institutionService, logg))
			r.Delete("/", controllers.InstitutionDelete(institutionService, logg))
		})
	})

	return r
}
