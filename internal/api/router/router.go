package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pratik-mahalle/gw2ledger/internal/api/handlers"
	"github.com/pratik-mahalle/gw2ledger/internal/api/middleware"
	"github.com/pratik-mahalle/gw2ledger/internal/config"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/metrics"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Records  *handlers.RecordHandler
	Ledger   *handlers.LedgerHandler
	Sync     *handlers.SyncHandler
	Progress *handlers.ProgressHandler
}

func New(cfg *config.Config, log *logger.Logger, limiter *middleware.RateLimiter, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(metrics.Middleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))

	// Probes and metrics are never rate limited
	r.Get("/health", h.Health.Healthz)
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if limiter != nil {
			r.Use(middleware.RateLimit(limiter))
		}

		r.Route("/records/{type}", func(r chi.Router) {
			r.Get("/", h.Records.List)
			r.Get("/{id}", h.Records.Get)
		})

		r.Post("/valuation", h.Ledger.Valuation)
		r.Get("/account/valuation", h.Ledger.AccountValuation)
		r.Post("/completion", h.Ledger.Completion)
		r.Get("/recipes/{id}/completion", h.Ledger.RecipeCompletion)
		r.Get("/characters/{name}/equipment", h.Ledger.Equipment)

		r.Route("/sync", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.Server.OperatorSecret != "" {
					r.Use(middleware.RequireOperator(cfg.Server.OperatorSecret))
				}
				r.Post("/", h.Sync.Trigger)
				r.Delete("/", h.Sync.Cancel)
			})
			r.Get("/status", h.Sync.Status)
			r.Get("/jobs", h.Sync.ListJobs)
			r.Get("/jobs/{id}", h.Sync.GetJob)
			r.Get("/progress", h.Progress.Stream)
		})
	})

	return r
}
