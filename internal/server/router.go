package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sevigo/ci-warden/internal/badge"
	"github.com/sevigo/ci-warden/internal/config"
	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/metrics"
	"github.com/sevigo/ci-warden/internal/server/handler"
)

// Deps bundles the services the HTTP routes are served from.
type Deps struct {
	Store    core.RecordStore
	Queue    core.JobQueue
	Badges   *badge.Synthesizer
	Branches handler.BranchResolver
}

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(cfg *config.Config, deps Deps, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		webhookHandler := handler.NewWebhookHandler(cfg.GitHub.WebhookSecret, deps.Queue, logger)
		r.Post("/webhook/github", webhookHandler.Handle)

		badgeHandler := handler.NewBadgeHandler(deps.Badges, deps.Branches, logger)
		r.Get("/badges/{context}/{owner}/{repo}/{branch}", badgeHandler.Get)

		recordsHandler := handler.NewRecordsHandler(deps.Store, deps.Queue, cfg.Runner.LogDir, logger)
		r.Get("/records/{sha}", recordsHandler.GetRecord)
		r.Get("/logs/{sha}", recordsHandler.GetLog)
		r.Get("/queue", recordsHandler.ListQueue)
	})

	return r
}
