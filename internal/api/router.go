package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/good-yellow-bee/emberwatch/internal/api/alerts"
	"github.com/good-yellow-bee/emberwatch/internal/api/dashboard"
	"github.com/good-yellow-bee/emberwatch/internal/api/insights"
	"github.com/good-yellow-bee/emberwatch/internal/api/logs"
	"github.com/good-yellow-bee/emberwatch/internal/api/middleware"
	"github.com/good-yellow-bee/emberwatch/pkg/config"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Ingest is the only write-heavy public surface; everything else is
	// read traffic and stays unthrottled.
	ingestLimiter := middleware.NewRateLimiter(s.config.IngestRatePerIP)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)

	// Unmatched routes get the envelope too, not the chi plain-text
	// defaults.
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		JSONError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		JSONError(w, ErrMethodNotAllowed)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		logsHandler := logs.NewHandler(s.ingest, s.recent, s.stats)
		r.Route("/logs", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(ingestLimiter))
				r.Post("/", logsHandler.Ingest)
			})
			r.Get("/", logsHandler.Search)
			r.Get("/recent", logsHandler.Recent)
			r.Delete("/cache", logsHandler.ClearCache)
		})

		insightsHandler := insights.NewHandler(s.stats)
		r.Route("/errors", func(r chi.Router) {
			r.Post("/trend", insightsHandler.Trend)
			r.Post("/severity", insightsHandler.Severity)
			r.Post("/by-service", insightsHandler.ByService)
			r.Post("/recent", insightsHandler.Recent)
		})

		alertsHandler := alerts.NewHandler(s.alerts)
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/active", alertsHandler.Active)
			r.Get("/trend", alertsHandler.Trend)
			r.Post("/evaluate/{service}", alertsHandler.Evaluate)
		})

		dashboardHandler := dashboard.NewHandler(s.dashboard)
		r.Get("/dashboard/summary", dashboardHandler.Summary)
	})

	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		OK(w, config.GetBuildInfo())
	})

	// Health endpoints (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	if s.config.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
