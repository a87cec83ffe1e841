package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/emberwatch/internal/alerting"
	"github.com/good-yellow-bee/emberwatch/internal/api/health"
	"github.com/good-yellow-bee/emberwatch/internal/cache"
	"github.com/good-yellow-bee/emberwatch/internal/dashboard"
	"github.com/good-yellow-bee/emberwatch/internal/ingest"
	"github.com/good-yellow-bee/emberwatch/internal/stats"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address         string
	IngestRatePerIP int // ingest requests per minute per client IP
	MetricsEnabled  bool
	Verbose         bool
	ShutdownTimeout time.Duration
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.IngestRatePerIP == 0 {
		c.IngestRatePerIP = 600
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	ingest        *ingest.Service
	recent        *cache.RecentLogs
	stats         *stats.Engine
	alerts        *alerting.Engine
	dashboard     *dashboard.Aggregator
	server        *http.Server
	healthHandler *health.Handler
}

// New creates a new API server.
func New(cfg *Config, svc *ingest.Service, recent *cache.RecentLogs, statsEngine *stats.Engine, alertEngine *alerting.Engine, aggregator *dashboard.Aggregator) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("ingest service is required")
	}
	if statsEngine == nil {
		return nil, fmt.Errorf("stats engine is required")
	}
	if alertEngine == nil {
		return nil, fmt.Errorf("alert engine is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:        cfg,
		ingest:        svc,
		recent:        recent,
		stats:         statsEngine,
		alerts:        alertEngine,
		dashboard:     aggregator,
		healthHandler: health.NewHandler(),
	}

	router := s.setupRouter()

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}
