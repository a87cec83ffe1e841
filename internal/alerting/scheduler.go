package alerting

import (
	"context"
	"log"
	"time"

	"github.com/good-yellow-bee/emberwatch/internal/metrics"
	"github.com/good-yellow-bee/emberwatch/internal/models"
	"github.com/good-yellow-bee/emberwatch/internal/storage"
)

// maxDistinctServices caps the per-tick service enumeration.
const maxDistinctServices = 1000

// Scheduler periodically drives the alert engine across all services
// present in the log store. Ticks run sequentially on one goroutine: an
// overrunning tick delays the next one, it never overlaps it.
type Scheduler struct {
	engine *Engine
	logs   storage.LogStore

	period       time.Duration
	initialDelay time.Duration
}

// NewScheduler creates a scheduler. Period defaults to one minute and
// initial delay to ten seconds when zero.
func NewScheduler(engine *Engine, logs storage.LogStore, period, initialDelay time.Duration) *Scheduler {
	if period <= 0 {
		period = time.Minute
	}
	if initialDelay <= 0 {
		initialDelay = 10 * time.Second
	}
	return &Scheduler{
		engine:       engine,
		logs:         logs,
		period:       period,
		initialDelay: initialDelay,
	}
}

// Run blocks until the context is cancelled, evaluating every service on
// each tick.
func (s *Scheduler) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.initialDelay):
	}

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick enumerates the distinct services in the store and evaluates each
// independently. A failure on one service is logged and does not stop the
// remaining evaluations.
func (s *Scheduler) tick(ctx context.Context) {
	services, err := s.logs.DistinctServices(ctx, maxDistinctServices)
	if err != nil {
		log.Printf("scheduler: list services: %v", err)
		return
	}

	for _, svc := range services {
		if svc == "" {
			continue
		}

		alert, err := s.engine.EvaluateForService(ctx, svc)
		switch {
		case err != nil:
			metrics.EvaluationsTotal.WithLabelValues("error").Inc()
			log.Printf("scheduler: alert evaluation failed for %s: %v", svc, err)
		case alert != nil:
			metrics.EvaluationsTotal.WithLabelValues("triggered").Inc()
		default:
			metrics.EvaluationsTotal.WithLabelValues("ok").Inc()
		}
	}

	if open, err := s.engine.alerts.CountByStatus(ctx, models.StatusOpen); err == nil {
		metrics.AlertsOpen.Set(float64(open))
	}
}
