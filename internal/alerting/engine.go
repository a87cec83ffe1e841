// Package alerting evaluates alert rules against the log store and
// manages the alert lifecycle in the alert store.
package alerting

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/good-yellow-bee/emberwatch/internal/models"
	"github.com/good-yellow-bee/emberwatch/internal/query"
	"github.com/good-yellow-bee/emberwatch/internal/storage"
)

// DayCount is one day bucket of the alert-opening trend.
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// EngineStats tracks engine counters using atomic operations.
type EngineStats struct {
	Evaluations    atomic.Int64
	AlertsOpened   atomic.Int64
	AlertsUpdated  atomic.Int64
	AlertsResolved atomic.Int64
}

// Engine evaluates configured rules per service. Trigger and recovery
// checks run independently every cycle, re-deriving truth from the store
// rather than from in-memory state, so a read race between the two checks
// only delays convergence by one cycle.
type Engine struct {
	logs   storage.LogStore
	alerts storage.AlertStore
	rules  []RuleConfig
	stats  *EngineStats

	// now is replaceable for tests.
	now func() time.Time
}

// NewEngine creates an alert engine. An empty rule set falls back to
// DefaultRules.
func NewEngine(logs storage.LogStore, alerts storage.AlertStore, rules []RuleConfig) (*Engine, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rules[i].ID, err)
		}
	}

	return &Engine{
		logs:   logs,
		alerts: alerts,
		rules:  rules,
		stats:  &EngineStats{},
		now:    time.Now,
	}, nil
}

// Rules returns the configured rule set.
func (e *Engine) Rules() []RuleConfig {
	out := make([]RuleConfig, len(e.rules))
	copy(out, e.rules)
	return out
}

// EvaluateForService runs every configured rule for the service. It
// returns the alert opened or refreshed by the first triggering rule, or
// nil when nothing triggered. Recovery is checked for every rule whether
// or not its trigger fired this cycle.
func (e *Engine) EvaluateForService(ctx context.Context, serviceName string) (*models.Alert, error) {
	e.stats.Evaluations.Add(1)

	var triggered *models.Alert
	for i := range e.rules {
		rule := &e.rules[i]

		alert, err := e.checkTrigger(ctx, serviceName, rule)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			log.Printf("alert triggered: service=%s rule=%s observed=%.0f threshold=%.0f",
				serviceName, rule.ID, alert.Observed, alert.Threshold)
			if triggered == nil {
				triggered = alert
			}
		}

		if err := e.resolveIfRecovered(ctx, serviceName, rule); err != nil {
			return nil, err
		}
	}
	return triggered, nil
}

// checkTrigger opens or refreshes an alert when the rule's windowed error
// count exceeds the trigger threshold.
func (e *Engine) checkTrigger(ctx context.Context, serviceName string, rule *RuleConfig) (*models.Alert, error) {
	count, err := e.windowedErrorCount(ctx, serviceName, rule)
	if err != nil {
		return nil, fmt.Errorf("count errors for %s: %w", serviceName, err)
	}

	if float64(count) <= rule.TriggerThreshold {
		return nil, nil
	}

	candidate := &models.Alert{
		RuleID:      rule.ID,
		ServiceName: serviceName,
		Severity:    rule.Severity,
		Status:      models.StatusOpen,
		Observed:    float64(count),
		Threshold:   rule.TriggerThreshold,
		OpenedAt:    e.now().UTC(),
		Note:        "High error rate detected for " + serviceName,
	}

	alert, created, err := e.alerts.OpenOrUpdate(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("persist alert for %s: %w", serviceName, err)
	}

	if created {
		e.stats.AlertsOpened.Add(1)
	} else {
		e.stats.AlertsUpdated.Add(1)
	}
	return alert, nil
}

// resolveIfRecovered closes the latest OPEN alert for the rule when the
// windowed error count has dropped to the recovery threshold or below.
func (e *Engine) resolveIfRecovered(ctx context.Context, serviceName string, rule *RuleConfig) error {
	count, err := e.windowedErrorCount(ctx, serviceName, rule)
	if err != nil {
		return fmt.Errorf("count errors for %s: %w", serviceName, err)
	}

	if float64(count) > rule.RecoveryThreshold {
		return nil
	}

	open, err := e.alerts.FindLatestOpen(ctx, serviceName, rule.ID)
	if err != nil {
		return fmt.Errorf("find open alert for %s: %w", serviceName, err)
	}
	if open == nil {
		return nil
	}

	closedAt := e.now().UTC()
	open.Status = models.StatusResolved
	open.ClosedAt = &closedAt
	if open.Note == "" {
		open.Note = "Auto-resolved."
	} else {
		open.Note += " Auto-resolved."
	}

	if err := e.alerts.Save(ctx, open); err != nil {
		return fmt.Errorf("resolve alert for %s: %w", serviceName, err)
	}

	e.stats.AlertsResolved.Add(1)
	log.Printf("alert resolved: service=%s rule=%s", serviceName, rule.ID)
	return nil
}

// windowedErrorCount counts ERROR events for the service strictly after
// now minus the rule window.
func (e *Engine) windowedErrorCount(ctx context.Context, serviceName string, rule *RuleConfig) (int64, error) {
	cutoff := e.now().UTC().Add(-time.Duration(rule.WindowMinutes) * time.Minute)

	pred := query.Predicate{}.And(
		query.Eq(query.FieldServiceName, serviceName),
		query.Eq(query.FieldLevel, string(models.LevelError)),
		query.Gt(query.FieldTimestamp, cutoff),
	)
	return e.logs.Count(ctx, pred)
}

// ActiveAlerts returns all OPEN alerts, newest openedAt first.
func (e *Engine) ActiveAlerts(ctx context.Context) ([]*models.Alert, error) {
	return e.alerts.FindByStatus(ctx, models.StatusOpen)
}

// TrendLastNDays buckets alert openings by the local calendar date of
// openedAt in the given zone, over `days` contiguous dates ending today.
// days <= 0 defaults to 14. Buckets are pre-seeded at zero and returned
// in chronological order.
func (e *Engine) TrendLastNDays(ctx context.Context, days int, zone *time.Location) ([]DayCount, error) {
	if days <= 0 {
		days = 14
	}
	if zone == nil {
		zone = time.UTC
	}

	now := e.now().In(zone)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, zone)
	start := today.AddDate(0, 0, -(days - 1))

	// Bucket by civil date string, which is immune to DST day lengths.
	index := make(map[string]int, days)
	dates := make([]time.Time, days)
	counts := make([]int64, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		dates[i] = d
		index[d.Format("2006-01-02")] = i
	}

	all, err := e.alerts.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	for _, a := range all {
		if a.OpenedAt.IsZero() {
			continue
		}
		key := a.OpenedAt.In(zone).Format("2006-01-02")
		if i, ok := index[key]; ok {
			counts[i]++
		}
	}

	trend := make([]DayCount, days)
	for i := 0; i < days; i++ {
		trend[i] = DayCount{
			Day:   dates[i].Format("Jan 02"),
			Count: counts[i],
		}
	}
	return trend, nil
}

// EngineStatsSnapshot is a snapshot of engine counters for reporting.
type EngineStatsSnapshot struct {
	Evaluations    int64
	AlertsOpened   int64
	AlertsUpdated  int64
	AlertsResolved int64
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() EngineStatsSnapshot {
	return EngineStatsSnapshot{
		Evaluations:    e.stats.Evaluations.Load(),
		AlertsOpened:   e.stats.AlertsOpened.Load(),
		AlertsUpdated:  e.stats.AlertsUpdated.Load(),
		AlertsResolved: e.stats.AlertsResolved.Load(),
	}
}
