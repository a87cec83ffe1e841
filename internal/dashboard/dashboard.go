// Package dashboard composes log store counts and alert store counts
// into a single summary snapshot.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/emberwatch/internal/models"
	"github.com/good-yellow-bee/emberwatch/internal/query"
	"github.com/good-yellow-bee/emberwatch/internal/storage"
)

// Summary is the dashboard snapshot.
type Summary struct {
	TotalLogsToday int64 `json:"totalLogsToday"`
	ErrorsLast5m   int64 `json:"errorsLast5m"`
	ActiveAlerts   int64 `json:"activeAlerts"`
}

// Aggregator runs the three summary counts.
type Aggregator struct {
	logs   storage.LogStore
	alerts storage.AlertStore

	// now is replaceable for tests.
	now func() time.Time
}

// NewAggregator creates a dashboard aggregator.
func NewAggregator(logs storage.LogStore, alerts storage.AlertStore) *Aggregator {
	return &Aggregator{logs: logs, alerts: alerts, now: time.Now}
}

// GetSummary runs the three counts concurrently. TotalLogsToday counts
// everything timestamped at or after midnight in the given zone, with no
// upper bound so skewed-clock events still show up; ErrorsLast5m is a
// trailing five minute UTC window independent of the zone. A failure of
// any count fails the whole summary: a silently zeroed count would be
// indistinguishable from a genuinely quiet system.
func (a *Aggregator) GetSummary(ctx context.Context, zone *time.Location) (*Summary, error) {
	if zone == nil {
		zone = time.UTC
	}

	now := a.now()
	local := now.In(zone)
	startOfToday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)

	summary := &Summary{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pred := query.TimeRange(startOfToday, time.Time{})
		total, err := a.logs.Count(ctx, pred)
		if err != nil {
			return fmt.Errorf("count logs today: %w", err)
		}
		summary.TotalLogsToday = total
		return nil
	})

	g.Go(func() error {
		pred := query.TimeRange(now.Add(-5*time.Minute), now).
			And(query.Eq(query.FieldLevel, string(models.LevelError)))
		errors, err := a.logs.Count(ctx, pred)
		if err != nil {
			return fmt.Errorf("count recent errors: %w", err)
		}
		summary.ErrorsLast5m = errors
		return nil
	})

	g.Go(func() error {
		open, err := a.alerts.CountByStatus(ctx, models.StatusOpen)
		if err != nil {
			return fmt.Errorf("count open alerts: %w", err)
		}
		summary.ActiveAlerts = open
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}
