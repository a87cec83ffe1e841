// Package stats derives operational insight from the log store: trend
// histograms, severity breakdowns, top-offending services, and a paged
// recent-event view.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/good-yellow-bee/emberwatch/internal/models"
	"github.com/good-yellow-bee/emberwatch/internal/query"
	"github.com/good-yellow-bee/emberwatch/internal/storage"
)

// TrendPoint is one bucket of a trend histogram.
type TrendPoint struct {
	BucketStart time.Time `json:"bucketStart"`
	Count       int64     `json:"count"`
}

// TrendResponse is a chronological trend histogram with its interval label.
type TrendResponse struct {
	Points   []TrendPoint `json:"points"`
	Interval string       `json:"interval"`
}

// SeverityCounts breaks events down by the three recognized levels. Other
// level values are aggregated by the store but dropped here; a generic
// breakdown is a known limitation.
type SeverityCounts struct {
	Error int64 `json:"error"`
	Warn  int64 `json:"warn"`
	Info  int64 `json:"info"`
}

// CountByService is an event count for one service, used for top-N ranking.
type CountByService struct {
	ServiceName string `json:"serviceName"`
	Count       int64  `json:"count"`
}

// PagedRecentErrors is one page of events sorted by timestamp descending,
// with the total hit count and the clamped page/size actually used.
type PagedRecentErrors struct {
	Items []*models.LogEvent `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Size  int                `json:"size"`
}

// Engine issues aggregation and search queries against the log store.
type Engine struct {
	logs storage.LogStore
}

// NewEngine creates a stats engine over the given log store.
func NewEngine(logs storage.LogStore) *Engine {
	return &Engine{logs: logs}
}

// Trend returns a calendar-aligned event count histogram over the filter.
// Unrecognized or blank intervals fall back to hour. Buckets are emitted
// across the observed range even when empty, sorted ascending.
func (e *Engine) Trend(ctx context.Context, f *models.TimeRangeFilter, interval string) (*TrendResponse, error) {
	iv := query.ParseInterval(interval)
	pred := query.BuildFilter(f)

	results, err := e.logs.Aggregate(ctx, pred, "trend", query.DateHistogram{
		Field:    query.FieldTimestamp,
		Interval: iv,
		TimeZone: "UTC",
	})
	if err != nil {
		return nil, fmt.Errorf("trend aggregation: %w", err)
	}

	agg, err := results.Get("trend")
	if err != nil {
		return nil, err
	}

	points := make([]TrendPoint, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		points = append(points, TrendPoint{BucketStart: b.Time, Count: b.Count})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].BucketStart.Before(points[j].BucketStart)
	})

	return &TrendResponse{Points: points, Interval: string(iv)}, nil
}

// Severity returns event counts for the ERROR, WARN, and INFO levels
// within the filter scope.
func (e *Engine) Severity(ctx context.Context, f *models.TimeRangeFilter) (*SeverityCounts, error) {
	pred := query.BuildFilter(f)

	results, err := e.logs.Aggregate(ctx, pred, "by_level", query.Terms{
		Field: query.FieldLevel,
		Size:  10,
	})
	if err != nil {
		return nil, fmt.Errorf("severity aggregation: %w", err)
	}

	agg, err := results.Get("by_level")
	if err != nil {
		return nil, err
	}

	counts := &SeverityCounts{}
	for _, b := range agg.Buckets {
		switch models.LogLevel(b.Key) {
		case models.LevelError:
			counts.Error = b.Count
		case models.LevelWarn:
			counts.Warn = b.Count
		case models.LevelInfo:
			counts.Info = b.Count
		}
	}
	return counts, nil
}

// ErrorsByService ranks services by ERROR event count within the filter
// scope and returns the top N. The store is over-fetched (bucket size at
// least 5) to tolerate uneven distributions; ties break on service name
// ascending so the ranking is deterministic.
func (e *Engine) ErrorsByService(ctx context.Context, f *models.TimeRangeFilter, topN int) ([]CountByService, error) {
	if topN <= 0 {
		topN = 5
	}

	pred := query.BuildFilter(f).And(query.Eq(query.FieldLevel, string(models.LevelError)))

	size := topN
	if size < 5 {
		size = 5
	}

	results, err := e.logs.Aggregate(ctx, pred, "by_svc", query.Terms{
		Field: query.FieldServiceName,
		Size:  size,
	})
	if err != nil {
		return nil, fmt.Errorf("errors by service aggregation: %w", err)
	}

	agg, err := results.Get("by_svc")
	if err != nil {
		return nil, err
	}

	ranked := make([]CountByService, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		ranked = append(ranked, CountByService{ServiceName: b.Key, Count: b.Count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].ServiceName < ranked[j].ServiceName
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, nil
}

// Recent returns one page of matching events, newest first. Page clamps
// to >= 0 and size to [1, 100]; the clamped values are echoed back.
func (e *Engine) Recent(ctx context.Context, f *models.TimeRangeFilter, page, size int) (*PagedRecentErrors, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = 1
	}
	if size > 100 {
		size = 100
	}

	pred := query.BuildFilter(f)
	items, total, err := e.logs.Search(ctx, pred, page, size)
	if err != nil {
		return nil, fmt.Errorf("recent search: %w", err)
	}

	return &PagedRecentErrors{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
	}, nil
}
