package dashboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/good-yellow-bee/emberwatch/internal/models"
	"github.com/good-yellow-bee/emberwatch/internal/query"
)

// fakeLogStore answers counts by predicate shape: a level condition marks
// the recent-errors count, anything else the daily total.
type fakeLogStore struct {
	total    int64
	errors   int64
	totalErr error
	errorErr error

	totalPred query.Predicate
}

func (f *fakeLogStore) Insert(ctx context.Context, events []*models.LogEvent) error { return nil }

func (f *fakeLogStore) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	for _, c := range pred.Conds {
		if c.Field == query.FieldLevel {
			return f.errors, f.errorErr
		}
	}
	f.totalPred = pred
	return f.total, f.totalErr
}

func (f *fakeLogStore) Aggregate(ctx context.Context, pred query.Predicate, name string, spec query.AggSpec) (*query.Results, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLogStore) Search(ctx context.Context, pred query.Predicate, page, size int) ([]*models.LogEvent, int64, error) {
	return nil, 0, nil
}

func (f *fakeLogStore) DistinctServices(ctx context.Context, limit int) ([]string, error) {
	return nil, nil
}

func (f *fakeLogStore) Ping(ctx context.Context) error { return nil }

type fakeAlertStore struct {
	open    int64
	openErr error
}

func (f *fakeAlertStore) FindByStatus(ctx context.Context, status models.AlertStatus) ([]*models.Alert, error) {
	return nil, nil
}

func (f *fakeAlertStore) FindLatestOpen(ctx context.Context, serviceName, ruleID string) (*models.Alert, error) {
	return nil, nil
}

func (f *fakeAlertStore) OpenOrUpdate(ctx context.Context, candidate *models.Alert) (*models.Alert, bool, error) {
	return nil, false, nil
}

func (f *fakeAlertStore) Save(ctx context.Context, alert *models.Alert) error { return nil }

func (f *fakeAlertStore) CountByStatus(ctx context.Context, status models.AlertStatus) (int64, error) {
	return f.open, f.openErr
}

func (f *fakeAlertStore) FindAll(ctx context.Context) ([]*models.Alert, error) { return nil, nil }

func TestGetSummary(t *testing.T) {
	logs := &fakeLogStore{total: 1234, errors: 17}
	alerts := &fakeAlertStore{open: 3}

	agg := NewAggregator(logs, alerts)
	agg.now = func() time.Time { return time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC) }

	summary, err := agg.GetSummary(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetSummary error: %v", err)
	}

	if summary.TotalLogsToday != 1234 {
		t.Errorf("TotalLogsToday = %d, want 1234", summary.TotalLogsToday)
	}
	if summary.ErrorsLast5m != 17 {
		t.Errorf("ErrorsLast5m = %d, want 17", summary.ErrorsLast5m)
	}
	if summary.ActiveAlerts != 3 {
		t.Errorf("ActiveAlerts = %d, want 3", summary.ActiveAlerts)
	}
}

func TestGetSummaryDayBoundaryUsesZone(t *testing.T) {
	logs := &fakeLogStore{}
	agg := NewAggregator(logs, &fakeAlertStore{})

	// 01:30 UTC on Mar 10 is still Mar 09 in UTC-5.
	now := time.Date(2025, 3, 10, 1, 30, 0, 0, time.UTC)
	agg.now = func() time.Time { return now }
	zone := time.FixedZone("UTC-5", -5*60*60)

	if _, err := agg.GetSummary(context.Background(), zone); err != nil {
		t.Fatalf("GetSummary error: %v", err)
	}

	// A single lower-bound condition: events timestamped ahead of the
	// server clock still count toward today.
	if len(logs.totalPred.Conds) != 1 {
		t.Fatalf("daily count has %d conditions, want 1", len(logs.totalPred.Conds))
	}
	cond := logs.totalPred.Conds[0]
	if cond.Op != query.OpGte {
		t.Errorf("daily count op = %q, want %q", cond.Op, query.OpGte)
	}
	lower, ok := cond.Value.(time.Time)
	if !ok {
		t.Fatalf("lower bound value is %T, want time.Time", cond.Value)
	}

	wantStart := time.Date(2025, 3, 9, 0, 0, 0, 0, zone)
	if !lower.Equal(wantStart) {
		t.Errorf("day start = %v, want %v", lower, wantStart)
	}
}

func TestGetSummaryPropagatesFailures(t *testing.T) {
	tests := []struct {
		name   string
		logs   *fakeLogStore
		alerts *fakeAlertStore
	}{
		{
			name:   "daily count fails",
			logs:   &fakeLogStore{totalErr: fmt.Errorf("clickhouse down")},
			alerts: &fakeAlertStore{},
		},
		{
			name:   "error count fails",
			logs:   &fakeLogStore{errorErr: fmt.Errorf("clickhouse down")},
			alerts: &fakeAlertStore{},
		},
		{
			name:   "alert count fails",
			logs:   &fakeLogStore{},
			alerts: &fakeAlertStore{openErr: fmt.Errorf("sqlite locked")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(tt.logs, tt.alerts)

			// A partial summary with silently zeroed counts must never
			// be returned.
			if _, err := agg.GetSummary(context.Background(), nil); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
