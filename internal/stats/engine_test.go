package stats

import (
	"context"
	"testing"
	"time"

	"github.com/good-yellow-bee/emberwatch/internal/models"
	"github.com/good-yellow-bee/emberwatch/internal/query"
)

// fakeLogStore returns canned aggregation and search results and records
// the requests it receives.
type fakeLogStore struct {
	aggResults *query.Results
	aggErr     error
	lastSpec   query.AggSpec
	lastPred   query.Predicate

	searchItems []*models.LogEvent
	searchTotal int64
	lastPage    int
	lastSize    int
}

func (f *fakeLogStore) Insert(ctx context.Context, events []*models.LogEvent) error { return nil }

func (f *fakeLogStore) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	return 0, nil
}

func (f *fakeLogStore) Aggregate(ctx context.Context, pred query.Predicate, name string, spec query.AggSpec) (*query.Results, error) {
	f.lastPred = pred
	f.lastSpec = spec
	return f.aggResults, f.aggErr
}

func (f *fakeLogStore) Search(ctx context.Context, pred query.Predicate, page, size int) ([]*models.LogEvent, int64, error) {
	f.lastPred = pred
	f.lastPage = page
	f.lastSize = size
	return f.searchItems, f.searchTotal, nil
}

func (f *fakeLogStore) DistinctServices(ctx context.Context, limit int) ([]string, error) {
	return nil, nil
}

func (f *fakeLogStore) Ping(ctx context.Context) error { return nil }

func TestTrendSortsAndDefaultsInterval(t *testing.T) {
	early := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	late := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)

	store := &fakeLogStore{
		aggResults: query.ResultsFromMap(map[string]query.Agg{
			"trend": {Buckets: []query.Bucket{
				{Time: late, Count: 2},
				{Time: early, Count: 5},
			}},
		}),
	}
	engine := NewEngine(store)

	resp, err := engine.Trend(context.Background(), nil, "bogus")
	if err != nil {
		t.Fatalf("Trend error: %v", err)
	}

	if resp.Interval != "hour" {
		t.Errorf("interval = %q, want hour fallback", resp.Interval)
	}
	if len(resp.Points) != 2 {
		t.Fatalf("got %d points, want 2", len(resp.Points))
	}
	if !resp.Points[0].BucketStart.Equal(early) || resp.Points[0].Count != 5 {
		t.Errorf("first point = %+v, want the earlier bucket", resp.Points[0])
	}

	hist, ok := store.lastSpec.(query.DateHistogram)
	if !ok {
		t.Fatalf("spec = %T, want DateHistogram", store.lastSpec)
	}
	if hist.Field != query.FieldTimestamp || hist.TimeZone != "UTC" {
		t.Errorf("histogram spec = %+v, want timestamp field in UTC", hist)
	}
}

func TestSeverityIgnoresUnknownLevels(t *testing.T) {
	store := &fakeLogStore{
		aggResults: query.ResultsFromList([]query.NamedAgg{
			{Name: "by_level", Agg: query.Agg{Buckets: []query.Bucket{
				{Key: "ERROR", Count: 12},
				{Key: "WARN", Count: 4},
				{Key: "INFO", Count: 100},
				{Key: "TRACE", Count: 9},
			}}},
		}),
	}
	engine := NewEngine(store)

	counts, err := engine.Severity(context.Background(), &models.TimeRangeFilter{ServiceName: "checkout"})
	if err != nil {
		t.Fatalf("Severity error: %v", err)
	}

	if counts.Error != 12 || counts.Warn != 4 || counts.Info != 100 {
		t.Errorf("counts = %+v, want 12/4/100", counts)
	}
}

func TestErrorsByServiceRanking(t *testing.T) {
	store := &fakeLogStore{
		aggResults: query.ResultsFromList([]query.NamedAgg{
			{Name: "by_svc", Agg: query.Agg{Buckets: []query.Bucket{
				{Key: "inventory", Count: 5},
				{Key: "auth", Count: 10},
				{Key: "billing", Count: 5},
				{Key: "checkout", Count: 7},
				{Key: "email", Count: 1},
			}}},
		}),
	}
	engine := NewEngine(store)

	ranked, err := engine.ErrorsByService(context.Background(), nil, 3)
	if err != nil {
		t.Fatalf("ErrorsByService error: %v", err)
	}

	want := []CountByService{
		{ServiceName: "auth", Count: 10},
		{ServiceName: "checkout", Count: 7},
		{ServiceName: "billing", Count: 5}, // name breaks the tie with inventory
	}
	if len(ranked) != len(want) {
		t.Fatalf("got %d entries, want %d", len(ranked), len(want))
	}
	for i := range want {
		if ranked[i] != want[i] {
			t.Errorf("ranked[%d] = %+v, want %+v", i, ranked[i], want[i])
		}
	}

	// The predicate must be scoped to ERROR level.
	foundLevel := false
	for _, c := range store.lastPred.Conds {
		if c.Field == query.FieldLevel && c.Value == string(models.LevelError) {
			foundLevel = true
		}
	}
	if !foundLevel {
		t.Error("predicate missing ERROR level condition")
	}
}

func TestErrorsByServiceDefaultTopN(t *testing.T) {
	store := &fakeLogStore{
		aggResults: query.ResultsFromList([]query.NamedAgg{
			{Name: "by_svc", Agg: query.Agg{}},
		}),
	}
	engine := NewEngine(store)

	if _, err := engine.ErrorsByService(context.Background(), nil, 0); err != nil {
		t.Fatalf("ErrorsByService error: %v", err)
	}

	terms, ok := store.lastSpec.(query.Terms)
	if !ok {
		t.Fatalf("spec = %T, want Terms", store.lastSpec)
	}
	if terms.Size != 5 {
		t.Errorf("terms size = %d, want default 5", terms.Size)
	}
}

func TestRecentClampsPaging(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		size     int
		wantPage int
		wantSize int
	}{
		{"negative page", -1, 20, 0, 20},
		{"zero size", 0, 0, 0, 1},
		{"oversized page size", 2, 1000, 2, 100},
		{"in range", 3, 50, 3, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeLogStore{searchTotal: 42}
			engine := NewEngine(store)

			result, err := engine.Recent(context.Background(), nil, tt.page, tt.size)
			if err != nil {
				t.Fatalf("Recent error: %v", err)
			}

			if store.lastPage != tt.wantPage || store.lastSize != tt.wantSize {
				t.Errorf("store saw page=%d size=%d, want page=%d size=%d",
					store.lastPage, store.lastSize, tt.wantPage, tt.wantSize)
			}
			if result.Page != tt.wantPage || result.Size != tt.wantSize {
				t.Errorf("result echoes page=%d size=%d, want page=%d size=%d",
					result.Page, result.Size, tt.wantPage, tt.wantSize)
			}
			if result.Total != 42 {
				t.Errorf("total = %d, want 42", result.Total)
			}
		})
	}
}
