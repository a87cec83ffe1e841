package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/emberwatch/internal/models"
)

func newTestAlertStore(t *testing.T) AlertStore {
	t.Helper()

	store := NewSQLiteStore(":memory:")
	if err := store.Open(); err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return store.Alerts()
}

func candidate(service string, openedAt time.Time) *models.Alert {
	return &models.Alert{
		RuleID:      "error.rate.high",
		ServiceName: service,
		Severity:    models.SeverityHigh,
		Status:      models.StatusOpen,
		Observed:    8,
		Threshold:   5,
		OpenedAt:    openedAt,
		Note:        "High error rate detected for " + service,
	}
}

func TestOpenOrUpdateCreates(t *testing.T) {
	repo := newTestAlertStore(t)
	ctx := context.Background()

	alert, created, err := repo.OpenOrUpdate(ctx, candidate("checkout", time.Now().UTC()))
	if err != nil {
		t.Fatalf("OpenOrUpdate error: %v", err)
	}
	if !created {
		t.Error("created = false, want true for the first alert")
	}
	if alert.ID == "" {
		t.Error("alert ID not assigned")
	}
	if alert.Status != models.StatusOpen {
		t.Errorf("status = %s, want OPEN", alert.Status)
	}
}

func TestOpenOrUpdateRefreshesExisting(t *testing.T) {
	repo := newTestAlertStore(t)
	ctx := context.Background()

	first, _, err := repo.OpenOrUpdate(ctx, candidate("checkout", time.Now().UTC()))
	if err != nil {
		t.Fatalf("first OpenOrUpdate error: %v", err)
	}

	refresh := candidate("checkout", time.Now().UTC())
	refresh.Observed = 12
	second, created, err := repo.OpenOrUpdate(ctx, refresh)
	if err != nil {
		t.Fatalf("second OpenOrUpdate error: %v", err)
	}

	if created {
		t.Error("created = true, want false for a refresh")
	}
	if second.ID != first.ID {
		t.Errorf("refresh produced a new alert %s, want %s", second.ID, first.ID)
	}
	if second.Observed != 12 {
		t.Errorf("observed = %.0f, want 12", second.Observed)
	}

	open, err := repo.CountByStatus(ctx, models.StatusOpen)
	if err != nil {
		t.Fatalf("CountByStatus error: %v", err)
	}
	if open != 1 {
		t.Errorf("open alerts = %d, want exactly 1", open)
	}
}

func TestOpenOrUpdateScopedPerServiceAndRule(t *testing.T) {
	repo := newTestAlertStore(t)
	ctx := context.Background()

	if _, _, err := repo.OpenOrUpdate(ctx, candidate("checkout", time.Now().UTC())); err != nil {
		t.Fatalf("OpenOrUpdate error: %v", err)
	}
	if _, _, err := repo.OpenOrUpdate(ctx, candidate("billing", time.Now().UTC())); err != nil {
		t.Fatalf("OpenOrUpdate error: %v", err)
	}

	open, err := repo.CountByStatus(ctx, models.StatusOpen)
	if err != nil {
		t.Fatalf("CountByStatus error: %v", err)
	}
	if open != 2 {
		t.Errorf("open alerts = %d, want one per service", open)
	}
}

func TestSaveResolvesAlert(t *testing.T) {
	repo := newTestAlertStore(t)
	ctx := context.Background()

	alert, _, err := repo.OpenOrUpdate(ctx, candidate("checkout", time.Now().UTC()))
	if err != nil {
		t.Fatalf("OpenOrUpdate error: %v", err)
	}

	closedAt := time.Now().UTC()
	alert.Status = models.StatusResolved
	alert.ClosedAt = &closedAt
	alert.Note += " Auto-resolved."

	if err := repo.Save(ctx, alert); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if open, _ := repo.FindLatestOpen(ctx, "checkout", "error.rate.high"); open != nil {
		t.Errorf("FindLatestOpen returned %+v after resolution, want nil", open)
	}

	resolved, err := repo.FindByStatus(ctx, models.StatusResolved)
	if err != nil {
		t.Fatalf("FindByStatus error: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("got %d resolved alerts, want 1", len(resolved))
	}
	if resolved[0].ClosedAt == nil {
		t.Error("closedAt not persisted")
	}
	if !strings.HasSuffix(resolved[0].Note, "Auto-resolved.") {
		t.Errorf("note = %q, want the resolution suffix", resolved[0].Note)
	}
}

func TestSaveUnknownAlert(t *testing.T) {
	repo := newTestAlertStore(t)

	err := repo.Save(context.Background(), &models.Alert{
		ID:       "no-such-alert",
		RuleID:   "error.rate.high",
		Status:   models.StatusResolved,
		OpenedAt: time.Now().UTC(),
	})
	if err == nil || !strings.Contains(err.Error(), "alert not found") {
		t.Errorf("error = %v, want alert not found", err)
	}
}

func TestFindByStatusOrdersNewestFirst(t *testing.T) {
	repo := newTestAlertStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	services := []string{"auth", "billing", "checkout"}
	for i, svc := range services {
		if _, _, err := repo.OpenOrUpdate(ctx, candidate(svc, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("OpenOrUpdate(%s) error: %v", svc, err)
		}
	}

	open, err := repo.FindByStatus(ctx, models.StatusOpen)
	if err != nil {
		t.Fatalf("FindByStatus error: %v", err)
	}
	if len(open) != 3 {
		t.Fatalf("got %d alerts, want 3", len(open))
	}
	if open[0].ServiceName != "checkout" || open[2].ServiceName != "auth" {
		t.Errorf("order = [%s %s %s], want newest openedAt first",
			open[0].ServiceName, open[1].ServiceName, open[2].ServiceName)
	}
}

func TestFindLatestOpenMissing(t *testing.T) {
	repo := newTestAlertStore(t)

	alert, err := repo.FindLatestOpen(context.Background(), "nope", "error.rate.high")
	if err != nil {
		t.Fatalf("FindLatestOpen error: %v", err)
	}
	if alert != nil {
		t.Errorf("got %+v, want nil when no open alert exists", alert)
	}
}
