// Package health exposes liveness and dependency probes for the log
// pipeline: the ClickHouse log store, the SQLite alert store, and the
// Redis cache each register a Checker.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// checkTimeout bounds a full probe pass. A dependency slower than this
// is reported as failed rather than holding the probe open.
const checkTimeout = 5 * time.Second

// Checker pings one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckResult is the outcome of one dependency ping.
type CheckResult struct {
	Status  string `json:"status"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

// Report is the probe response body.
type Report struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Handler serves the probe endpoints.
type Handler struct {
	mu       sync.RWMutex
	checkers []Checker
}

func NewHandler() *Handler {
	return &Handler{}
}

// RegisterChecker adds a dependency checker.
func (h *Handler) RegisterChecker(c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

// runChecks pings every registered dependency concurrently and reports
// per-dependency status and latency. A store that went away mid-flight
// shows up here before it shows up as ingest failures.
func (h *Handler) runChecks(ctx context.Context) (map[string]CheckResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	h.mu.RLock()
	checkers := make([]Checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(checkers))
		healthy = true
	)

	for _, checker := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			result := CheckResult{
				Status:  "up",
				Latency: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				result.Status = "down"
				result.Error = err.Error()
			}

			mu.Lock()
			results[c.Name()] = result
			if err != nil {
				healthy = false
			}
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	return results, healthy
}

// Health reports process liveness plus a ping of every dependency. It
// always answers 200: a degraded dependency is diagnostic detail, not a
// reason to restart the process.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	checks, healthy := h.runChecks(r.Context())

	report := Report{Status: "ok", Checks: checks}
	if !healthy {
		report.Status = "degraded"
	}
	writeReport(w, http.StatusOK, report)
}

// Live answers 200 whenever the process can serve a request. Wire this
// to liveness probes.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeReport(w, http.StatusOK, Report{Status: "live"})
}

// Ready answers 200 only when every dependency responds, 503 otherwise.
// Wire this to readiness probes so traffic drains while a store is down.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	checks, healthy := h.runChecks(r.Context())

	report := Report{Status: "ready", Checks: checks}
	status := http.StatusOK
	if !healthy {
		report.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	writeReport(w, status, report)
}

func writeReport(w http.ResponseWriter, status int, report Report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(report)
}
