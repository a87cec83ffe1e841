// Package logs provides HTTP handlers for log ingestion and query endpoints.
package logs

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/good-yellow-bee/emberwatch/internal/cache"
	"github.com/good-yellow-bee/emberwatch/internal/ingest"
	"github.com/good-yellow-bee/emberwatch/internal/models"
	"github.com/good-yellow-bee/emberwatch/internal/stats"
)

// Response helpers (local to avoid import cycle with api package)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  interface{} `json:"data,omitempty"`
	Error *apiError   `json:"error,omitempty"`
}

const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeInternalError = "INTERNAL_ERROR"
	maxBodyBytes         = 1 << 20
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Error: &apiError{Code: code, Message: message}})
}

func jsonData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Data: data})
}

// Handler handles log ingestion and query endpoints.
type Handler struct {
	ingest *ingest.Service
	recent *cache.RecentLogs
	stats  *stats.Engine
}

// NewHandler creates a new logs handler.
func NewHandler(svc *ingest.Service, recent *cache.RecentLogs, statsEngine *stats.Engine) *Handler {
	return &Handler{ingest: svc, recent: recent, stats: statsEngine}
}

// Ingest handles POST /api/v1/logs.
// The event is indexed synchronously or queued, depending on the
// configured pipeline mode; either way the producer gets a 202.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req ingest.LogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}

	if err := req.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	if err := h.ingest.Process(r.Context(), &req); err != nil {
		log.Printf("ingest log: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to ingest log")
		return
	}

	jsonData(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Recent handles GET /api/v1/logs/recent.
// Serves the cached most-recent events; a cold cache yields an empty list.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	events, err := h.recent.GetRecent(r.Context())
	if err != nil {
		log.Printf("recent logs: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to fetch recent logs")
		return
	}
	if events == nil {
		events = []*models.LogEvent{}
	}
	jsonData(w, http.StatusOK, events)
}

// Search handles GET /api/v1/logs.
// Supports serviceName, level, env, from, to, page, and size query
// parameters; results are newest first.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	page := intQuery(r, "page", 0)
	size := intQuery(r, "size", 20)

	result, err := h.stats.Recent(r.Context(), filter, page, size)
	if err != nil {
		log.Printf("search logs: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to search logs")
		return
	}
	jsonData(w, http.StatusOK, result)
}

// ClearCache handles DELETE /api/v1/logs/cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.recent.Clear(r.Context()); err != nil {
		log.Printf("clear recent cache: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to clear cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// filterFromQuery builds a time range filter from URL query parameters.
func filterFromQuery(r *http.Request) (*models.TimeRangeFilter, error) {
	filter := &models.TimeRangeFilter{
		ServiceName: r.URL.Query().Get("serviceName"),
	}

	if level := r.URL.Query().Get("level"); level != "" {
		filter.Level = models.ParseLogLevel(level)
	}
	if env := r.URL.Query().Get("env"); env != "" {
		filter.Env = models.ParseEnvironment(env)
	}

	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, err
		}
		filter.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, err
		}
		filter.To = t
	}

	return filter, nil
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
