// Package insights provides HTTP handlers for error analytics endpoints.
package insights

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

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
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Error: &apiError{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiResponse{Data: data})
}

// FilterRequest is the JSON body scoping an analytics query. All fields
// are optional; an empty body matches every event.
type FilterRequest struct {
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	ServiceName string `json:"serviceName,omitempty"`
	Level       string `json:"level,omitempty"`
	Env         string `json:"env,omitempty"`
}

// toFilter converts the request body to a model filter. Timestamps must
// be RFC3339 when present.
func (r *FilterRequest) toFilter() (*models.TimeRangeFilter, error) {
	filter := &models.TimeRangeFilter{ServiceName: r.ServiceName}

	if r.Level != "" {
		filter.Level = models.ParseLogLevel(r.Level)
	}
	if r.Env != "" {
		filter.Env = models.ParseEnvironment(r.Env)
	}
	if r.From != "" {
		t, err := time.Parse(time.RFC3339, r.From)
		if err != nil {
			return nil, err
		}
		filter.From = t
	}
	if r.To != "" {
		t, err := time.Parse(time.RFC3339, r.To)
		if err != nil {
			return nil, err
		}
		filter.To = t
	}
	return filter, nil
}

// Handler handles error analytics endpoints.
type Handler struct {
	stats *stats.Engine
}

// NewHandler creates a new insights handler.
func NewHandler(statsEngine *stats.Engine) *Handler {
	return &Handler{stats: statsEngine}
}

// decodeFilter reads an optional filter body. An empty body is a valid
// unconstrained filter.
func decodeFilter(r *http.Request) (*models.TimeRangeFilter, error) {
	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return req.toFilter()
}

// Trend handles POST /api/v1/errors/trend.
// The interval query parameter selects the bucket width (minute, hour,
// day); anything else falls back to hour.
func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	filter, err := decodeFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid filter body")
		return
	}

	interval := r.URL.Query().Get("interval")
	resp, err := h.stats.Trend(r.Context(), filter, interval)
	if err != nil {
		log.Printf("error trend: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to compute trend")
		return
	}
	jsonOK(w, resp)
}

// Severity handles POST /api/v1/errors/severity.
func (h *Handler) Severity(w http.ResponseWriter, r *http.Request) {
	filter, err := decodeFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid filter body")
		return
	}

	counts, err := h.stats.Severity(r.Context(), filter)
	if err != nil {
		log.Printf("severity breakdown: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to compute severity breakdown")
		return
	}
	jsonOK(w, counts)
}

// ByService handles POST /api/v1/errors/by-service.
// The top query parameter bounds the ranking size, defaulting to 5.
func (h *Handler) ByService(w http.ResponseWriter, r *http.Request) {
	filter, err := decodeFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid filter body")
		return
	}

	topN := intQuery(r, "top", 5)
	ranked, err := h.stats.ErrorsByService(r.Context(), filter, topN)
	if err != nil {
		log.Printf("errors by service: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to rank services")
		return
	}
	jsonOK(w, ranked)
}

// Recent handles POST /api/v1/errors/recent.
// Always scoped to ERROR level regardless of the filter body.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	filter, err := decodeFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid filter body")
		return
	}
	filter.Level = models.LevelError

	page := intQuery(r, "page", 0)
	size := intQuery(r, "size", 20)

	result, err := h.stats.Recent(r.Context(), filter, page, size)
	if err != nil {
		log.Printf("recent errors: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to fetch recent errors")
		return
	}
	jsonOK(w, result)
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
