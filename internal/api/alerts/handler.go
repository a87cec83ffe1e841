// Package alerts provides HTTP handlers for alert endpoints.
package alerts

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/emberwatch/internal/alerting"
	"github.com/good-yellow-bee/emberwatch/internal/models"
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

// Handler handles alert endpoints.
type Handler struct {
	engine *alerting.Engine
}

// NewHandler creates a new alerts handler.
func NewHandler(engine *alerting.Engine) *Handler {
	return &Handler{engine: engine}
}

// Active handles GET /api/v1/alerts/active.
// Open alerts, most recently opened first.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	active, err := h.engine.ActiveAlerts(r.Context())
	if err != nil {
		log.Printf("active alerts: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to fetch active alerts")
		return
	}
	if active == nil {
		active = []*models.Alert{}
	}
	jsonOK(w, active)
}

// EvaluateResponse reports the outcome of an on-demand evaluation.
type EvaluateResponse struct {
	ServiceName string        `json:"serviceName"`
	Triggered   bool          `json:"triggered"`
	Alert       *models.Alert `json:"alert,omitempty"`
}

// Evaluate handles POST /api/v1/alerts/evaluate/{service}.
// Runs every rule against the service immediately, outside the
// scheduler cadence.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	serviceName := chi.URLParam(r, "service")
	if serviceName == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "service name is required")
		return
	}

	alert, err := h.engine.EvaluateForService(r.Context(), serviceName)
	if err != nil {
		log.Printf("evaluate %s: %v", serviceName, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to evaluate service")
		return
	}

	jsonOK(w, &EvaluateResponse{
		ServiceName: serviceName,
		Triggered:   alert != nil,
		Alert:       alert,
	})
}

// Trend handles GET /api/v1/alerts/trend.
// Daily alert-open counts for the trailing N days (days query parameter,
// default 14) in the zone named by the zone query parameter.
func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "days must be an integer")
			return
		}
		days = n
	}

	var zone *time.Location
	if name := r.URL.Query().Get("zone"); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "unknown time zone")
			return
		}
		zone = loc
	}

	trend, err := h.engine.TrendLastNDays(r.Context(), days, zone)
	if err != nil {
		log.Printf("alert trend: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to compute alert trend")
		return
	}
	jsonOK(w, trend)
}
