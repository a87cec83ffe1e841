// Package dashboard provides the HTTP handler for the summary endpoint.
package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	dash "github.com/good-yellow-bee/emberwatch/internal/dashboard"
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

// Handler handles the dashboard summary endpoint.
type Handler struct {
	aggregator *dash.Aggregator
}

// NewHandler creates a new dashboard handler.
func NewHandler(aggregator *dash.Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// Summary handles GET /api/v1/dashboard/summary.
// The zone query parameter sets the day boundary for the total-logs
// count; it defaults to UTC.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	var zone *time.Location
	if name := r.URL.Query().Get("zone"); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "unknown time zone")
			return
		}
		zone = loc
	}

	summary, err := h.aggregator.GetSummary(r.Context(), zone)
	if err != nil {
		log.Printf("dashboard summary: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to build summary")
		return
	}
	jsonOK(w, summary)
}
