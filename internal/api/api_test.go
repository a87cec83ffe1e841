package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/good-yellow-bee/emberwatch/internal/alerting"
	"github.com/good-yellow-bee/emberwatch/internal/ingest"
	"github.com/good-yellow-bee/emberwatch/internal/stats"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	engine, err := alerting.NewEngine(nil, nil, nil)
	if err != nil {
		t.Fatalf("create alert engine: %v", err)
	}

	svc := ingest.NewService(nil, nil, nil, ingest.ModeDirect, "")
	srv, err := New(&Config{}, svc, nil, stats.NewEngine(nil), engine, nil)
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return srv
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(&Config{}, nil, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil ingest service")
	}
}

func TestVersionEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Data struct {
			Version   string `json:"version"`
			GoVersion string `json:"go_version"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Version == "" || resp.Data.GoVersion == "" {
		t.Errorf("build info incomplete: %+v", resp.Data)
	}
}

func TestRouterErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)
	router := srv.setupRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/v1/nope",
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "wrong method",
			method:     http.MethodPut,
			path:       "/version",
			wantStatus: http.StatusMethodNotAllowed,
			wantCode:   "METHOD_NOT_ALLOWED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}
