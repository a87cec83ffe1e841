// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// statusRecorder captures the status code and body size written by the
// downstream handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// RequestLogger tags every request with an ID and logs it. A caller
// that sends its own X-Request-ID keeps it, so log shippers can
// correlate a rejected batch with their side of the exchange. Quiet
// mode logs failures only; verbose logs everything, query string
// included.
func RequestLogger(verbose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()[:8]
			}
			w.Header().Set("X-Request-ID", requestID)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			if !verbose && rec.status < http.StatusBadRequest {
				return
			}

			target := r.URL.Path
			if verbose && r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}

			log.Printf("http %s %s %s status=%d bytes=%d dur=%v id=%s",
				getClientIP(r),
				r.Method,
				target,
				rec.status,
				rec.bytes,
				time.Since(start),
				requestID,
			)
		})
	}
}
