package providers

import (
	"net/http"
	"time"
)

// UnmatchedEndpoint labels requests no registered route serves.
const UnmatchedEndpoint = "unmatched"

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// MetricsMiddleware records request count and latency per registered route
// pattern of mux, so arbitrary paths cannot grow the label set.
func MetricsMiddleware(metrics MetricsProviderInterface, mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := UnmatchedEndpoint
		if _, pattern := mux.Handler(r); pattern != "" {
			endpoint = pattern
		}

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(sw, r)

		metrics.IncRequestsTotal(endpoint, sw.status)
		metrics.ObserveRequestDuration(endpoint, time.Since(start))
	})
}
