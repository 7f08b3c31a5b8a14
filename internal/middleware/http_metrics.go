package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// staticRoutes are recorded under their own path.
var staticRoutes = map[string]bool{
	"/":                    true,
	"/check-point":         true,
	"/geocode":             true,
	"/regions":             true,
	"/regions/export":      true,
	"/regions/bulk-delete": true,
	"/regions/check-point": true,
	"/history":             true,
	"/history/undo":        true,
	"/history/redo":        true,
	"/layers":              true,
	"/settings":            true,
	"/snapshot":            true,
	"/import/kml":          true,
	"/stats":               true,
	"/tags":                true,
	"/ws/regions":          true,
	"/health":              true,
	"/ready":               true,
	"/metrics":             true,
}

// regionActions are the fixed sub-resources of /regions/{id}.
var regionActions = map[string]bool{
	"duplicate":  true,
	"favorite":   true,
	"visibility": true,
	"lock":       true,
	"vertices":   true,
}

// normalizePath maps a request path to its route pattern so region and layer
// ids do not become metric label values.
func normalizePath(path string) string {
	if staticRoutes[path] {
		return path
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch parts[0] {
	case "regions":
		switch {
		case len(parts) == 2:
			return "/regions/{id}"
		case len(parts) == 3 && regionActions[parts[2]]:
			return "/regions/{id}/" + parts[2]
		case len(parts) == 4 && parts[2] == "vertices":
			return "/regions/{id}/vertices/{index}"
		}
	case "region":
		// Legacy per-region endpoints.
		if len(parts) == 3 && (parts[2] == "check-point" || parts[2] == "check-address") {
			return "/region/{id}/" + parts[2]
		}
	case "layers":
		if len(parts) == 2 {
			return "/layers/{id}"
		}
	}
	return "other"
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// Unwrap returns the underlying writer for http.ResponseController.
func (mrw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return mrw.ResponseWriter
}

// HTTPMetrics is a middleware that records HTTP request metrics.
// Health check endpoints (/health, /ready) are excluded.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			metrics.httpInFlight.Inc()
			defer metrics.httpInFlight.Dec()

			mrw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}

			next.ServeHTTP(mrw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(mrw.statusCode),
				time.Since(start).Seconds(),
				requestSize,
				mrw.size,
			)
		})
	}
}
