// Package middleware provides reusable HTTP middleware: request IDs, CORS,
// per-client rate limiting, Prometheus metrics and request timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/metrics"
)

// otherRoute labels every path outside metricRoutes.
const otherRoute = "other"

// metricRoutes are the paths served by the platform's services. Anything
// else collapses into otherRoute so scanners cannot grow the series count.
var metricRoutes = map[string]struct{}{
	"/api/v1/recommend":         {},
	"/api/v1/refresh":           {},
	"/api/v1/catalog":           {},
	"/api/v1/cache/stats":       {},
	"/api/v1/cache/invalidate":  {},
	"/api/v1/analytics":         {},
	"/api/v1/analytics/history": {},
	"/health":                   {},
	"/health/live":              {},
	"/health/ready":             {},
	"/metrics":                  {},
}

// Metrics records request count, latency and in-flight requests per route.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeLabel(r.URL.Path)
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func routeLabel(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if _, ok := metricRoutes[path]; ok {
		return path
	}
	return otherRoute
}

// statusWriter captures the first status code written.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
