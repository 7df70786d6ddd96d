// Package middleware wraps the ranking API's HTTP handlers: request ids,
// access logging, Prometheus metrics, CORS and per-request deadlines.
package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/metrics"
)

const termsPrefix = "/api/v1/terms/"

var knownRoutes = []string{
	"/api/v1/search",
	"/api/v1/score",
	"/api/v1/explain",
	"/api/v1/stats",
	"/api/v1/analytics",
	"/api/v1/cache/stats",
	"/api/v1/cache/invalidate",
	"/health/live",
	"/health/ready",
	"/metrics",
}

// Metrics records request count, latency and in-flight requests. Paths are
// reduced to their route so label cardinality does not grow with the
// vocabulary or with scanners probing random URLs.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			start := time.Now()
			sw := wrap(w)
			next.ServeHTTP(sw, r)

			route := normalizePath(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// AccessLog writes one record per request through the request-scoped
// logger, so the line carries the request id. Health probes and scrapes are
// logged at debug.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := wrap(w)
		next.ServeHTTP(sw, r)

		log := logger.FromContext(r.Context())
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"duration_us", time.Since(start).Microseconds(),
		}
		if strings.HasPrefix(r.URL.Path, "/health/") || r.URL.Path == "/metrics" {
			log.Debug("http request", attrs...)
			return
		}
		log.Info("http request", attrs...)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func wrap(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
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
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += n
	return n, err
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, termsPrefix) && len(path) > len(termsPrefix) {
		return termsPrefix + "{term}"
	}
	if slices.Contains(knownRoutes, path) {
		return path
	}
	return "other"
}
