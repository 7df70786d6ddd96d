package middleware

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/logger"
)

const timeoutBody = `{"error":"request timeout"}`

// Timeout bounds every request by timeout. Responses are buffered until the
// handler returns; if the deadline passes first the client gets a 503 with a
// JSON error and anything the handler writes later is discarded.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, timeout, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			w.Header().Set("Content-Type", "application/json")
			bounded.ServeHTTP(w, r)
			if elapsed := time.Since(start); elapsed >= timeout && r.Context().Err() == nil {
				logger.FromContext(r.Context()).Warn("request timed out",
					"method", r.Method,
					"path", r.URL.Path,
					"timeout", timeout,
				)
			}
		})
	}
}
