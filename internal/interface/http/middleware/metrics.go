package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/iruldev/modhost/internal/interface/http/httpx"
	"github.com/iruldev/modhost/internal/shared/metrics"
)

// Metrics middleware records HTTP request metrics (count, duration) against
// the supplied recorder. It captures method, path, status for the request
// counter and method, path for the duration histogram.
func Metrics(m metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := httpx.NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			method := r.Method
			path := r.URL.Path
			status := strconv.Itoa(rw.StatusCode())

			m.IncRequest(method, path, status)
			m.ObserveRequestDuration(method, path, duration)
		})
	}
}
