package server

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/felixge/httpsnoop"

	"github.com/faciam-dev/guidecms/pkg/metrics"
)

// metricsMiddleware records request counts and latency per normalized path.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		path := normalizePath(r.URL.Path)
		metrics.APIRequests.WithLabelValues(r.Method, path, strconv.Itoa(m.Code)).Inc()
		metrics.APILatency.WithLabelValues(r.Method, path).Observe(m.Duration.Seconds())
	})
}

var idRe = regexp.MustCompile(`/\d+(/|$)`)

// normalizePath collapses numeric path segments so ids do not explode the
// label space.
func normalizePath(path string) string {
	for {
		next := idRe.ReplaceAllString(path, "/:id${1}")
		if next == path {
			return path
		}
		path = next
	}
}
