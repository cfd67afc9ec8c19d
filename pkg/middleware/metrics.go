package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JaimeStill/rancoqc/pkg/metrics"
)

// Metrics returns middleware that counts requests by method and status and
// observes their duration.
func Metrics(m *metrics.Metrics) Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			m.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
