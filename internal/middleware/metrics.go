package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records request rate, errors and duration per route. Routes listed
// in streaming hold their connection open, so they are counted but kept out
// of the duration histogram.
func Metrics(reg prometheus.Registerer, streaming ...string) gin.HandlerFunc {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	requestErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "HTTP requests answered with a 4xx or 5xx status.",
		},
		[]string{"method", "path", "class"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Requests currently being served, open streams included.",
	})
	reg.MustRegister(requests, requestErrors, duration, inFlight)

	skip := make(map[string]bool, len(streaming))
	for _, p := range streaming {
		skip[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		inFlight.Inc()
		defer inFlight.Dec()

		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			// Unmatched routes share one label to keep cardinality bounded.
			path = "unmatched"
		}
		method := c.Request.Method

		requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		switch {
		case status >= http.StatusInternalServerError:
			requestErrors.WithLabelValues(method, path, "server").Inc()
		case status >= http.StatusBadRequest:
			requestErrors.WithLabelValues(method, path, "client").Inc()
		}
		if !skip[path] {
			duration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		}
	}
}
