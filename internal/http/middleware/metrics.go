// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic: request
// counts, latencies, in-flight concurrency and response sizes. Labels are
// kept bounded:
//
//   - method: HTTP method verb
//   - path:   the registered Gin route, passed through the configured
//     relabel function (the webhook route embeds a secret and is relabelled);
//     requests that matched no route share the "unmatched" label
//   - status: numeric status code as a string
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedPath labels requests that matched no route.
const unmatchedPath = "unmatched"

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partybot_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration in seconds by method and route path.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partybot_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpInflight gauges the number of requests being served.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "partybot_http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// httpRespSize captures response sizes in bytes. Webhook answers are
	// tiny; party listings stay within a few KiB.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partybot_http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: []float64{0, 64, 256, 1 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10},
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
// relabel, when non-nil, rewrites the route label (for example to hide the
// webhook secret).
//
//	r.Use(middleware.Metrics(middleware.SecretRelabel(secretPath, "/webhook")))
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
func Metrics(relabel func(string) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		switch {
		case path == "":
			path = unmatchedPath
		case relabel != nil:
			path = relabel(path)
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// Size is -1 when nothing was written.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

// SecretRelabel returns a relabel function that replaces the exact route
// secret with label.
func SecretRelabel(secret, label string) func(string) string {
	return func(path string) string {
		if secret != "" && path == secret {
			return label
		}
		return path
	}
}
