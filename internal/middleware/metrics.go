package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status_code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_request_duration_seconds",
		Help: "HTTP request duration in seconds",
	}, []string{"method", "endpoint"})

	activeRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_active",
		Help: "Active HTTP requests",
	})
)

// Metrics records request counters and latency histograms. The /metrics
// endpoint itself is skipped to avoid self-monitoring. The endpoint label
// is the matched route template; unmatched paths share one bucket so
// scanner traffic cannot grow the label set without bound.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		activeRequests.Inc()
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "no_route"
		}

		activeRequests.Dec()
		requestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
		requestCount.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
