package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "response_cache_hits_total",
		Help: "Total number of response cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "response_cache_misses_total",
		Help: "Total number of response cache misses",
	})
	CacheErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "response_cache_errors_total",
		Help: "Total number of response cache backend errors (degraded to misses)",
	})
	CompletionRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "completion_requests_total",
		Help: "Total number of upstream completion calls",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		HttpRequestsTotal,
		HttpRequestDuration,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheErrorsTotal,
		CompletionRequestsTotal,
	)
}

// GinMiddleware records basic request metrics for Prometheus to scrape.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
