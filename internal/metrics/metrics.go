package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "knit_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Project lifecycle transitions
	ProjectTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knit_project_transitions_total",
			Help: "Total number of project lifecycle operations",
		},
		[]string{"operation"}, // start, edit, finish, delete, tracker
	)

	// Asset deletions against the storage backend
	AssetDeletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knit_asset_deletions_total",
			Help: "Total number of asset deletions by outcome",
		},
		[]string{"status"}, // success, failed
	)

	AnalyticsCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knit_analytics_cache_lookups_total",
			Help: "Analytics cache lookups by result",
		},
		[]string{"result"}, // hit, miss, error
	)
)

func RecordProjectTransition(operation string) {
	ProjectTransitions.WithLabelValues(operation).Inc()
}

func RecordAssetDeletion(err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	AssetDeletions.WithLabelValues(status).Inc()
}

func RecordCacheLookup(result string) {
	AnalyticsCacheLookups.WithLabelValues(result).Inc()
}

// GinMiddleware observes request latency labelled by route template, so
// /api/projects/:userId is one series regardless of the id.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
