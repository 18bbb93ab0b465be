package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idiomas_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idiomas_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	assetCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idiomas_asset_cache_requests_total",
			Help: "Requests seen by the asset cache worker by outcome",
		},
		[]string{"result"},
	)

	resolverTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idiomas_resolver_queries_total",
			Help: "Resolver queries by query kind and the tier that answered",
		},
		[]string{"query", "source"},
	)

	syncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idiomas_remote_sync_total",
			Help: "Remote sync operations by outcome",
		},
		[]string{"op", "status"},
	)
)

// Middleware collects request counts and latencies for the gin router.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// RecordAssetCache counts a worker outcome: hit, miss, offline or bypass.
func RecordAssetCache(result string) {
	assetCacheTotal.WithLabelValues(result).Inc()
}

// RecordResolve counts which tier answered a query. source is "none" when every tier came back empty.
func RecordResolve(query, source string) {
	resolverTotal.WithLabelValues(query, source).Inc()
}

// RecordSync counts a remote sync attempt.
func RecordSync(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	syncTotal.WithLabelValues(op, status).Inc()
}
