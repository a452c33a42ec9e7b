package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/metrics"
)

// metricsSkipPaths are operational endpoints excluded from request metrics,
// matching the paths the request logger excludes.
var metricsSkipPaths = map[string]struct{}{
	"/metrics": {},
	"/health":  {},
	"/ready":   {},
}

// MetricsMiddleware records request counts, latency and in-flight gauge for
// every route. Paths are labelled by route pattern so path parameters do not
// explode the cardinality.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, skip := metricsSkipPaths[c.Request.URL.Path]; skip {
			c.Next()
			return
		}

		m.IncrementHTTPRequestsInFlight()
		defer m.DecrementHTTPRequestsInFlight()

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// MetricsEndpoint serves the Prometheus scrape endpoint.
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	handler := m.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// BusinessMetrics records domain-level counters from HTTP handlers.
type BusinessMetrics struct {
	metrics *metrics.Metrics
}

// NewBusinessMetrics creates a BusinessMetrics helper.
func NewBusinessMetrics(m *metrics.Metrics) *BusinessMetrics {
	return &BusinessMetrics{metrics: m}
}

// RecordShipmentCreated counts a shipment registration per warehouse.
func (b *BusinessMetrics) RecordShipmentCreated(warehouse string) {
	b.metrics.RecordShipmentCreated(warehouse)
}

// RecordStatusChange counts a shipment status transition.
func (b *BusinessMetrics) RecordStatusChange(status string) {
	b.metrics.RecordStatusChange(status)
}

// RecordReportGenerated counts a report export per format.
func (b *BusinessMetrics) RecordReportGenerated(format string) {
	b.metrics.RecordReportGenerated(format)
}
