package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
)

// Gin context keys for request-scoped identifiers.
const (
	ContextKeyRequestID     = "requestId"
	ContextKeyCorrelationID = "correlationId"
	ContextKeyTraceID       = "traceId"
	ContextKeySpanID        = "spanId"
)

// Headers carrying identifiers between services.
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderWarehouseID   = "X-Warehouse-ID"
	HeaderShipmentRef   = "X-Shipment-Ref"
)

// ensureID returns the identifier the caller sent in header, minting a
// fresh one when absent, and records it on the context and the response.
func ensureID(c *gin.Context, header, contextKey string) string {
	id := c.GetHeader(header)
	if id == "" {
		id = uuid.New().String()
	}
	c.Set(contextKey, id)
	c.Header(header, id)
	return id
}

// RequestID assigns each request an ID, honouring one supplied by the
// caller, and echoes it back in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ensureID(c, HeaderRequestID, ContextKeyRequestID)

		// Make the ID visible to the logging package downstream
		ctx := logging.ContextWithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CorrelationID propagates the cross-service correlation ID, minting one at
// the edge when absent. Warehouse and shipment reference headers are lifted
// into the request context so logs and published events carry them.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := ensureID(c, HeaderCorrelationID, ContextKeyCorrelationID)

		ctx := logging.ContextWithCorrelationID(c.Request.Context(), correlationID)

		warehouseID := c.GetHeader(HeaderWarehouseID)
		shipmentRef := c.GetHeader(HeaderShipmentRef)
		if warehouseID != "" || shipmentRef != "" {
			ctx = logging.ContextWithEventExtensions(ctx, correlationID, warehouseID, shipmentRef)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// LoggerConfig tunes the request logging middleware.
type LoggerConfig struct {
	Logger *slog.Logger

	// ExcludePaths are not logged at all, keeping probe and scrape noise
	// out of the request log.
	ExcludePaths []string
}

// DefaultLoggerConfig excludes the operational endpoints from logging.
func DefaultLoggerConfig(logger *slog.Logger) *LoggerConfig {
	return &LoggerConfig{
		Logger:       logger,
		ExcludePaths: []string{"/health", "/ready", "/metrics"},
	}
}

// Logger logs each request with latency and correlation context.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return LoggerWithConfig(DefaultLoggerConfig(logger))
}

// LoggerWithConfig is Logger with explicit configuration.
func LoggerWithConfig(config *LoggerConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(config.ExcludePaths))
	for _, path := range config.ExcludePaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, excluded := skip[path]; excluded {
			c.Next()
			return
		}

		start := time.Now()
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency", latency.String(),
			"latencyMs", latency.Milliseconds(),
			"clientIP", c.ClientIP(),
			"userAgent", c.Request.UserAgent(),
		}
		for _, key := range []string{ContextKeyRequestID, ContextKeyCorrelationID, ContextKeyTraceID} {
			if id := c.GetString(key); id != "" {
				attrs = append(attrs, key, id)
			}
		}
		if query != "" {
			attrs = append(attrs, "query", query)
		}

		config.Logger.Log(c.Request.Context(), levelForStatus(status), "HTTP request", attrs...)
	}
}

// levelForStatus maps an HTTP status to the request log level: server
// errors are errors, client errors are warnings, the rest is routine.
func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Recovery converts panics into logged 500 responses.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"requestId", requestIDFrom(c),
					"correlationId", c.GetString(ContextKeyCorrelationID),
				)

				AbortWithAppError(c, &errors.AppError{
					Code:       "INTERNAL_ERROR",
					Message:    "An unexpected error occurred",
					HTTPStatus: 500,
				})
			}
		}()
		c.Next()
	}
}

// requestIDFrom reads the request ID assigned by RequestID, if any.
func requestIDFrom(c *gin.Context) string {
	if val, ok := c.Get(ContextKeyRequestID); ok {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}
