package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig tunes the tracing middleware.
type TracingConfig struct {
	ServiceName string
	SkipPaths   []string
	Propagators propagation.TextMapPropagator
	TracerName  string
}

// DefaultTracingConfig skips the operational endpoints and uses the global
// propagator.
func DefaultTracingConfig(serviceName string) *TracingConfig {
	return &TracingConfig{
		ServiceName: serviceName,
		SkipPaths:   []string{"/health", "/ready", "/metrics"},
		Propagators: otel.GetTextMapPropagator(),
		TracerName:  serviceName,
	}
}

// SimpleTracingMiddleware is TracingMiddleware with default configuration.
func SimpleTracingMiddleware(serviceName string) gin.HandlerFunc {
	return TracingMiddleware(DefaultTracingConfig(serviceName))
}

// TracingMiddleware opens a server span per request, continuing any trace
// context the caller sent, and exposes the trace ID to the request logger.
func TracingMiddleware(config *TracingConfig) gin.HandlerFunc {
	tracer := otel.Tracer(config.TracerName)
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, excluded := skip[c.Request.URL.Path]; excluded {
			c.Next()
			return
		}

		ctx := config.Propagators.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx, span := tracer.Start(ctx,
			fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(requestAttributes(c, config.ServiceName, route)...),
		)
		defer span.End()

		c.Set(ContextKeyTraceID, span.SpanContext().TraceID().String())
		c.Set(ContextKeySpanID, span.SpanContext().SpanID().String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		finishSpan(span, c)
	}
}

// requestAttributes builds the span attributes known before the handler runs.
func requestAttributes(c *gin.Context, serviceName, route string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.HTTPMethodKey.String(c.Request.Method),
		semconv.HTTPRouteKey.String(route),
		semconv.HTTPURLKey.String(c.Request.URL.String()),
		semconv.HTTPSchemeKey.String(c.Request.URL.Scheme),
		attribute.String("http.user_agent", c.Request.UserAgent()),
		attribute.String("http.client_ip", c.ClientIP()),
		attribute.String("service.name", serviceName),
	}

	if id := requestIDFrom(c); id != "" {
		attrs = append(attrs, attribute.String("request.id", id))
	}
	if id := c.GetString(ContextKeyCorrelationID); id != "" {
		attrs = append(attrs, attribute.String("correlation.id", id))
	}
	if warehouseID := c.GetHeader(HeaderWarehouseID); warehouseID != "" {
		attrs = append(attrs, attribute.String("imports.warehouse_id", warehouseID))
	}
	if shipmentRef := c.GetHeader(HeaderShipmentRef); shipmentRef != "" {
		attrs = append(attrs, attribute.String("imports.shipment_ref", shipmentRef))
	}

	return attrs
}

// finishSpan records the response status and any handler errors.
func finishSpan(span trace.Span, c *gin.Context) {
	status := c.Writer.Status()
	span.SetAttributes(
		semconv.HTTPStatusCodeKey.Int(status),
		attribute.Int("http.response_size", c.Writer.Size()),
	)

	if status >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	for _, err := range c.Errors {
		span.RecordError(err.Err)
	}
}

// SpanFromGinContext returns the active span for the request.
func SpanFromGinContext(c *gin.Context) trace.Span {
	return trace.SpanFromContext(c.Request.Context())
}

// AddSpanAttributes attaches handler-level attributes to the active span.
func AddSpanAttributes(c *gin.Context, attrs map[string]interface{}) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			kvs = append(kvs, attribute.String(k, val))
		case int:
			kvs = append(kvs, attribute.Int(k, val))
		case int64:
			kvs = append(kvs, attribute.Int64(k, val))
		case float64:
			kvs = append(kvs, attribute.Float64(k, val))
		case bool:
			kvs = append(kvs, attribute.Bool(k, val))
		default:
			kvs = append(kvs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	SpanFromGinContext(c).SetAttributes(kvs...)
}

// SetSpanError marks the active span failed with the given error.
func SetSpanError(c *gin.Context, err error) {
	span := SpanFromGinContext(c)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
