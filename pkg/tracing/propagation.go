package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectTraceContext writes the span context from ctx into carrier using
// the globally installed propagator.
func InjectTraceContext(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}

// ExtractTraceContext returns ctx extended with the remote span context
// held in carrier, for parenting consumer-side spans.
func ExtractTraceContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// MapCarrier adapts a plain string map to the TextMapCarrier interface, for
// transports like Kafka headers that have no http.Header equivalent.
type MapCarrier map[string]string

func (c MapCarrier) Get(key string) string { return c[key] }

func (c MapCarrier) Set(key, value string) { c[key] = value }

func (c MapCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
