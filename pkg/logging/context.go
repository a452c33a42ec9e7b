package logging

import "context"

type contextKey string

// Keys under which identity attributes travel in a context.Context.
const (
	RequestIDKey     contextKey = "requestId"
	CorrelationIDKey contextKey = "correlationId"
	UserIDKey        contextKey = "userId"
	WarehouseIDKey   contextKey = "warehouseId"
	ShipmentRefKey   contextKey = "shipmentRef"
)

// contextAttrs pairs each context key with the attribute name it logs under.
var contextAttrs = []struct {
	key  contextKey
	name string
}{
	{RequestIDKey, "requestId"},
	{CorrelationIDKey, "correlationId"},
	{UserIDKey, "userId"},
	{WarehouseIDKey, "warehouseId"},
	{ShipmentRefKey, "shipmentRef"},
}

func attrsFromContext(ctx context.Context) []any {
	var attrs []any
	for _, entry := range contextAttrs {
		if v := ctx.Value(entry.key); v != nil {
			attrs = append(attrs, entry.name, v)
		}
	}
	return attrs
}

// ContextWithRequestID stores the per-request ID for downstream log records.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// ContextWithCorrelationID stores the cross-service correlation ID.
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// ContextWithUserID stores the authenticated user.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// ContextWithEventExtensions stores the CloudEvents extension values carried
// by a consumed event so handler logs line up with the producer's.
func ContextWithEventExtensions(ctx context.Context, correlationID, warehouseID, shipmentRef string) context.Context {
	if correlationID != "" {
		ctx = context.WithValue(ctx, CorrelationIDKey, correlationID)
	}
	if warehouseID != "" {
		ctx = context.WithValue(ctx, WarehouseIDKey, warehouseID)
	}
	if shipmentRef != "" {
		ctx = context.WithValue(ctx, ShipmentRefKey, shipmentRef)
	}
	return ctx
}
