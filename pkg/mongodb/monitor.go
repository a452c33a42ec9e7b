package mongodb

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/metrics"
)

// NewCommandMonitor returns a driver monitor that records a client span, a
// Prometheus sample and a query log line for every command, whichever layer
// issued it. Install it through Config.Monitor before connecting.
func NewCommandMonitor(m *metrics.Metrics, logger *logging.Logger) *event.CommandMonitor {
	cm := &commandMonitor{
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("mongodb"),
	}
	return &event.CommandMonitor{
		Started:   cm.started,
		Succeeded: cm.succeeded,
		Failed:    cm.failed,
	}
}

type commandMonitor struct {
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
	pending sync.Map
}

// commandKey correlates started and finished events; request IDs are only
// unique per connection.
type commandKey struct {
	connectionID string
	requestID    int64
}

type startedCommand struct {
	span       trace.Span
	collection string
}

// Heartbeats and session housekeeping would drown out collection traffic.
var skippedCommands = map[string]bool{
	"ping":         true,
	"hello":        true,
	"isMaster":     true,
	"endSessions":  true,
	"saslStart":    true,
	"saslContinue": true,
}

func (m *commandMonitor) started(ctx context.Context, e *event.CommandStartedEvent) {
	if skippedCommands[e.CommandName] {
		return
	}

	collection := collectionName(e)
	_, span := m.tracer.Start(ctx, "mongodb."+e.CommandName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(e.DatabaseName),
			semconv.DBOperationKey.String(e.CommandName),
			attribute.String("db.collection", collection),
		),
	)

	m.pending.Store(
		commandKey{e.ConnectionID, e.RequestID},
		&startedCommand{span: span, collection: collection},
	)
}

func (m *commandMonitor) succeeded(ctx context.Context, e *event.CommandSucceededEvent) {
	m.finish(ctx, e.CommandFinishedEvent, rowsAffected(e.Reply), nil)
}

func (m *commandMonitor) failed(ctx context.Context, e *event.CommandFailedEvent) {
	m.finish(ctx, e.CommandFinishedEvent, 0, errors.New(e.Failure))
}

func (m *commandMonitor) finish(ctx context.Context, e event.CommandFinishedEvent, rows int64, failure error) {
	v, ok := m.pending.LoadAndDelete(commandKey{e.ConnectionID, e.RequestID})
	if !ok {
		return
	}
	cmd := v.(*startedCommand)
	duration := time.Duration(e.DurationNanos)

	if m.metrics != nil {
		m.metrics.RecordMongoDBOperation(cmd.collection, e.CommandName, failure == nil, duration)
	}
	if m.logger != nil {
		m.logger.DatabaseQuery(ctx, cmd.collection, e.CommandName, duration, failure == nil, rows)
	}

	if failure != nil {
		cmd.span.RecordError(failure)
		cmd.span.SetStatus(codes.Error, failure.Error())
	} else {
		cmd.span.SetStatus(codes.Ok, "")
		cmd.span.SetAttributes(attribute.Int64("db.rows_affected", rows))
	}
	cmd.span.End()
}

// collectionName pulls the target collection out of the command document.
// For CRUD commands it is the value under the command's own name; commands
// without a collection fall back to the database name.
func collectionName(e *event.CommandStartedEvent) string {
	if coll, ok := e.Command.Lookup(e.CommandName).StringValueOK(); ok {
		return coll
	}
	return e.DatabaseName
}

// rowsAffected reads the server-reported document count when the reply
// carries one; finds report 0 since the reply only holds the first batch.
func rowsAffected(reply bson.Raw) int64 {
	if n, ok := reply.Lookup("nModified").AsInt64OK(); ok && n > 0 {
		return n
	}
	if n, ok := reply.Lookup("n").AsInt64OK(); ok {
		return n
	}
	return 0
}
