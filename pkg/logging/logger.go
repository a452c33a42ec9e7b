package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel selects the minimum severity a Logger emits.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config holds logger configuration.
type Config struct {
	Level       LogLevel
	ServiceName string
	Environment string
	Version     string
	Output      io.Writer
	AddSource   bool
}

// DefaultConfig returns an info-level config writing JSON to stdout.
// Environment and Version are read from ENVIRONMENT and VERSION when set.
func DefaultConfig(serviceName string) *Config {
	return &Config{
		Level:       LevelInfo,
		ServiceName: serviceName,
		Environment: envOr("ENVIRONMENT", "development"),
		Version:     envOr("VERSION", "unknown"),
		Output:      os.Stdout,
	}
}

// Logger emits structured JSON records. It embeds *slog.Logger, so the
// plain Debug/Info/Warn/Error calls are available directly; the With*
// helpers return derived loggers and never mutate the receiver.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from config. Every record carries the service,
// environment and version attributes.
func New(config *Config) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       config.Level.slogLevel(),
		AddSource:   config.AddSource,
		ReplaceAttr: utcTimestamps,
	})

	return &Logger{Logger: slog.New(handler).With(
		"service", config.ServiceName,
		"environment", config.Environment,
		"version", config.Version,
	)}
}

// utcTimestamps rewrites the built-in time attribute to RFC3339Nano in UTC
// so records collate across hosts regardless of local timezone.
func utcTimestamps(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
	}
	return a
}

func (l *Logger) derive(s *slog.Logger) *Logger {
	return &Logger{Logger: s}
}

// WithContext returns a logger carrying the identity attributes stored in
// ctx: request, correlation, user, warehouse and shipment reference.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := attrsFromContext(ctx)
	if len(attrs) == 0 {
		return l
	}
	return l.derive(l.With(attrs...))
}

// WithError attaches the error message. A nil error returns the receiver.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.derive(l.With("error", err.Error()))
}

// WithComponent names the subsystem emitting subsequent records.
func (l *Logger) WithComponent(component string) *Logger {
	return l.derive(l.With("component", component))
}

// Event logs a business event with its payload fields next to eventType.
func (l *Logger) Event(ctx context.Context, eventType string, data map[string]any) {
	attrs := make([]any, 0, 2+len(data)*2)
	attrs = append(attrs, "eventType", eventType)
	for k, v := range data {
		attrs = append(attrs, k, v)
	}
	l.WithContext(ctx).Info("Business event", attrs...)
}

// Audit records a mutation of a resource for the audit trail.
func (l *Logger) Audit(ctx context.Context, action, resource, resourceID, userID string) {
	l.WithContext(ctx).Info("Audit event",
		"auditAction", action,
		"resource", resource,
		"resourceId", resourceID,
		"userId", userID,
	)
}

// DatabaseQuery records one MongoDB operation. Failures log at error,
// successes at debug to keep steady-state noise down.
func (l *Logger) DatabaseQuery(ctx context.Context, collection, operation string, duration time.Duration, success bool, rowsAffected int64) {
	l.WithContext(ctx).Log(ctx, pickLevel(success, slog.LevelDebug), "Database query",
		"collection", collection,
		"operation", operation,
		"durationMs", duration.Milliseconds(),
		"success", success,
		"rowsAffected", rowsAffected,
	)
}

// KafkaPublish records one produced event.
func (l *Logger) KafkaPublish(ctx context.Context, topic, eventType string, success bool, duration time.Duration) {
	l.WithContext(ctx).Log(ctx, pickLevel(success, slog.LevelDebug), "Kafka publish",
		"topic", topic,
		"eventType", eventType,
		"success", success,
		"durationMs", duration.Milliseconds(),
	)
}

// KafkaConsume records one consumed event.
func (l *Logger) KafkaConsume(ctx context.Context, topic, eventType string, partition int, offset int64) {
	l.WithContext(ctx).Debug("Kafka consume",
		"topic", topic,
		"eventType", eventType,
		"partition", partition,
		"offset", offset,
	)
}

// NotificationDispatch records one delivery attempt. Failed dispatches log
// at warn: subscriber endpoints flapping is an operational condition, not a
// service error.
func (l *Logger) NotificationDispatch(ctx context.Context, channel, eventType, userID string, success bool, duration time.Duration) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	l.WithContext(ctx).Log(ctx, level, "Notification dispatch",
		"channel", channel,
		"eventType", eventType,
		"userId", userID,
		"success", success,
		"durationMs", duration.Milliseconds(),
	)
}

func pickLevel(success bool, onSuccess slog.Level) slog.Level {
	if success {
		return onSuccess
	}
	return slog.LevelError
}

// SetDefault installs this logger as the process-wide slog default.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
