package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/cloudevents"
)

// EventHandler is a function that handles a CloudEvent.
// This mirrors the kafka.EventHandler type so the two packages stay decoupled.
type EventHandler func(ctx context.Context, event *cloudevents.CloudEvent) error

// DeduplicatingHandler wraps an event handler with deduplication logic.
// Kafka delivers at-least-once; this ensures redelivered events do not
// re-trigger side effects such as webhook dispatches. Events are only
// recorded as processed after the handler succeeds, so failures stay
// retryable.
func DeduplicatingHandler(config *ConsumerConfig, handler EventHandler) EventHandler {
	return func(ctx context.Context, event *cloudevents.CloudEvent) error {
		processed, err := config.Repository.IsProcessed(ctx, event.ID, config.Topic, config.ConsumerGroup)
		if err != nil {
			slog.Error("Failed to check if message is processed",
				"error", err,
				"messageId", event.ID,
				"topic", config.Topic,
				"eventType", event.Type,
				"service", config.ServiceName,
			)

			if config.Metrics != nil {
				config.Metrics.RecordDeduplicationError(config.ServiceName, config.Topic, event.Type)
			}

			return err
		}

		if processed {
			slog.Info("Duplicate message skipped",
				"messageId", event.ID,
				"topic", config.Topic,
				"eventType", event.Type,
				"service", config.ServiceName,
			)

			if config.Metrics != nil {
				config.Metrics.RecordDeduplicationHit(config.ServiceName, config.Topic, event.Type)
			}

			return nil
		}

		if config.Metrics != nil {
			config.Metrics.RecordDeduplicationMiss(config.ServiceName, config.Topic, event.Type)
		}

		// Don't mark as processed on error - allow retry
		if err := handler(ctx, event); err != nil {
			return err
		}

		msg := &ProcessedMessage{
			MessageID:     event.ID,
			Topic:         config.Topic,
			EventType:     event.Type,
			ConsumerGroup: config.ConsumerGroup,
			ServiceID:     config.ServiceName,
			ProcessedAt:   time.Now().UTC(),
			ExpiresAt:     time.Now().UTC().Add(config.RetentionPeriod),
			CorrelationID: event.CorrelationID,
			ShipmentRef:   event.ShipmentRef,
		}

		if err := config.Repository.MarkProcessed(ctx, msg); err != nil {
			// Duplicate key means another consumer won the race after we
			// checked; the event was still processed exactly once.
			if errors.Is(err, ErrMessageAlreadyProcessed) {
				slog.Warn("Message was processed concurrently",
					"messageId", event.ID,
					"topic", config.Topic,
					"eventType", event.Type,
					"service", config.ServiceName,
				)
				return nil
			}

			slog.Error("Failed to mark message as processed",
				"error", err,
				"messageId", event.ID,
				"topic", config.Topic,
				"eventType", event.Type,
				"service", config.ServiceName,
			)

			if config.Metrics != nil {
				config.Metrics.RecordDeduplicationError(config.ServiceName, config.Topic, event.Type)
			}

			return err
		}

		return nil
	}
}
