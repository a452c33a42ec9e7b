package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/cloudevents"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/tracing"
)

// EventHandler processes one decoded event. Returning an error leaves the
// message uncommitted, so the consumer group redelivers it.
type EventHandler func(ctx context.Context, event *cloudevents.CloudEvent) error

// Consumer fetches CloudEvents from Kafka and routes them by event type.
// Register handlers with Subscribe or SubscribeAll, then call Start.
type Consumer struct {
	config *Config
	logger *logging.Logger

	mu      sync.Mutex
	routes  map[string]map[string]EventHandler
	readers []*kafka.Reader
}

func NewConsumer(config *Config, logger *logging.Logger) *Consumer {
	if logger == nil {
		logger = &logging.Logger{Logger: slog.Default()}
	}
	return &Consumer{
		config: config,
		logger: logger,
		routes: make(map[string]map[string]EventHandler),
	}
}

// Subscribe registers handler for one event type on topic.
func (c *Consumer) Subscribe(topic, eventType string, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.routes[topic] == nil {
		c.routes[topic] = make(map[string]EventHandler)
	}
	c.routes[topic][eventType] = handler
}

// SubscribeAll registers handler as the catch-all for topic. A handler
// registered for a specific event type still takes precedence.
func (c *Consumer) SubscribeAll(topic string, handler EventHandler) {
	c.Subscribe(topic, "*", handler)
}

// Start opens one reader per subscribed topic and consumes until ctx is
// cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	for topic := range c.routes {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:        c.config.Brokers,
			GroupID:        c.config.ConsumerGroup,
			Topic:          topic,
			MinBytes:       c.config.MinBytes,
			MaxBytes:       c.config.MaxBytes,
			MaxWait:        c.config.MaxWait,
			CommitInterval: c.config.CommitTimeout,
		})
		c.readers = append(c.readers, reader)
		go c.consume(ctx, topic, reader)
	}
	c.mu.Unlock()

	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) consume(ctx context.Context, topic string, reader *kafka.Reader) {
	c.logger.Info("Consuming topic", "topic", topic, "group", c.config.ConsumerGroup)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Consumer stopped", "topic", topic)
				return
			}
			c.logger.WithError(err).Error("Fetching message failed", "topic", topic)
			continue
		}

		if !c.process(ctx, topic, msg) {
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			c.logger.WithError(err).Error("Committing offset failed", "topic", topic)
		}
	}
}

// process decodes and dispatches one message. It reports whether the offset
// should be committed: poison messages and unroutable events are committed
// so they do not wedge the partition, handler failures are not.
func (c *Consumer) process(ctx context.Context, topic string, msg kafka.Message) bool {
	event, carrier, err := decodeMessage(msg)
	if err != nil {
		c.logger.WithError(err).Error("Discarding undecodable message",
			"topic", topic, "partition", msg.Partition, "offset", msg.Offset)
		return true
	}

	handler := c.route(topic, event.Type)
	if handler == nil {
		c.logger.Warn("No handler for event type", "topic", topic, "eventType", event.Type)
		return true
	}

	ctx = tracing.ExtractTraceContext(ctx, carrier)
	ctx = logging.ContextWithEventExtensions(ctx, event.CorrelationID, event.WarehouseID, event.ShipmentRef)

	if err := handler(ctx, event); err != nil {
		c.logger.WithError(err).Error("Event handler failed",
			"topic", topic, "eventType", event.Type, "eventId", event.ID)
		return false
	}

	c.logger.KafkaConsume(ctx, topic, event.Type, msg.Partition, msg.Offset)
	return true
}

func (c *Consumer) route(topic, eventType string) EventHandler {
	c.mu.Lock()
	defer c.mu.Unlock()

	byType := c.routes[topic]
	if handler, ok := byType[eventType]; ok {
		return handler
	}
	return byType["*"]
}

// decodeMessage unmarshals the CloudEvent envelope and gathers the trace
// context headers. Extension attributes also travel as headers and win over
// the body when both are present.
func decodeMessage(msg kafka.Message) (*cloudevents.CloudEvent, tracing.MapCarrier, error) {
	var event cloudevents.CloudEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, nil, fmt.Errorf("unmarshal event: %w", err)
	}

	carrier := tracing.MapCarrier{}
	for _, h := range msg.Headers {
		switch h.Key {
		case headerCorrelationID:
			event.CorrelationID = string(h.Value)
		case headerWarehouseID:
			event.WarehouseID = string(h.Value)
		case headerShipmentRef:
			event.ShipmentRef = string(h.Value)
		case headerTraceparent, headerTracestate:
			carrier.Set(h.Key, string(h.Value))
		}
	}
	return &event, carrier, nil
}

// Close shuts down every reader opened by Start.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, reader := range c.readers {
		if err := reader.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.readers = nil
	return errors.Join(errs...)
}
