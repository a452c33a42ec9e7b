package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/cloudevents"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/metrics"
)

// spanAttributes builds the messaging attributes shared by publish and
// consume spans. Extension attributes are added only when set.
func spanAttributes(topic string, event *cloudevents.CloudEvent) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.MessagingSystemKey.String("kafka"),
		semconv.MessagingDestinationNameKey.String(topic),
		attribute.String("messaging.kafka.event_type", event.Type),
		attribute.String("messaging.message_id", event.ID),
	}
	extension := func(key, value string) {
		if value != "" {
			attrs = append(attrs, attribute.String(key, value))
		}
	}
	extension("imports.correlation_id", event.CorrelationID)
	extension("imports.warehouse_id", event.WarehouseID)
	extension("imports.shipment_ref", event.ShipmentRef)
	return attrs
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// InstrumentedProducer decorates a Producer with publish spans, metrics and
// structured logs.
type InstrumentedProducer struct {
	producer *Producer
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

func NewInstrumentedProducer(producer *Producer, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{
		producer: producer,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("kafka-producer"),
	}
}

// PublishEvent publishes through the wrapped producer inside a producer
// span. Events without a correlation ID get one from the event ID, so every
// event on the wire can be traced back.
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error {
	if event.CorrelationID == "" {
		event.CorrelationID = event.ID
	}

	ctx, span := p.tracer.Start(ctx, "kafka.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(semconv.MessagingOperationKey.String("publish")),
		trace.WithAttributes(spanAttributes(topic, event)...),
	)
	defer span.End()

	start := time.Now()
	err := p.producer.PublishEvent(ctx, topic, event)
	duration := time.Since(start)

	span.SetAttributes(attribute.Int64("messaging.duration_ms", duration.Milliseconds()))
	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, duration)
	}
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, duration)
	}
	finishSpan(span, err)
	return err
}

func (p *InstrumentedProducer) Close() error {
	return p.producer.Close()
}

// InstrumentedConsumer decorates a Consumer so every handled event runs
// inside a consumer span, parented on the producer span extracted from the
// message, and is counted in the consume metrics.
type InstrumentedConsumer struct {
	consumer *Consumer
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewInstrumentedConsumer(consumer *Consumer, m *metrics.Metrics) *InstrumentedConsumer {
	return &InstrumentedConsumer{
		consumer: consumer,
		metrics:  m,
		tracer:   otel.Tracer("kafka-consumer"),
	}
}

func (c *InstrumentedConsumer) Subscribe(topic, eventType string, handler EventHandler) {
	c.consumer.Subscribe(topic, eventType, c.instrument(topic, handler))
}

func (c *InstrumentedConsumer) SubscribeAll(topic string, handler EventHandler) {
	c.consumer.SubscribeAll(topic, c.instrument(topic, handler))
}

func (c *InstrumentedConsumer) instrument(topic string, handler EventHandler) EventHandler {
	group := c.consumer.config.ConsumerGroup
	return func(ctx context.Context, event *cloudevents.CloudEvent) error {
		ctx, span := c.tracer.Start(ctx, "kafka.consume",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(semconv.MessagingOperationKey.String("receive")),
			trace.WithAttributes(spanAttributes(topic, event)...),
			trace.WithAttributes(attribute.String("messaging.kafka.consumer_group", group)),
		)
		defer span.End()

		start := time.Now()
		err := handler(ctx, event)

		span.SetAttributes(attribute.Int64("messaging.processing_duration_ms", time.Since(start).Milliseconds()))
		if c.metrics != nil {
			c.metrics.RecordKafkaConsume(topic, event.Type, err == nil)
		}
		finishSpan(span, err)
		return err
	}
}

func (c *InstrumentedConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *InstrumentedConsumer) Close() error {
	return c.consumer.Close()
}
