package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/cloudevents"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/tracing"
)

// Wire header names. The ce-* attributes follow the CloudEvents Kafka
// protocol binding; traceparent and tracestate follow W3C Trace Context.
const (
	headerID            = "ce-id"
	headerType          = "ce-type"
	headerSource        = "ce-source"
	headerSpecVersion   = "ce-specversion"
	headerContentType   = "content-type"
	headerCorrelationID = "ce-correlationid"
	headerWarehouseID   = "ce-warehouseid"
	headerShipmentRef   = "ce-shipmentref"
	headerTraceparent   = "traceparent"
	headerTracestate    = "tracestate"
)

const envelopeContentType = "application/cloudevents+json"

// Producer writes CloudEvents to Kafka. Writers are created per topic on
// first use and reused for the life of the producer.
type Producer struct {
	config *Config

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewProducer(config *Config) *Producer {
	return &Producer{
		config:  config,
		writers: make(map[string]*kafka.Writer),
	}
}

// PublishEvent writes one event to topic, keyed by the event subject so all
// events for a shipment land on the same partition. The caller's trace
// context travels on the message headers.
func (p *Producer) PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	msg := kafka.Message{
		Key:     []byte(event.Subject),
		Value:   value,
		Headers: encodeHeaders(ctx, event),
	}

	if err := p.writerFor(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event %s to topic %s: %w", event.ID, topic, err)
	}
	return nil
}

func (p *Producer) writerFor(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.config.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    p.config.BatchSize,
		BatchTimeout: p.config.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(p.config.RequiredAcks),
	}
	p.writers[topic] = w
	return w
}

// encodeHeaders maps the event envelope and the ambient trace context onto
// message headers. Empty extension attributes are omitted.
func encodeHeaders(ctx context.Context, event *cloudevents.CloudEvent) []kafka.Header {
	headers := []kafka.Header{
		{Key: headerID, Value: []byte(event.ID)},
		{Key: headerType, Value: []byte(event.Type)},
		{Key: headerSource, Value: []byte(event.Source)},
		{Key: headerSpecVersion, Value: []byte(event.SpecVersion)},
		{Key: headerContentType, Value: []byte(envelopeContentType)},
	}

	appendIfSet := func(key, value string) {
		if value != "" {
			headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
		}
	}
	appendIfSet(headerCorrelationID, event.CorrelationID)
	appendIfSet(headerWarehouseID, event.WarehouseID)
	appendIfSet(headerShipmentRef, event.ShipmentRef)

	carrier := tracing.MapCarrier{}
	tracing.InjectTraceContext(ctx, carrier)
	appendIfSet(headerTraceparent, carrier.Get(headerTraceparent))
	appendIfSet(headerTracestate, carrier.Get(headerTracestate))

	return headers
}

// Close flushes and closes every topic writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer for topic %s: %w", topic, err))
		}
	}
	p.writers = make(map[string]*kafka.Writer)
	return errors.Join(errs...)
}
