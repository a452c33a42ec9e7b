package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/cloudevents"
)

// DefaultMaxRetries caps publish attempts per event. Events that exhaust
// their retries stay in the collection with their last error for manual
// inspection.
const DefaultMaxRetries = 10

// OutboxEvent is one event row awaiting relay to Kafka. Rows are written in
// the same transaction as the aggregate they describe, so a crash between
// the database write and the broker write loses nothing.
type OutboxEvent struct {
	ID            string          `bson:"_id" json:"id"`
	AggregateID   string          `bson:"aggregateId" json:"aggregateId"`
	AggregateType string          `bson:"aggregateType" json:"aggregateType"`
	EventType     string          `bson:"eventType" json:"eventType"`
	Topic         string          `bson:"topic" json:"topic"`
	Payload       json.RawMessage `bson:"payload" json:"payload"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	RetryCount    int             `bson:"retryCount" json:"retryCount"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
	MaxRetries    int             `bson:"maxRetries" json:"maxRetries"`
}

// NewOutboxEventFromCloudEvent wraps an already-built CloudEvent envelope
// for storage. The payload is the full envelope, so the relay needs no
// knowledge of event schemas.
func NewOutboxEventFromCloudEvent(aggregateID, aggregateType, topic string, cloudEvent *cloudevents.CloudEvent) (*OutboxEvent, error) {
	payload, err := json.Marshal(cloudEvent)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     cloudEvent.Type,
		Topic:         topic,
		Payload:       payload,
		CreatedAt:     time.Now(),
		MaxRetries:    DefaultMaxRetries,
	}, nil
}

func (e *OutboxEvent) IsPublished() bool {
	return e.PublishedAt != nil
}

// ShouldRetry reports whether the relay may attempt this event again.
func (e *OutboxEvent) ShouldRetry() bool {
	return !e.IsPublished() && e.RetryCount < e.MaxRetries
}

// ToCloudEvent decodes the stored envelope back into a CloudEvent.
func (e *OutboxEvent) ToCloudEvent() (*cloudevents.CloudEvent, error) {
	var cloudEvent cloudevents.CloudEvent
	if err := json.Unmarshal(e.Payload, &cloudEvent); err != nil {
		return nil, err
	}
	return &cloudEvent, nil
}
