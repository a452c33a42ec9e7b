package idempotency

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IdempotencyKey is one stored key: the request it belongs to, a fingerprint
// of the body it arrived with, and, once the request completes, the response
// to replay on retries.
//
// Three timestamps drive the lifecycle. CreatedAt is set on first insert,
// LockedAt while a request is in flight, CompletedAt once the response is
// stored. ExpiresAt feeds the TTL index.
type IdempotencyKey struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Key       string             `bson:"key"`
	UserID    string             `bson:"userId,omitempty"`
	ServiceID string             `bson:"serviceId"`

	// Request identity. A retry with the same key but a different
	// fingerprint is rejected rather than replayed.
	RequestPath        string `bson:"requestPath"`
	RequestMethod      string `bson:"requestMethod"`
	RequestFingerprint string `bson:"requestFingerprint"`

	// Stored response, replayed to later requests with the same key.
	ResponseCode    int               `bson:"responseCode,omitempty"`
	ResponseBody    []byte            `bson:"responseBody,omitempty"`
	ResponseHeaders map[string]string `bson:"responseHeaders,omitempty"`

	LockedAt    *time.Time `bson:"lockedAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	ExpiresAt   time.Time  `bson:"expiresAt"`
}

// IsCompleted reports whether a response has been stored for this key.
func (k *IdempotencyKey) IsCompleted() bool {
	return k.CompletedAt != nil
}

// IsLocked reports whether a request holding this key is still in flight.
func (k *IdempotencyKey) IsLocked() bool {
	return k.LockedAt != nil && k.CompletedAt == nil
}

// ProcessedMessage records one consumed Kafka message per consumer group.
// The unique index on (messageId, topic, consumerGroup) is what makes
// at-least-once delivery safe for side-effecting handlers.
type ProcessedMessage struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	MessageID     string             `bson:"messageId"`
	Topic         string             `bson:"topic"`
	EventType     string             `bson:"eventType"`
	ConsumerGroup string             `bson:"consumerGroup"`
	ServiceID     string             `bson:"serviceId"`

	ProcessedAt time.Time `bson:"processedAt"`
	ExpiresAt   time.Time `bson:"expiresAt"`

	// Carried from the event for traceability.
	CorrelationID string `bson:"correlationId,omitempty"`
	ShipmentRef   string `bson:"shipmentRef,omitempty"`
}
