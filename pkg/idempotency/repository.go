package idempotency

import (
	"context"
	"time"
)

// KeyRepository stores idempotency keys for the HTTP middleware.
//
// AcquireLock is the linchpin: it must atomically insert-or-lock so that two
// concurrent requests carrying the same key observe exactly one insert, and
// for an existing key it must return the record as it stood before this call
// so the caller can judge the previous holder's lock age.
type KeyRepository interface {
	// AcquireLock inserts the key if absent and stamps a fresh lock either
	// way. It returns the prior record (or the newly stored one) and whether
	// this call created it.
	AcquireLock(ctx context.Context, key *IdempotencyKey) (*IdempotencyKey, bool, error)

	// ReleaseLock clears the lock so a failed request can be retried at once.
	ReleaseLock(ctx context.Context, keyID string) error

	// StoreResponse records the final status, body and headers and marks the
	// key completed. Later requests with the same key replay this response.
	StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error

	// Get looks up a key by its client-supplied value within a service.
	Get(ctx context.Context, key, serviceID string) (*IdempotencyKey, error)

	// Clean deletes keys that expired before the given time and reports how
	// many were removed. The TTL index is the primary expiry path; Clean
	// serves tests and manual sweeps.
	Clean(ctx context.Context, before time.Time) (int64, error)

	// EnsureIndexes creates the unique and TTL indexes. Called at startup.
	EnsureIndexes(ctx context.Context) error
}

// MessageRepository records which Kafka messages a consumer group has
// handled so redeliveries can be skipped.
type MessageRepository interface {
	// MarkProcessed records the message, returning ErrMessageAlreadyProcessed
	// when another consumer recorded it first.
	MarkProcessed(ctx context.Context, msg *ProcessedMessage) error

	// IsProcessed reports whether the message was already recorded for the
	// given topic and consumer group.
	IsProcessed(ctx context.Context, messageID, topic, consumerGroup string) (bool, error)

	// Clean deletes records that expired before the given time.
	Clean(ctx context.Context, before time.Time) (int64, error)

	// EnsureIndexes creates the unique and TTL indexes. Called at startup.
	EnsureIndexes(ctx context.Context) error
}
