package outbox

import (
	"context"
	"time"
)

// Repository persists outbox events. SaveAll must run inside the caller's
// transaction when the driver supports one, so event rows commit atomically
// with the aggregate.
type Repository interface {
	SaveAll(ctx context.Context, events []*OutboxEvent) error

	// FindUnpublished returns events awaiting relay, oldest first, skipping
	// events that exhausted their retries.
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)

	MarkPublished(ctx context.Context, eventID string) error

	// IncrementRetry bumps the retry count and records the failure reason.
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error

	// DeletePublished removes events published longer than olderThan ago.
	DeletePublished(ctx context.Context, olderThan time.Duration) error

	GetByID(ctx context.Context, eventID string) (*OutboxEvent, error)

	FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error)
}
