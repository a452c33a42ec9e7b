package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/outbox"
)

// DefaultCollectionName is where outbox events are stored unless overridden.
const DefaultCollectionName = "outbox_events"

// OutboxRepository is the MongoDB-backed outbox store.
type OutboxRepository struct {
	collection *mongo.Collection
}

func NewOutboxRepository(db *mongo.Database) *OutboxRepository {
	return NewOutboxRepositoryWithCollection(db, DefaultCollectionName)
}

func NewOutboxRepositoryWithCollection(db *mongo.Database, collectionName string) *OutboxRepository {
	return &OutboxRepository{collection: db.Collection(collectionName)}
}

func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	docs := make([]interface{}, len(events))
	for i, event := range events {
		docs[i] = event
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("save outbox events: %w", err)
	}
	return nil
}

// FindUnpublished returns relayable events, oldest first. retryCount is
// matched with $or because $ifNull only works in aggregations and old rows
// may predate the field.
func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	filter := bson.M{
		"publishedAt": bson.M{"$exists": false},
		"$or": []bson.M{
			{"retryCount": bson.M{"$lt": outbox.DefaultMaxRetries}},
			{"retryCount": bson.M{"$exists": false}},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	return r.find(ctx, filter, opts)
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	return r.updateByID(ctx, eventID, bson.M{
		"$set": bson.M{"publishedAt": time.Now()},
	})
}

func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	return r.updateByID(ctx, eventID, bson.M{
		"$inc": bson.M{"retryCount": 1},
		"$set": bson.M{"lastError": errorMsg},
	})
}

func (r *OutboxRepository) DeletePublished(ctx context.Context, olderThan time.Duration) error {
	filter := bson.M{
		"publishedAt": bson.M{
			"$exists": true,
			"$lt":     time.Now().Add(-olderThan),
		},
	}
	if _, err := r.collection.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("delete published events: %w", err)
	}
	return nil
}

func (r *OutboxRepository) GetByID(ctx context.Context, eventID string) (*outbox.OutboxEvent, error) {
	var event outbox.OutboxEvent
	err := r.collection.FindOne(ctx, bson.M{"_id": eventID}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get outbox event %s: %w", eventID, err)
	}
	return &event, nil
}

func (r *OutboxRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.OutboxEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return r.find(ctx, bson.M{"aggregateId": aggregateID}, opts)
}

func (r *OutboxRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*outbox.OutboxEvent, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find outbox events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*outbox.OutboxEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode outbox events: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) updateByID(ctx context.Context, eventID string, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": eventID}, update)
	if err != nil {
		return fmt.Errorf("update outbox event %s: %w", eventID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("event not found: %s", eventID)
	}
	return nil
}

// EnsureIndexes creates the relay and lookup indexes. The TTL index removes
// published events after 7 days even if the sweep never runs; rows without
// publishedAt are never expired.
func (r *OutboxRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "publishedAt", Value: 1},
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index().SetName("idx_publishedAt_createdAt"),
		},
		{
			Keys: bson.D{
				{Key: "aggregateId", Value: 1},
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index().SetName("idx_aggregateId_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "eventType", Value: 1}},
			Options: options.Index().SetName("idx_eventType"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_createdAt"),
		},
		{
			Keys: bson.D{{Key: "publishedAt", Value: 1}},
			Options: options.Index().
				SetName("idx_publishedAt_ttl").
				SetExpireAfterSeconds(604800),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create outbox indexes: %w", err)
	}
	return nil
}
