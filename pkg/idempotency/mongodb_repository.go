package idempotency

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	idempotencyKeysCollection = "idempotency_keys"
	processedEventsCollection = "processed_events"
)

// MongoKeyRepository is the MongoDB-backed KeyRepository.
type MongoKeyRepository struct {
	collection *mongo.Collection
}

// NewMongoKeyRepository returns a key repository on the given database.
func NewMongoKeyRepository(db *mongo.Database) *MongoKeyRepository {
	return &MongoKeyRepository{collection: db.Collection(idempotencyKeysCollection)}
}

// AcquireLock upserts the key and stamps lockedAt in one atomic operation.
// ReturnDocument(Before) distinguishes insert from update without guessing:
// no prior document means this call created the record, and for an existing
// key the caller sees the lock and completion state the previous holder
// left behind, not the lock this call just stamped.
func (r *MongoKeyRepository) AcquireLock(ctx context.Context, key *IdempotencyKey) (*IdempotencyKey, bool, error) {
	now := time.Now().UTC()
	id := primitive.NewObjectID()

	filter := bson.M{
		"serviceId": key.ServiceID,
		"key":       key.Key,
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":                id,
			"key":                key.Key,
			"serviceId":          key.ServiceID,
			"userId":             key.UserID,
			"requestPath":        key.RequestPath,
			"requestMethod":      key.RequestMethod,
			"requestFingerprint": key.RequestFingerprint,
			"createdAt":          key.CreatedAt,
			"expiresAt":          key.ExpiresAt,
		},
		"$set": bson.M{"lockedAt": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	res := r.collection.FindOneAndUpdate(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(res.Err()) {
		// Lost an upsert race against the unique index; the winner's
		// document exists now, so the same call returns it.
		res = r.collection.FindOneAndUpdate(ctx, filter, update, opts)
	}

	var prior IdempotencyKey
	err := res.Decode(&prior)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		// Nothing existed before this call: the insert won and the lock
		// is ours.
		stored := *key
		stored.ID = id
		stored.LockedAt = &now
		return &stored, true, nil
	case err != nil:
		return nil, false, err
	}

	return &prior, false, nil
}

// ReleaseLock clears lockedAt so the key can be retried immediately.
func (r *MongoKeyRepository) ReleaseLock(ctx context.Context, keyID string) error {
	objID, err := primitive.ObjectIDFromHex(keyID)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": objID},
		bson.M{"$unset": bson.M{"lockedAt": ""}},
	)
	return err
}

// StoreResponse records the response and completion time and drops the lock.
func (r *MongoKeyRepository) StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error {
	objID, err := primitive.ObjectIDFromHex(keyID)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$set": bson.M{
			"responseCode":    responseCode,
			"responseBody":    responseBody,
			"responseHeaders": headers,
			"completedAt":     time.Now().UTC(),
		},
		"$unset": bson.M{"lockedAt": ""},
	})
	return err
}

// Get looks up a key by its client-supplied value within a service.
func (r *MongoKeyRepository) Get(ctx context.Context, key, serviceID string) (*IdempotencyKey, error) {
	var result IdempotencyKey
	err := r.collection.FindOne(ctx, bson.M{
		"serviceId": serviceID,
		"key":       key,
	}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Clean deletes keys that expired before the given time.
func (r *MongoKeyRepository) Clean(ctx context.Context, before time.Time) (int64, error) {
	return deleteExpired(ctx, r.collection, before)
}

// EnsureIndexes creates the unique key index, the TTL index and a sparse
// index over held locks.
func (r *MongoKeyRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "serviceId", Value: 1},
				{Key: "key", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("idx_service_key"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_ttl"),
		},
		{
			Keys:    bson.D{{Key: "lockedAt", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_locked"),
		},
	})
	return err
}

// MongoMessageRepository is the MongoDB-backed MessageRepository.
type MongoMessageRepository struct {
	collection *mongo.Collection
}

// NewMongoMessageRepository returns a message repository on the given database.
func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{collection: db.Collection(processedEventsCollection)}
}

// MarkProcessed inserts the processed-message record. The unique index turns
// a concurrent duplicate into ErrMessageAlreadyProcessed.
func (r *MongoMessageRepository) MarkProcessed(ctx context.Context, msg *ProcessedMessage) error {
	_, err := r.collection.InsertOne(ctx, msg)
	if mongo.IsDuplicateKeyError(err) {
		return ErrMessageAlreadyProcessed
	}
	return err
}

// IsProcessed reports whether the message was recorded for the topic and
// consumer group.
func (r *MongoMessageRepository) IsProcessed(ctx context.Context, messageID, topic, consumerGroup string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"messageId":     messageID,
		"topic":         topic,
		"consumerGroup": consumerGroup,
	})
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Clean deletes records that expired before the given time.
func (r *MongoMessageRepository) Clean(ctx context.Context, before time.Time) (int64, error) {
	return deleteExpired(ctx, r.collection, before)
}

// EnsureIndexes creates the dedup unique index and the TTL index.
func (r *MongoMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "messageId", Value: 1},
				{Key: "topic", Value: 1},
				{Key: "consumerGroup", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("idx_msg_topic_group"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_ttl"),
		},
	})
	return err
}

func deleteExpired(ctx context.Context, collection *mongo.Collection, before time.Time) (int64, error) {
	result, err := collection.DeleteMany(ctx, bson.M{
		"expiresAt": bson.M{"$lt": before},
	})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}

// InitializeIndexes creates all idempotency indexes.
// Called once during service startup before handling traffic.
func InitializeIndexes(ctx context.Context, db *mongo.Database) error {
	if err := NewMongoKeyRepository(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	return NewMongoMessageRepository(db).EnsureIndexes(ctx)
}
