package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/cloudevents"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/kafka"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/outbox"
	outboxMongo "github.com/TGO0427/synercore-import-schedule-sub001/pkg/outbox/mongodb"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

// subscriptionFlags maps shipment event types to the preference field
// that opts a user in to them
var subscriptionFlags = map[string]string{
	cloudevents.ShipmentArrived:   "onArrival",
	cloudevents.ShipmentDelayed:   "onDelay",
	cloudevents.ShipmentStored:    "onStored",
	cloudevents.ShipmentCancelled: "onCancelled",
}

type PreferencesRepository struct {
	collection *mongo.Collection
}

func NewPreferencesRepository(db *mongo.Database) *PreferencesRepository {
	collection := db.Collection("notification_preferences")

	repo := &PreferencesRepository{collection: collection}
	repo.ensureIndexes(context.Background())

	return repo
}

func (r *PreferencesRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *PreferencesRepository) Upsert(ctx context.Context, prefs *domain.Preferences) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"userId": prefs.UserID}
	update := bson.M{"$set": bson.M{
		"userId":      prefs.UserID,
		"email":       prefs.Email,
		"webhookUrl":  prefs.WebhookURL,
		"onArrival":   prefs.OnArrival,
		"onDelay":     prefs.OnDelay,
		"onStored":    prefs.OnStored,
		"onCancelled": prefs.OnCancelled,
		"updatedAt":   prefs.UpdatedAt,
	}}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}
	return nil
}

func (r *PreferencesRepository) FindByUserID(ctx context.Context, userID string) (*domain.Preferences, error) {
	var prefs domain.Preferences
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&prefs)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// FindSubscribers returns every user opted in to the given event type.
// Event types without a preference flag have no subscribers.
func (r *PreferencesRepository) FindSubscribers(ctx context.Context, eventType string) ([]*domain.Preferences, error) {
	flag, ok := subscriptionFlags[eventType]
	if !ok {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{flag: true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subscribers []*domain.Preferences
	err = cursor.All(ctx, &subscribers)
	return subscribers, err
}

type DeliveryRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewDeliveryRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *DeliveryRepository {
	collection := db.Collection("notification_deliveries")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := &DeliveryRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())

	return repo
}

func (r *DeliveryRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "deliveryId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "sentAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *DeliveryRepository) Save(ctx context.Context, delivery *domain.Delivery) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.collection.InsertOne(sessCtx, delivery); err != nil {
			return nil, fmt.Errorf("failed to insert delivery: %w", err)
		}

		outboxEvents := make([]*outbox.OutboxEvent, 0, len(delivery.DomainEvents))
		for _, event := range delivery.DomainEvents {
			e, ok := event.(domain.NotificationDispatchedEvent)
			if !ok {
				continue
			}

			cloudEvent := r.eventFactory.CreateNotificationDispatchedEvent(sessCtx, cloudevents.NotificationDispatchedData{
				DeliveryID: e.DeliveryID,
				UserID:     e.UserID,
				EventType:  e.TriggeredBy,
				Channel:    e.Channel,
				Status:     e.Status,
			})

			outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
				delivery.DeliveryID,
				"NotificationDelivery",
				kafka.Topics.NotificationEvents,
				cloudEvent,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to create outbox event: %w", err)
			}
			outboxEvents = append(outboxEvents, outboxEvent)
		}

		if len(outboxEvents) > 0 {
			if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
				return nil, fmt.Errorf("failed to save outbox events: %w", err)
			}
		}

		delivery.ClearDomainEvents()
		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}
