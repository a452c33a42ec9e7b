package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/cloudevents"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/kafka"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/outbox"
	outboxMongo "github.com/TGO0427/synercore-import-schedule-sub001/pkg/outbox/mongodb"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

type WarehouseRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewWarehouseRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *WarehouseRepository {
	collection := db.Collection("warehouse_capacity")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := &WarehouseRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())

	return repo
}

func (r *WarehouseRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "warehouseCode", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save inserts a new capacity record or replaces a loaded one, staging the
// domain events to the outbox in the same transaction. A duplicate code on
// insert maps to ErrWarehouseExists.
func (r *WarehouseRepository) Save(ctx context.Context, warehouse *domain.WarehouseCapacity) error {
	warehouse.UpdatedAt = time.Now().UTC()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if warehouse.ID.IsZero() {
			result, err := r.collection.InsertOne(sessCtx, warehouse)
			if err != nil {
				if mongo.IsDuplicateKeyError(err) {
					return nil, domain.ErrWarehouseExists
				}
				return nil, fmt.Errorf("failed to insert warehouse: %w", err)
			}
			if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
				warehouse.ID = oid
			}
		} else {
			filter := bson.M{"warehouseCode": warehouse.WarehouseCode}
			if _, err := r.collection.UpdateOne(sessCtx, filter, bson.M{"$set": warehouse}); err != nil {
				return nil, fmt.Errorf("failed to save warehouse: %w", err)
			}
		}

		if err := r.stageEvents(sessCtx, warehouse); err != nil {
			return nil, err
		}

		warehouse.ClearDomainEvents()
		return nil, nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrWarehouseExists) {
			return domain.ErrWarehouseExists
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

func (r *WarehouseRepository) stageEvents(ctx mongo.SessionContext, warehouse *domain.WarehouseCapacity) error {
	domainEvents := warehouse.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		e, ok := event.(domain.WarehouseCapacityUpdatedEvent)
		if !ok {
			continue
		}

		cloudEvent := r.eventFactory.CreateWarehouseCapacityEvent(ctx, cloudevents.WarehouseCapacityData{
			WarehouseCode:  e.WarehouseCode,
			TotalBins:      e.TotalBins,
			UsedBins:       e.UsedBins,
			UtilizationPct: e.UtilizationPct,
			UpdatedBy:      e.UpdatedBy,
		})

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			warehouse.WarehouseCode,
			"WarehouseCapacity",
			kafka.Topics.WarehouseEvents,
			cloudEvent,
		)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if len(outboxEvents) > 0 {
		if err := r.outboxRepo.SaveAll(ctx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}
	}
	return nil
}

func (r *WarehouseRepository) FindByCode(ctx context.Context, code string) (*domain.WarehouseCapacity, error) {
	var warehouse domain.WarehouseCapacity
	err := r.collection.FindOne(ctx, bson.M{"warehouseCode": code}).Decode(&warehouse)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrWarehouseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func (r *WarehouseRepository) FindAll(ctx context.Context) ([]*domain.WarehouseCapacity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "warehouseCode", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var warehouses []*domain.WarehouseCapacity
	err = cursor.All(ctx, &warehouses)
	return warehouses, err
}
