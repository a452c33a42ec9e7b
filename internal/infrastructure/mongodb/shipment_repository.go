package mongodb

import (
	"context"
	"fmt"
	"regexp"
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

type ShipmentRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewShipmentRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *ShipmentRepository {
	collection := db.Collection("shipments")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := &ShipmentRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())

	// Create outbox indexes
	_ = outboxRepo.EnsureIndexes(context.Background())

	return repo
}

func (r *ShipmentRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "shipmentId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "latestStatus", Value: 1}}},
		{Keys: bson.D{{Key: "supplier", Value: 1}}},
		{Keys: bson.D{{Key: "receivingWarehouse", Value: 1}}},
		{Keys: bson.D{{Key: "weekNumber", Value: 1}}},
		{Keys: bson.D{{Key: "estimatedArrival", Value: 1}}},
		{Keys: bson.D{{Key: "archived", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *ShipmentRepository) Save(ctx context.Context, shipment *domain.Shipment) error {
	shipment.UpdatedAt = time.Now().UTC()

	// Start a MongoDB session for transaction
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	// Execute transaction
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		// 1. Save the aggregate
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"shipmentId": shipment.ShipmentID}
		update := bson.M{"$set": shipment}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return nil, fmt.Errorf("failed to save shipment: %w", err)
		}

		// 2. Save domain events to outbox
		domainEvents := shipment.GetDomainEvents()
		if len(domainEvents) > 0 {
			outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))

			for _, event := range domainEvents {
				cloudEvent := r.toCloudEvent(sessCtx, shipment, event)
				if cloudEvent == nil {
					continue
				}

				outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
					shipment.ShipmentID,
					"Shipment",
					kafka.Topics.ShipmentEvents,
					cloudEvent,
				)
				if err != nil {
					return nil, fmt.Errorf("failed to create outbox event: %w", err)
				}

				outboxEvents = append(outboxEvents, outboxEvent)
			}

			// Save all outbox events in the same transaction
			if len(outboxEvents) > 0 {
				if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
					return nil, fmt.Errorf("failed to save outbox events: %w", err)
				}
			}
		}

		// 3. Clear domain events from the aggregate
		shipment.ClearDomainEvents()

		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// toCloudEvent maps a domain event to the shared shipment payload. All
// shipment lifecycle events carry the same data shape so consumers decode
// one struct regardless of type.
func (r *ShipmentRepository) toCloudEvent(ctx context.Context, shipment *domain.Shipment, event domain.DomainEvent) *cloudevents.CloudEvent {
	data := cloudevents.ShipmentEventData{
		ShipmentID:         shipment.ShipmentID,
		Supplier:           shipment.Supplier,
		OrderRef:           shipment.OrderRef,
		ProductName:        shipment.ProductName,
		ReceivingWarehouse: shipment.ReceivingWarehouse,
		Status:             string(shipment.LatestStatus),
		PalletQty:          shipment.PalletQty,
		Quantity:           shipment.Quantity,
		EstimatedArrival:   shipment.EstimatedArrival,
		ActualArrival:      shipment.ActualArrival,
	}

	switch e := event.(type) {
	case domain.ShipmentCreatedEvent:
		data.Status = string(e.Status)
	case domain.ShipmentStatusChangedEvent:
		data.Status = string(e.NewStatus)
		data.PreviousStatus = string(e.PreviousStatus)
		data.Note = e.Note
	case domain.ShipmentArrivedEvent:
		data.PreviousStatus = string(e.PreviousStatus)
	case domain.ShipmentDelayedEvent:
		data.PreviousStatus = string(e.PreviousStatus)
		data.Note = e.Note
	case domain.ShipmentCancelledEvent:
		data.PreviousStatus = string(e.PreviousStatus)
		data.Note = e.Note
	case domain.ShipmentAmendedEvent, domain.ShipmentStoredEvent,
		domain.ShipmentArchivedEvent, domain.ShipmentRestoredEvent:
		// base payload only
	default:
		return nil
	}

	return r.eventFactory.CreateShipmentEvent(ctx, event.EventType(), data)
}

func (r *ShipmentRepository) FindByID(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	var shipment domain.Shipment
	err := r.collection.FindOne(ctx, bson.M{"shipmentId": shipmentID}).Decode(&shipment)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrShipmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *ShipmentRepository) FindByFilter(ctx context.Context, filter domain.ShipmentFilter, limit int64) ([]*domain.Shipment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, buildFilterQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var shipments []*domain.Shipment
	err = cursor.All(ctx, &shipments)
	return shipments, err
}

func (r *ShipmentRepository) Count(ctx context.Context, filter domain.ShipmentFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, buildFilterQuery(filter))
}

func (r *ShipmentRepository) Delete(ctx context.Context, shipmentID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"shipmentId": shipmentID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrShipmentNotFound
	}
	return nil
}

// buildFilterQuery translates the domain filter into a MongoDB query.
// Archived shipments are excluded unless explicitly requested.
func buildFilterQuery(filter domain.ShipmentFilter) bson.M {
	query := bson.M{}

	if !filter.IncludeArchived {
		query["archived"] = false
	}
	if len(filter.Statuses) > 0 {
		query["latestStatus"] = bson.M{"$in": filter.Statuses}
	}
	if len(filter.Suppliers) > 0 {
		query["supplier"] = bson.M{"$in": filter.Suppliers}
	}
	if len(filter.Warehouses) > 0 {
		query["receivingWarehouse"] = bson.M{"$in": filter.Warehouses}
	}
	if len(filter.Incoterms) > 0 {
		query["incoterm"] = bson.M{"$in": filter.Incoterms}
	}
	if len(filter.ForwardingAgents) > 0 {
		query["forwardingAgent"] = bson.M{"$in": filter.ForwardingAgents}
	}

	week := bson.M{}
	if filter.WeekFrom != nil {
		week["$gte"] = *filter.WeekFrom
	}
	if filter.WeekTo != nil {
		week["$lte"] = *filter.WeekTo
	}
	if len(week) > 0 {
		query["weekNumber"] = week
	}

	arrival := bson.M{}
	if filter.ArrivalFrom != nil {
		arrival["$gte"] = *filter.ArrivalFrom
	}
	if filter.ArrivalTo != nil {
		arrival["$lte"] = *filter.ArrivalTo
	}
	if len(arrival) > 0 {
		query["estimatedArrival"] = arrival
	}

	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"supplier": pattern},
			bson.M{"orderRef": pattern},
			bson.M{"productName": pattern},
			bson.M{"vesselName": pattern},
		}
	}

	return query
}

// GetOutboxRepository returns the outbox repository backing this service
func (r *ShipmentRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}
