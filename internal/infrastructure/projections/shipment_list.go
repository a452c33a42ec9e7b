package projections

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

// sortFields whitelists the sortable columns of the list endpoint
var sortFields = map[string]bool{
	"createdAt":          true,
	"updatedAt":          true,
	"supplier":           true,
	"productName":        true,
	"weekNumber":         true,
	"quantity":           true,
	"palletQty":          true,
	"receivingWarehouse": true,
	"latestStatus":       true,
	"estimatedDeparture": true,
	"estimatedArrival":   true,
}

// MongoShipmentReadModel serves list and dashboard queries straight off the
// shipments collection. Indexes are owned by the write-side repository.
type MongoShipmentReadModel struct {
	collection *mongo.Collection
}

// NewMongoShipmentReadModel creates a read model over the shipments collection
func NewMongoShipmentReadModel(db *mongo.Database) *MongoShipmentReadModel {
	return &MongoShipmentReadModel{collection: db.Collection("shipments")}
}

// List finds shipments with filtering, sorting and pagination
func (r *MongoShipmentReadModel) List(ctx context.Context, query application.ListShipmentsQuery) ([]application.ShipmentListItem, int64, error) {
	mongoQuery := buildListQuery(query.Filter)

	total, err := r.collection.CountDocuments(ctx, mongoQuery)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count shipments: %w", err)
	}

	sortField := "createdAt"
	if sortFields[query.SortBy] {
		sortField = query.SortBy
	}
	sortOrder := -1
	if query.SortOrder == "asc" {
		sortOrder = 1
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: sortOrder}}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cursor, err := r.collection.Find(ctx, mongoQuery, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find shipments: %w", err)
	}
	defer cursor.Close(ctx)

	var items []application.ShipmentListItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode shipments: %w", err)
	}

	now := time.Now().UTC()
	for i := range items {
		items[i].IsLate = isLate(items[i], now)
	}

	return items, total, nil
}

// isLate mirrors the aggregate's lateness rule for list rows
func isLate(item application.ShipmentListItem, now time.Time) bool {
	if item.EstimatedArrival == nil {
		return false
	}
	if item.LatestStatus == string(domain.ShipmentStatusArrived) || item.LatestStatus == string(domain.ShipmentStatusStored) {
		return false
	}
	return item.EstimatedArrival.Before(now)
}

func buildListQuery(filter domain.ShipmentFilter) bson.M {
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

// Stats returns the dashboard statistics over non-archived shipments
func (r *MongoShipmentReadModel) Stats(ctx context.Context) (*application.ShipmentStats, error) {
	now := time.Now().UTC()
	active := bson.M{"archived": false}

	stats := &application.ShipmentStats{}

	total, _ := r.collection.CountDocuments(ctx, active)
	stats.TotalShipments = total

	planned, _ := r.collection.CountDocuments(ctx, bson.M{"archived": false, "latestStatus": domain.ShipmentStatusPlanned})
	stats.Planned = planned

	inTransit, _ := r.collection.CountDocuments(ctx, bson.M{"archived": false, "latestStatus": domain.ShipmentStatusInTransit})
	stats.InTransit = inTransit

	arrived, _ := r.collection.CountDocuments(ctx, bson.M{"archived": false, "latestStatus": domain.ShipmentStatusArrived})
	stats.Arrived = arrived

	stored, _ := r.collection.CountDocuments(ctx, bson.M{"archived": false, "latestStatus": domain.ShipmentStatusStored})
	stats.Stored = stored

	delayed, _ := r.collection.CountDocuments(ctx, bson.M{"archived": false, "latestStatus": domain.ShipmentStatusDelayed})
	stats.Delayed = delayed

	cancelled, _ := r.collection.CountDocuments(ctx, bson.M{"archived": false, "latestStatus": domain.ShipmentStatusCancelled})
	stats.Cancelled = cancelled

	late, _ := r.collection.CountDocuments(ctx, bson.M{
		"archived":         false,
		"estimatedArrival": bson.M{"$lt": now},
		"latestStatus":     bson.M{"$nin": bson.A{domain.ShipmentStatusArrived, domain.ShipmentStatusStored}},
	})
	stats.LateArrivals = late

	arriving, _ := r.collection.CountDocuments(ctx, bson.M{
		"archived":         false,
		"estimatedArrival": bson.M{"$gte": now, "$lt": now.Add(7 * 24 * time.Hour)},
		"latestStatus":     bson.M{"$nin": bson.A{domain.ShipmentStatusArrived, domain.ShipmentStatusStored, domain.ShipmentStatusCancelled}},
	})
	stats.ArrivingThisWeek = arriving

	archived, _ := r.collection.CountDocuments(ctx, bson.M{"archived": true})
	stats.ArchivedCount = archived

	// Quantity and pallet totals
	pipeline := []bson.M{
		{"$match": active},
		{"$group": bson.M{
			"_id":           nil,
			"totalQuantity": bson.M{"$sum": "$quantity"},
			"totalPallets":  bson.M{"$sum": "$palletQty"},
		}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err == nil {
		defer cursor.Close(ctx)
		if cursor.Next(ctx) {
			var result struct {
				TotalQuantity float64 `bson:"totalQuantity"`
				TotalPallets  int64   `bson:"totalPallets"`
			}
			if err := cursor.Decode(&result); err == nil {
				stats.TotalQuantity = result.TotalQuantity
				stats.TotalPallets = result.TotalPallets
			}
		}
	}

	return stats, nil
}

// ProjectedBinsByWarehouse sums pallet counts of non-archived arrived and
// stored shipments per receiving warehouse, one bin per pallet
func (r *MongoShipmentReadModel) ProjectedBinsByWarehouse(ctx context.Context) (map[string]int, error) {
	pipeline := []bson.M{
		{"$match": bson.M{
			"archived":     false,
			"latestStatus": bson.M{"$in": bson.A{domain.ShipmentStatusArrived, domain.ShipmentStatusStored}},
		}},
		{"$group": bson.M{"_id": "$receivingWarehouse", "pallets": bson.M{"$sum": "$palletQty"}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate projected bins: %w", err)
	}
	defer cursor.Close(ctx)

	projected := make(map[string]int)
	for cursor.Next(ctx) {
		var result struct {
			ID      string `bson:"_id"`
			Pallets int    `bson:"pallets"`
		}
		if err := cursor.Decode(&result); err == nil && result.ID != "" {
			projected[result.ID] = result.Pallets
		}
	}

	return projected, nil
}
