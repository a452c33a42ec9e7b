package application

import (
	"context"
	"time"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

// ShipmentListItem is the denormalized row served by the list endpoint
type ShipmentListItem struct {
	ShipmentID         string     `bson:"shipmentId" json:"shipmentId"`
	Supplier           string     `bson:"supplier" json:"supplier"`
	OrderRef           string     `bson:"orderRef" json:"orderRef"`
	ProductName        string     `bson:"productName" json:"productName"`
	WeekNumber         int        `bson:"weekNumber" json:"weekNumber"`
	Quantity           float64    `bson:"quantity" json:"quantity"`
	PalletQty          int        `bson:"palletQty" json:"palletQty"`
	ReceivingWarehouse string     `bson:"receivingWarehouse" json:"receivingWarehouse"`
	ForwardingAgent    string     `bson:"forwardingAgent,omitempty" json:"forwardingAgent,omitempty"`
	Incoterm           string     `bson:"incoterm" json:"incoterm"`
	VesselName         string     `bson:"vesselName,omitempty" json:"vesselName,omitempty"`
	LatestStatus       string     `bson:"latestStatus" json:"latestStatus"`
	EstimatedDeparture *time.Time `bson:"estimatedDeparture,omitempty" json:"estimatedDeparture,omitempty"`
	EstimatedArrival   *time.Time `bson:"estimatedArrival,omitempty" json:"estimatedArrival,omitempty"`
	ActualArrival      *time.Time `bson:"actualArrival,omitempty" json:"actualArrival,omitempty"`
	Archived           bool       `bson:"archived" json:"archived"`
	CreatedAt          time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time  `bson:"updatedAt" json:"updatedAt"`

	// Computed at read time, not persisted
	IsLate bool `bson:"-" json:"isLate"`
}

// ShipmentStats holds the dashboard statistics
type ShipmentStats struct {
	TotalShipments   int64   `json:"totalShipments"`
	Planned          int64   `json:"planned"`
	InTransit        int64   `json:"inTransit"`
	Arrived          int64   `json:"arrived"`
	Stored           int64   `json:"stored"`
	Delayed          int64   `json:"delayed"`
	Cancelled        int64   `json:"cancelled"`
	LateArrivals     int64   `json:"lateArrivals"`
	ArrivingThisWeek int64   `json:"arrivingThisWeek"`
	TotalQuantity    float64 `json:"totalQuantity"`
	TotalPallets     int64   `json:"totalPallets"`
	ArchivedCount    int64   `json:"archivedCount"`
}

// ListShipmentsQuery carries filter, pagination and sort for the list endpoint
type ListShipmentsQuery struct {
	Filter    domain.ShipmentFilter
	Page      int64
	PageSize  int64
	SortBy    string
	SortOrder string
}

// ShipmentReadModel is the query-side port over the shipments collection
type ShipmentReadModel interface {
	// List returns one page of list items plus the total match count
	List(ctx context.Context, query ListShipmentsQuery) ([]ShipmentListItem, int64, error)

	// Stats returns the dashboard statistics over non-archived shipments
	Stats(ctx context.Context) (*ShipmentStats, error)

	// ProjectedBinsByWarehouse sums the pallet counts of non-archived
	// arrived/stored shipments per receiving warehouse (one bin per pallet)
	ProjectedBinsByWarehouse(ctx context.Context) (map[string]int, error)
}
