package domain

import (
	"context"
	"time"
)

// ShipmentFilter represents filter options for querying shipments
type ShipmentFilter struct {
	Statuses         []ShipmentStatus
	Suppliers        []string
	Warehouses       []string
	Incoterms        []string
	ForwardingAgents []string
	WeekFrom         *int
	WeekTo           *int
	ArrivalFrom      *time.Time
	ArrivalTo        *time.Time
	Search           string
	IncludeArchived  bool
}

// ShipmentRepository defines the interface for shipment persistence
type ShipmentRepository interface {
	// Save persists a shipment and stages its domain events for
	// publication in the same transaction (upsert by shipmentId)
	Save(ctx context.Context, shipment *Shipment) error

	// FindByID retrieves a shipment by its business key.
	// Returns ErrShipmentNotFound when absent.
	FindByID(ctx context.Context, shipmentID string) (*Shipment, error)

	// FindByFilter retrieves shipments matching the filter, up to limit
	// documents (0 means no limit)
	FindByFilter(ctx context.Context, filter ShipmentFilter, limit int64) ([]*Shipment, error)

	// Count returns the number of shipments matching the filter
	Count(ctx context.Context, filter ShipmentFilter) (int64, error)

	// Delete removes a shipment permanently.
	// Returns ErrShipmentNotFound when absent.
	Delete(ctx context.Context, shipmentID string) error
}

// WarehouseCapacityRepository defines the interface for capacity persistence
type WarehouseCapacityRepository interface {
	// Save persists a capacity record and stages its domain events.
	// Returns ErrWarehouseExists when inserting a duplicate code.
	Save(ctx context.Context, warehouse *WarehouseCapacity) error

	// FindByCode retrieves a record by warehouse code.
	// Returns ErrWarehouseNotFound when absent.
	FindByCode(ctx context.Context, code string) (*WarehouseCapacity, error)

	// FindAll retrieves all capacity records sorted by warehouse code
	FindAll(ctx context.Context) ([]*WarehouseCapacity, error)
}

// PreferencesRepository defines the interface for notification preferences
type PreferencesRepository interface {
	// Upsert saves the user's preferences keyed by user ID
	Upsert(ctx context.Context, prefs *Preferences) error

	// FindByUserID retrieves a user's preferences. Returns (nil, nil)
	// when the user never saved any.
	FindByUserID(ctx context.Context, userID string) (*Preferences, error)

	// FindSubscribers retrieves every user opted in to the given event type
	FindSubscribers(ctx context.Context, eventType string) ([]*Preferences, error)
}

// DeliveryRepository defines the interface for delivery records
type DeliveryRepository interface {
	// Save persists a delivery record and stages its domain events
	Save(ctx context.Context, delivery *Delivery) error
}
