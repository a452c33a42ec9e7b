package domain

import "time"

// DomainEvent represents a domain event raised by an aggregate
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// ShipmentCreatedEvent is emitted when a shipment is registered
type ShipmentCreatedEvent struct {
	ShipmentID         string
	Supplier           string
	OrderRef           string
	ProductName        string
	ReceivingWarehouse string
	Status             ShipmentStatus
	CreatedAt          time.Time
}

func (e ShipmentCreatedEvent) EventType() string { return "imports.shipment.created" }
func (e ShipmentCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// ShipmentAmendedEvent is emitted when shipment details are amended
type ShipmentAmendedEvent struct {
	ShipmentID string
	AmendedAt  time.Time
}

func (e ShipmentAmendedEvent) EventType() string { return "imports.shipment.amended" }
func (e ShipmentAmendedEvent) OccurredAt() time.Time { return e.AmendedAt }

// ShipmentStatusChangedEvent is emitted for transitions that have no
// dedicated event type
type ShipmentStatusChangedEvent struct {
	ShipmentID     string
	PreviousStatus ShipmentStatus
	NewStatus      ShipmentStatus
	Note           string
	ChangedAt      time.Time
}

func (e ShipmentStatusChangedEvent) EventType() string { return "imports.shipment.status-changed" }
func (e ShipmentStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// ShipmentArrivedEvent is emitted when a shipment reaches the receiving warehouse
type ShipmentArrivedEvent struct {
	ShipmentID         string
	PreviousStatus     ShipmentStatus
	ReceivingWarehouse string
	PalletQty          int
	ArrivedAt          time.Time
}

func (e ShipmentArrivedEvent) EventType() string { return "imports.shipment.arrived" }
func (e ShipmentArrivedEvent) OccurredAt() time.Time { return e.ArrivedAt }

// ShipmentDelayedEvent is emitted when a shipment is flagged as delayed
type ShipmentDelayedEvent struct {
	ShipmentID     string
	PreviousStatus ShipmentStatus
	Note           string
	DelayedAt      time.Time
}

func (e ShipmentDelayedEvent) EventType() string { return "imports.shipment.delayed" }
func (e ShipmentDelayedEvent) OccurredAt() time.Time { return e.DelayedAt }

// ShipmentStoredEvent is emitted when an arrived shipment is put away
type ShipmentStoredEvent struct {
	ShipmentID         string
	ReceivingWarehouse string
	PalletQty          int
	StoredAt           time.Time
}

func (e ShipmentStoredEvent) EventType() string { return "imports.shipment.stored" }
func (e ShipmentStoredEvent) OccurredAt() time.Time { return e.StoredAt }

// ShipmentCancelledEvent is emitted when a shipment is cancelled
type ShipmentCancelledEvent struct {
	ShipmentID     string
	PreviousStatus ShipmentStatus
	Note           string
	CancelledAt    time.Time
}

func (e ShipmentCancelledEvent) EventType() string { return "imports.shipment.cancelled" }
func (e ShipmentCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// ShipmentArchivedEvent is emitted when a shipment is archived
type ShipmentArchivedEvent struct {
	ShipmentID string
	ArchivedAt time.Time
}

func (e ShipmentArchivedEvent) EventType() string { return "imports.shipment.archived" }
func (e ShipmentArchivedEvent) OccurredAt() time.Time { return e.ArchivedAt }

// ShipmentRestoredEvent is emitted when an archived shipment is restored
type ShipmentRestoredEvent struct {
	ShipmentID string
	RestoredAt time.Time
}

func (e ShipmentRestoredEvent) EventType() string { return "imports.shipment.restored" }
func (e ShipmentRestoredEvent) OccurredAt() time.Time { return e.RestoredAt }

// WarehouseCapacityUpdatedEvent is emitted when bin counts change
type WarehouseCapacityUpdatedEvent struct {
	WarehouseCode  string
	TotalBins      int
	UsedBins       int
	UtilizationPct float64
	UpdatedBy      string
	UpdatedAt      time.Time
}

func (e WarehouseCapacityUpdatedEvent) EventType() string {
	return "imports.warehouse.capacity-updated"
}

func (e WarehouseCapacityUpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }

// NotificationDispatchedEvent is emitted when a notification delivery is recorded
type NotificationDispatchedEvent struct {
	DeliveryID   string
	UserID       string
	TriggeredBy  string
	Channel      string
	Status       string
	DispatchedAt time.Time
}

func (e NotificationDispatchedEvent) EventType() string {
	return "imports.notification.dispatched"
}

func (e NotificationDispatchedEvent) OccurredAt() time.Time { return e.DispatchedAt }
