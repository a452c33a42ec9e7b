package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Domain errors
var (
	ErrShipmentNotFound        = errors.New("shipment not found")
	ErrInvalidStatus           = errors.New("invalid shipment status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrShipmentArchived        = errors.New("shipment is archived")
	ErrShipmentNotArchived     = errors.New("shipment is not archived")
	ErrShipmentAlreadyArchived = errors.New("shipment is already archived")
	ErrShipmentCancelled       = errors.New("shipment is cancelled")
	ErrSupplierRequired        = errors.New("supplier is required")
	ErrOrderRefRequired        = errors.New("order reference is required")
	ErrProductNameRequired     = errors.New("product name is required")
	ErrWarehouseRequired       = errors.New("receiving warehouse is required")
	ErrIncotermRequired        = errors.New("incoterm is required")
	ErrInvalidIncoterm         = errors.New("invalid incoterm")
	ErrNegativeQuantity        = errors.New("quantity cannot be negative")
	ErrNegativePalletQty       = errors.New("pallet quantity cannot be negative")
	ErrInvalidWeekNumber       = errors.New("week number must be between 1 and 53")
)

// ShipmentStatus represents the lifecycle status of an import shipment
type ShipmentStatus string

const (
	ShipmentStatusPlanned   ShipmentStatus = "planned"
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusArrived   ShipmentStatus = "arrived"
	ShipmentStatusStored    ShipmentStatus = "stored"
	ShipmentStatusDelayed   ShipmentStatus = "delayed"
	ShipmentStatusCancelled ShipmentStatus = "cancelled"
)

// IsValid checks if the status is a valid shipment status
func (s ShipmentStatus) IsValid() bool {
	switch s {
	case ShipmentStatusPlanned, ShipmentStatusInTransit, ShipmentStatusArrived,
		ShipmentStatusStored, ShipmentStatusDelayed, ShipmentStatusCancelled:
		return true
	}
	return false
}

// validTransitions defines the allowed status transitions
var validTransitions = map[ShipmentStatus][]ShipmentStatus{
	ShipmentStatusPlanned:   {ShipmentStatusInTransit, ShipmentStatusDelayed, ShipmentStatusCancelled},
	ShipmentStatusInTransit: {ShipmentStatusArrived, ShipmentStatusDelayed, ShipmentStatusCancelled},
	ShipmentStatusDelayed:   {ShipmentStatusInTransit, ShipmentStatusArrived, ShipmentStatusCancelled},
	ShipmentStatusArrived:   {ShipmentStatusStored, ShipmentStatusDelayed, ShipmentStatusCancelled},
	ShipmentStatusStored:    {},
	ShipmentStatusCancelled: {},
}

// CanTransitionTo checks if a transition to the target status is allowed
func (s ShipmentStatus) CanTransitionTo(target ShipmentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s ShipmentStatus) IsTerminal() bool {
	return s.IsValid() && len(validTransitions[s]) == 0
}

// validIncoterms holds the Incoterms 2020 three-letter codes
var validIncoterms = map[string]struct{}{
	"EXW": {}, "FCA": {}, "FAS": {}, "FOB": {}, "CFR": {}, "CIF": {},
	"CPT": {}, "CIP": {}, "DAP": {}, "DPU": {}, "DDP": {},
}

// StatusChange is an entry in a shipment's status history
type StatusChange struct {
	Status    ShipmentStatus `bson:"status"`
	Note      string         `bson:"note,omitempty"`
	ChangedAt time.Time      `bson:"changedAt"`
}

// ShipmentDetails carries the caller-editable fields of a shipment,
// shared by creation and amendment
type ShipmentDetails struct {
	Supplier           string
	OrderRef           string
	ProductName        string
	WeekNumber         int
	Quantity           float64
	PalletQty          int
	ReceivingWarehouse string
	ForwardingAgent    string
	Incoterm           string
	VesselName         string
	EstimatedDeparture *time.Time
	EstimatedArrival   *time.Time
	Notes              string
}

func (d ShipmentDetails) validate() error {
	if strings.TrimSpace(d.Supplier) == "" {
		return ErrSupplierRequired
	}
	if strings.TrimSpace(d.OrderRef) == "" {
		return ErrOrderRefRequired
	}
	if strings.TrimSpace(d.ProductName) == "" {
		return ErrProductNameRequired
	}
	if strings.TrimSpace(d.ReceivingWarehouse) == "" {
		return ErrWarehouseRequired
	}
	if strings.TrimSpace(d.Incoterm) == "" {
		return ErrIncotermRequired
	}
	if _, ok := validIncoterms[strings.ToUpper(d.Incoterm)]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidIncoterm, d.Incoterm)
	}
	if d.Quantity < 0 {
		return ErrNegativeQuantity
	}
	if d.PalletQty < 0 {
		return ErrNegativePalletQty
	}
	if d.WeekNumber != 0 && (d.WeekNumber < 1 || d.WeekNumber > 53) {
		return ErrInvalidWeekNumber
	}
	return nil
}

// Shipment is the import shipment aggregate root
type Shipment struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	ShipmentID         string             `bson:"shipmentId"`
	Supplier           string             `bson:"supplier"`
	OrderRef           string             `bson:"orderRef"`
	ProductName        string             `bson:"productName"`
	WeekNumber         int                `bson:"weekNumber"`
	Quantity           float64            `bson:"quantity"`
	PalletQty          int                `bson:"palletQty"`
	ReceivingWarehouse string             `bson:"receivingWarehouse"`
	ForwardingAgent    string             `bson:"forwardingAgent,omitempty"`
	Incoterm           string             `bson:"incoterm"`
	VesselName         string             `bson:"vesselName,omitempty"`
	LatestStatus       ShipmentStatus     `bson:"latestStatus"`
	EstimatedDeparture *time.Time         `bson:"estimatedDeparture,omitempty"`
	EstimatedArrival   *time.Time         `bson:"estimatedArrival,omitempty"`
	ActualArrival      *time.Time         `bson:"actualArrival,omitempty"`
	StatusHistory      []StatusChange     `bson:"statusHistory"`
	Notes              string             `bson:"notes,omitempty"`
	Archived           bool               `bson:"archived"`
	ArchivedAt         *time.Time         `bson:"archivedAt,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt"`

	// Domain events (not persisted)
	DomainEvents []DomainEvent `bson:"-"`
}

// NewShipment creates a new shipment aggregate. An empty shipmentID is
// generated; an empty initialStatus defaults to planned.
func NewShipment(shipmentID string, initialStatus ShipmentStatus, details ShipmentDetails) (*Shipment, error) {
	if err := details.validate(); err != nil {
		return nil, err
	}
	if initialStatus == "" {
		initialStatus = ShipmentStatusPlanned
	}
	if !initialStatus.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, initialStatus)
	}
	if shipmentID == "" {
		shipmentID = GenerateShipmentID()
	}

	now := time.Now().UTC()
	shipment := &Shipment{
		ShipmentID:         shipmentID,
		Supplier:           details.Supplier,
		OrderRef:           details.OrderRef,
		ProductName:        details.ProductName,
		WeekNumber:         details.WeekNumber,
		Quantity:           details.Quantity,
		PalletQty:          details.PalletQty,
		ReceivingWarehouse: strings.ToUpper(details.ReceivingWarehouse),
		ForwardingAgent:    details.ForwardingAgent,
		Incoterm:           strings.ToUpper(details.Incoterm),
		VesselName:         details.VesselName,
		LatestStatus:       initialStatus,
		EstimatedDeparture: details.EstimatedDeparture,
		EstimatedArrival:   details.EstimatedArrival,
		StatusHistory: []StatusChange{
			{Status: initialStatus, ChangedAt: now},
		},
		Notes:        details.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: []DomainEvent{},
	}

	shipment.AddDomainEvent(ShipmentCreatedEvent{
		ShipmentID:         shipment.ShipmentID,
		Supplier:           shipment.Supplier,
		OrderRef:           shipment.OrderRef,
		ProductName:        shipment.ProductName,
		ReceivingWarehouse: shipment.ReceivingWarehouse,
		Status:             shipment.LatestStatus,
		CreatedAt:          now,
	})

	return shipment, nil
}

// AmendDetails updates the editable fields of the shipment. Archived and
// cancelled shipments cannot be amended; stored shipments may still fix
// clerical fields.
func (s *Shipment) AmendDetails(details ShipmentDetails) error {
	if s.Archived {
		return ErrShipmentArchived
	}
	if s.LatestStatus == ShipmentStatusCancelled {
		return ErrShipmentCancelled
	}
	if err := details.validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	s.Supplier = details.Supplier
	s.OrderRef = details.OrderRef
	s.ProductName = details.ProductName
	s.WeekNumber = details.WeekNumber
	s.Quantity = details.Quantity
	s.PalletQty = details.PalletQty
	s.ReceivingWarehouse = strings.ToUpper(details.ReceivingWarehouse)
	s.ForwardingAgent = details.ForwardingAgent
	s.Incoterm = strings.ToUpper(details.Incoterm)
	s.VesselName = details.VesselName
	s.EstimatedDeparture = details.EstimatedDeparture
	s.EstimatedArrival = details.EstimatedArrival
	s.Notes = details.Notes
	s.UpdatedAt = now

	s.AddDomainEvent(ShipmentAmendedEvent{
		ShipmentID: s.ShipmentID,
		AmendedAt:  now,
	})

	return nil
}

// ChangeStatus transitions the shipment to the target status, appends the
// transition to the status history and emits the matching domain event.
// A transition to arrived stamps ActualArrival once.
func (s *Shipment) ChangeStatus(target ShipmentStatus, note string) error {
	if s.Archived {
		return ErrShipmentArchived
	}
	if !target.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, target)
	}
	if target == s.LatestStatus || !s.LatestStatus.CanTransitionTo(target) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatusTransition, s.LatestStatus, target)
	}

	previous := s.LatestStatus
	now := time.Now().UTC()
	s.LatestStatus = target
	s.UpdatedAt = now
	s.StatusHistory = append(s.StatusHistory, StatusChange{
		Status:    target,
		Note:      note,
		ChangedAt: now,
	})

	switch target {
	case ShipmentStatusArrived:
		if s.ActualArrival == nil {
			s.ActualArrival = &now
		}
		s.AddDomainEvent(ShipmentArrivedEvent{
			ShipmentID:         s.ShipmentID,
			PreviousStatus:     previous,
			ReceivingWarehouse: s.ReceivingWarehouse,
			PalletQty:          s.PalletQty,
			ArrivedAt:          now,
		})
	case ShipmentStatusDelayed:
		s.AddDomainEvent(ShipmentDelayedEvent{
			ShipmentID:     s.ShipmentID,
			PreviousStatus: previous,
			Note:           note,
			DelayedAt:      now,
		})
	case ShipmentStatusStored:
		s.AddDomainEvent(ShipmentStoredEvent{
			ShipmentID:         s.ShipmentID,
			ReceivingWarehouse: s.ReceivingWarehouse,
			PalletQty:          s.PalletQty,
			StoredAt:           now,
		})
	case ShipmentStatusCancelled:
		s.AddDomainEvent(ShipmentCancelledEvent{
			ShipmentID:     s.ShipmentID,
			PreviousStatus: previous,
			Note:           note,
			CancelledAt:    now,
		})
	default:
		s.AddDomainEvent(ShipmentStatusChangedEvent{
			ShipmentID:     s.ShipmentID,
			PreviousStatus: previous,
			NewStatus:      target,
			Note:           note,
			ChangedAt:      now,
		})
	}

	return nil
}

// Archive soft-hides the shipment from default lists and projections
func (s *Shipment) Archive() error {
	if s.Archived {
		return ErrShipmentAlreadyArchived
	}

	now := time.Now().UTC()
	s.Archived = true
	s.ArchivedAt = &now
	s.UpdatedAt = now

	s.AddDomainEvent(ShipmentArchivedEvent{
		ShipmentID: s.ShipmentID,
		ArchivedAt: now,
	})

	return nil
}

// Restore brings an archived shipment back into default lists
func (s *Shipment) Restore() error {
	if !s.Archived {
		return ErrShipmentNotArchived
	}

	now := time.Now().UTC()
	s.Archived = false
	s.ArchivedAt = nil
	s.UpdatedAt = now

	s.AddDomainEvent(ShipmentRestoredEvent{
		ShipmentID: s.ShipmentID,
		RestoredAt: now,
	})

	return nil
}

// IsLate reports whether the estimated arrival has passed without the
// shipment reaching arrived or stored
func (s *Shipment) IsLate(now time.Time) bool {
	if s.EstimatedArrival == nil {
		return false
	}
	if s.LatestStatus == ShipmentStatusArrived || s.LatestStatus == ShipmentStatusStored {
		return false
	}
	return s.EstimatedArrival.Before(now)
}

// TransitDays returns the elapsed days between estimated departure and
// actual arrival. The second return value is false when either is unset.
func (s *Shipment) TransitDays() (float64, bool) {
	if s.EstimatedDeparture == nil || s.ActualArrival == nil {
		return 0, false
	}
	return s.ActualArrival.Sub(*s.EstimatedDeparture).Hours() / 24, true
}

// AddDomainEvent adds a domain event to the aggregate
func (s *Shipment) AddDomainEvent(event DomainEvent) {
	s.DomainEvents = append(s.DomainEvents, event)
}

// GetDomainEvents returns the accumulated domain events
func (s *Shipment) GetDomainEvents() []DomainEvent {
	return s.DomainEvents
}

// ClearDomainEvents clears the accumulated domain events
func (s *Shipment) ClearDomainEvents() {
	s.DomainEvents = []DomainEvent{}
}

// GenerateShipmentID generates a unique shipment business key
func GenerateShipmentID() string {
	return "SHP-" + time.Now().Format("20060102150405.000")
}
