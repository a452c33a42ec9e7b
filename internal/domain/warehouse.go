package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Warehouse capacity errors
var (
	ErrWarehouseNotFound     = errors.New("warehouse not found")
	ErrWarehouseExists       = errors.New("warehouse already exists")
	ErrWarehouseCodeRequired = errors.New("warehouse code is required")
	ErrInvalidTotalBins      = errors.New("total bins must be greater than zero")
	ErrUsedBinsOutOfRange    = errors.New("used bins must be between zero and total bins")
)

// Capacity levels derived from bin utilization
const (
	CapacityLevelOK       = "ok"
	CapacityLevelWarning  = "warning"
	CapacityLevelCritical = "critical"
)

// WarehouseCapacity is the bin-capacity aggregate for a receiving warehouse
type WarehouseCapacity struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	WarehouseCode string             `bson:"warehouseCode"`
	Name          string             `bson:"name"`
	TotalBins     int                `bson:"totalBins"`
	UsedBins      int                `bson:"usedBins"`
	UpdatedBy     string             `bson:"updatedBy,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`

	// Domain events (not persisted)
	DomainEvents []DomainEvent `bson:"-"`
}

// NewWarehouseCapacity creates a capacity record for a warehouse
func NewWarehouseCapacity(code, name string, totalBins, usedBins int, updatedBy string) (*WarehouseCapacity, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrWarehouseCodeRequired
	}
	if err := validateBins(totalBins, usedBins); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	warehouse := &WarehouseCapacity{
		WarehouseCode: code,
		Name:          name,
		TotalBins:     totalBins,
		UsedBins:      usedBins,
		UpdatedBy:     updatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
		DomainEvents:  []DomainEvent{},
	}

	warehouse.AddDomainEvent(WarehouseCapacityUpdatedEvent{
		WarehouseCode:  warehouse.WarehouseCode,
		TotalBins:      totalBins,
		UsedBins:       usedBins,
		UtilizationPct: warehouse.UtilizationPct(),
		UpdatedBy:      updatedBy,
		UpdatedAt:      now,
	})

	return warehouse, nil
}

func validateBins(totalBins, usedBins int) error {
	if totalBins <= 0 {
		return ErrInvalidTotalBins
	}
	if usedBins < 0 || usedBins > totalBins {
		return ErrUsedBinsOutOfRange
	}
	return nil
}

// UpdateBins sets the bin counts and emits a capacity-updated event
func (w *WarehouseCapacity) UpdateBins(totalBins, usedBins int, updatedBy string) error {
	if err := validateBins(totalBins, usedBins); err != nil {
		return err
	}

	now := time.Now().UTC()
	w.TotalBins = totalBins
	w.UsedBins = usedBins
	w.UpdatedBy = updatedBy
	w.UpdatedAt = now

	w.AddDomainEvent(WarehouseCapacityUpdatedEvent{
		WarehouseCode:  w.WarehouseCode,
		TotalBins:      totalBins,
		UsedBins:       usedBins,
		UtilizationPct: w.UtilizationPct(),
		UpdatedBy:      updatedBy,
		UpdatedAt:      now,
	})

	return nil
}

// UtilizationPct returns used/total as a percentage rounded to one decimal
func (w *WarehouseCapacity) UtilizationPct() float64 {
	if w.TotalBins <= 0 {
		return 0
	}
	return roundPct(float64(w.UsedBins) / float64(w.TotalBins) * 100)
}

// CapacityLevel maps a utilization percentage to an alert level
func CapacityLevel(utilizationPct float64) string {
	switch {
	case utilizationPct > 90:
		return CapacityLevelCritical
	case utilizationPct >= 75:
		return CapacityLevelWarning
	default:
		return CapacityLevelOK
	}
}

// CapacitySnapshot is the read model served for a warehouse, combining the
// stored bin counts with the pallets projected to arrive
type CapacitySnapshot struct {
	WarehouseCode  string    `json:"warehouseCode"`
	Name           string    `json:"name"`
	TotalBins      int       `json:"totalBins"`
	UsedBins       int       `json:"usedBins"`
	ProjectedBins  int       `json:"projectedBins"`
	UtilizationPct float64   `json:"utilizationPct"`
	ProjectedPct   float64   `json:"projectedPct"`
	Level          string    `json:"level"`
	UpdatedBy      string    `json:"updatedBy,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Snapshot builds the capacity read model. projectedBins is the pallet count
// of non-archived arrived/stored shipments destined for this warehouse, one
// bin per pallet. ProjectedPct is capped at 100.
func (w *WarehouseCapacity) Snapshot(projectedBins int) CapacitySnapshot {
	utilization := w.UtilizationPct()

	var projected float64
	if w.TotalBins > 0 {
		projected = roundPct(float64(w.UsedBins+projectedBins) / float64(w.TotalBins) * 100)
	}
	if projected > 100 {
		projected = 100
	}

	return CapacitySnapshot{
		WarehouseCode:  w.WarehouseCode,
		Name:           w.Name,
		TotalBins:      w.TotalBins,
		UsedBins:       w.UsedBins,
		ProjectedBins:  projectedBins,
		UtilizationPct: utilization,
		ProjectedPct:   projected,
		Level:          CapacityLevel(utilization),
		UpdatedBy:      w.UpdatedBy,
		UpdatedAt:      w.UpdatedAt,
	}
}

func roundPct(v float64) float64 {
	return math.Round(v*10) / 10
}

// AddDomainEvent adds a domain event to the aggregate
func (w *WarehouseCapacity) AddDomainEvent(event DomainEvent) {
	w.DomainEvents = append(w.DomainEvents, event)
}

// GetDomainEvents returns the accumulated domain events
func (w *WarehouseCapacity) GetDomainEvents() []DomainEvent {
	return w.DomainEvents
}

// ClearDomainEvents clears the accumulated domain events
func (w *WarehouseCapacity) ClearDomainEvents() {
	w.DomainEvents = []DomainEvent{}
}
