package application

import (
	"time"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

// CreateShipmentCommand represents the command to register a new shipment
type CreateShipmentCommand struct {
	ShipmentID         string
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
	InitialStatus      string
	EstimatedDeparture *time.Time
	EstimatedArrival   *time.Time
	Notes              string
}

// AmendShipmentCommand represents the command to amend shipment details
type AmendShipmentCommand struct {
	ShipmentID         string
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

func (cmd CreateShipmentCommand) details() domain.ShipmentDetails {
	return domain.ShipmentDetails{
		Supplier:           cmd.Supplier,
		OrderRef:           cmd.OrderRef,
		ProductName:        cmd.ProductName,
		WeekNumber:         cmd.WeekNumber,
		Quantity:           cmd.Quantity,
		PalletQty:          cmd.PalletQty,
		ReceivingWarehouse: cmd.ReceivingWarehouse,
		ForwardingAgent:    cmd.ForwardingAgent,
		Incoterm:           cmd.Incoterm,
		VesselName:         cmd.VesselName,
		EstimatedDeparture: cmd.EstimatedDeparture,
		EstimatedArrival:   cmd.EstimatedArrival,
		Notes:              cmd.Notes,
	}
}

func (cmd AmendShipmentCommand) details() domain.ShipmentDetails {
	return domain.ShipmentDetails{
		Supplier:           cmd.Supplier,
		OrderRef:           cmd.OrderRef,
		ProductName:        cmd.ProductName,
		WeekNumber:         cmd.WeekNumber,
		Quantity:           cmd.Quantity,
		PalletQty:          cmd.PalletQty,
		ReceivingWarehouse: cmd.ReceivingWarehouse,
		ForwardingAgent:    cmd.ForwardingAgent,
		Incoterm:           cmd.Incoterm,
		VesselName:         cmd.VesselName,
		EstimatedDeparture: cmd.EstimatedDeparture,
		EstimatedArrival:   cmd.EstimatedArrival,
		Notes:              cmd.Notes,
	}
}

// ChangeStatusCommand represents the command to transition a shipment
type ChangeStatusCommand struct {
	ShipmentID string
	Status     string
	Note       string
}

// ArchiveShipmentCommand represents the command to archive a shipment
type ArchiveShipmentCommand struct {
	ShipmentID string
}

// RestoreShipmentCommand represents the command to restore an archived shipment
type RestoreShipmentCommand struct {
	ShipmentID string
}

// DeleteShipmentCommand represents the command to permanently remove a shipment
type DeleteShipmentCommand struct {
	ShipmentID string
}

// BulkArchiveCommand represents the command to archive a batch of shipments
type BulkArchiveCommand struct {
	ShipmentIDs []string
}

// BulkChangeStatusCommand represents the command to transition a batch of shipments
type BulkChangeStatusCommand struct {
	ShipmentIDs []string
	Status      string
	Note        string
}

// GetShipmentQuery represents the query to get a shipment by ID
type GetShipmentQuery struct {
	ShipmentID string
}

// ReportQuery represents the query for an aggregated shipment report
type ReportQuery struct {
	Filter  domain.ShipmentFilter
	GroupBy string
}

// CreateWarehouseCommand represents the command to create a capacity record
type CreateWarehouseCommand struct {
	WarehouseCode string
	Name          string
	TotalBins     int
	UsedBins      int
	UpdatedBy     string
}

// UpdateWarehouseBinsCommand represents the command to update bin counts
type UpdateWarehouseBinsCommand struct {
	WarehouseCode string
	TotalBins     int
	UsedBins      int
	UpdatedBy     string
}

// SavePreferencesCommand represents the command to upsert notification preferences
type SavePreferencesCommand struct {
	UserID      string
	Email       string
	WebhookURL  string
	OnArrival   bool
	OnDelay     bool
	OnStored    bool
	OnCancelled bool
}

// GetPreferencesQuery represents the query for a user's preferences
type GetPreferencesQuery struct {
	UserID string
}

// TestNotificationCommand represents the command to dispatch a test notification
type TestNotificationCommand struct {
	UserID string
}
