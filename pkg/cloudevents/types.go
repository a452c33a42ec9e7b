package cloudevents

import (
	"encoding/json"
	"time"
)

// EventType constants for import-schedule domain events
const (
	// Shipment events
	ShipmentCreated       = "imports.shipment.created"
	ShipmentAmended       = "imports.shipment.amended"
	ShipmentStatusChanged = "imports.shipment.status-changed"
	ShipmentArrived       = "imports.shipment.arrived"
	ShipmentDelayed       = "imports.shipment.delayed"
	ShipmentStored        = "imports.shipment.stored"
	ShipmentCancelled     = "imports.shipment.cancelled"
	ShipmentArchived      = "imports.shipment.archived"
	ShipmentRestored      = "imports.shipment.restored"

	// Warehouse events
	WarehouseCapacityUpdated = "imports.warehouse.capacity-updated"

	// Notification events
	NotificationDispatched = "imports.notification.dispatched"
)

// Source constants for event sources
const (
	SourceImportSchedule = "/imports/schedule-service"
)

// CloudEvent represents a CloudEvents v1.0 compliant event
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Extensions carried as ce-* headers on the wire
	CorrelationID string `json:"correlationid,omitempty"`
	WarehouseID   string `json:"warehouseid,omitempty"`
	ShipmentRef   string `json:"shipmentref,omitempty"`
}

// DecodeData unmarshals the event payload into v. Consumed events carry
// Data as the generic JSON decoding, so it is round-tripped through JSON.
func (e *CloudEvent) DecodeData(v interface{}) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// ShipmentEventData is the payload shared by shipment lifecycle events
type ShipmentEventData struct {
	ShipmentID         string     `json:"shipmentId"`
	Supplier           string     `json:"supplier"`
	OrderRef           string     `json:"orderRef"`
	ProductName        string     `json:"productName"`
	ReceivingWarehouse string     `json:"receivingWarehouse"`
	Status             string     `json:"status"`
	PreviousStatus     string     `json:"previousStatus,omitempty"`
	PalletQty          int        `json:"palletQty"`
	Quantity           float64    `json:"quantity"`
	EstimatedArrival   *time.Time `json:"estimatedArrival,omitempty"`
	ActualArrival      *time.Time `json:"actualArrival,omitempty"`
	Note               string     `json:"note,omitempty"`
}

// WarehouseCapacityData is the payload for capacity events
type WarehouseCapacityData struct {
	WarehouseCode  string  `json:"warehouseCode"`
	TotalBins      int     `json:"totalBins"`
	UsedBins       int     `json:"usedBins"`
	UtilizationPct float64 `json:"utilizationPct"`
	UpdatedBy      string  `json:"updatedBy,omitempty"`
}

// NotificationDispatchedData is the payload for notification events
type NotificationDispatchedData struct {
	DeliveryID string `json:"deliveryId"`
	UserID     string `json:"userId"`
	EventType  string `json:"eventType"`
	Channel    string `json:"channel"`
	Status     string `json:"status"`
}
