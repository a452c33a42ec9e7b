package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for import-schedule domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new CloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *CloudEvent {
	return &CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// CreateShipmentEvent creates a shipment lifecycle event; the warehouse and
// shipment reference ride along as extensions for consumers that route on them.
func (f *EventFactory) CreateShipmentEvent(
	ctx context.Context,
	eventType string,
	data ShipmentEventData,
) *CloudEvent {
	event := f.CreateEvent(ctx, eventType, "shipment/"+data.ShipmentID, data)
	event.WarehouseID = data.ReceivingWarehouse
	event.ShipmentRef = data.OrderRef
	return event
}

// CreateWarehouseCapacityEvent creates a capacity-updated event
func (f *EventFactory) CreateWarehouseCapacityEvent(
	ctx context.Context,
	data WarehouseCapacityData,
) *CloudEvent {
	event := f.CreateEvent(ctx, WarehouseCapacityUpdated, "warehouse/"+data.WarehouseCode, data)
	event.WarehouseID = data.WarehouseCode
	return event
}

// CreateNotificationDispatchedEvent creates a notification-dispatched event
func (f *EventFactory) CreateNotificationDispatchedEvent(
	ctx context.Context,
	data NotificationDispatchedData,
) *CloudEvent {
	return f.CreateEvent(ctx, NotificationDispatched, "notification/"+data.DeliveryID, data)
}
