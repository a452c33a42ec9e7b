package events_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/cloudevents"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/contracts/asyncapi"
)

const asyncAPISpecPath = "../../../docs/asyncapi.yaml"

func newEventValidator(t *testing.T) *asyncapi.EventValidator {
	t.Helper()

	absPath, err := filepath.Abs(asyncAPISpecPath)
	require.NoError(t, err)

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		t.Skipf("AsyncAPI spec not found at %s", absPath)
	}

	validator, err := asyncapi.NewEventValidator(absPath)
	require.NoError(t, err, "AsyncAPI spec must parse")
	return validator
}

func shipmentEvent(eventType string, data interface{}) asyncapi.CloudEvent {
	return asyncapi.CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          cloudevents.SourceImportSchedule,
		Subject:         "SHP-20260815-A3F2",
		ID:              "evt-123",
		Time:            time.Now().Format(time.RFC3339),
		DataContentType: "application/json",
		Data:            data,
	}
}

func TestAllEventTypesHaveSchemas(t *testing.T) {
	validator := newEventValidator(t)

	expected := []string{
		cloudevents.ShipmentCreated,
		cloudevents.ShipmentAmended,
		cloudevents.ShipmentStatusChanged,
		cloudevents.ShipmentArrived,
		cloudevents.ShipmentDelayed,
		cloudevents.ShipmentStored,
		cloudevents.ShipmentCancelled,
		cloudevents.ShipmentArchived,
		cloudevents.ShipmentRestored,
		cloudevents.WarehouseCapacityUpdated,
		cloudevents.NotificationDispatched,
	}

	for _, eventType := range expected {
		assert.True(t, validator.HasSchema(eventType), "missing schema for %s", eventType)
	}
	assert.Len(t, validator.GetSupportedEventTypes(), len(expected))
}

func TestShipmentEventPayloads(t *testing.T) {
	validator := newEventValidator(t)

	t.Run("Created", func(t *testing.T) {
		event := shipmentEvent(cloudevents.ShipmentCreated, cloudevents.ShipmentEventData{
			ShipmentID:         "SHP-20260815-A3F2",
			Supplier:           "Savannah Fine Chemicals",
			OrderRef:           "PO-88412",
			ProductName:        "Citric Acid Monohydrate",
			ReceivingWarehouse: "JHB-CENTRAL",
			Status:             "planned",
			PalletQty:          22,
			Quantity:           24000,
		})
		require.NoError(t, validator.ValidateEvent(event))
	})

	t.Run("StatusChanged", func(t *testing.T) {
		arrival := time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)
		event := shipmentEvent(cloudevents.ShipmentStatusChanged, cloudevents.ShipmentEventData{
			ShipmentID:         "SHP-20260815-A3F2",
			Supplier:           "Savannah Fine Chemicals",
			OrderRef:           "PO-88412",
			ProductName:        "Citric Acid Monohydrate",
			ReceivingWarehouse: "JHB-CENTRAL",
			Status:             "in_transit",
			PreviousStatus:     "planned",
			PalletQty:          22,
			Quantity:           24000,
			EstimatedArrival:   &arrival,
			Note:               "departed Durban",
		})
		require.NoError(t, validator.ValidateEvent(event))
	})

	t.Run("Arrived", func(t *testing.T) {
		actual := time.Date(2026, 8, 27, 16, 45, 0, 0, time.UTC)
		event := shipmentEvent(cloudevents.ShipmentArrived, cloudevents.ShipmentEventData{
			ShipmentID:         "SHP-20260815-A3F2",
			Supplier:           "Savannah Fine Chemicals",
			OrderRef:           "PO-88412",
			ProductName:        "Citric Acid Monohydrate",
			ReceivingWarehouse: "JHB-CENTRAL",
			Status:             "arrived",
			PreviousStatus:     "in_transit",
			PalletQty:          22,
			Quantity:           24000,
			ActualArrival:      &actual,
		})
		require.NoError(t, validator.ValidateEvent(event))
	})
}

func TestShipmentEventRejectsIncompletePayload(t *testing.T) {
	validator := newEventValidator(t)

	event := shipmentEvent(cloudevents.ShipmentCreated, map[string]interface{}{
		"shipmentId": "SHP-20260815-A3F2",
		"supplier":   "Savannah Fine Chemicals",
	})
	require.Error(t, validator.ValidateEvent(event))
}

func TestShipmentEventRejectsUnknownStatus(t *testing.T) {
	validator := newEventValidator(t)

	event := shipmentEvent(cloudevents.ShipmentStatusChanged, cloudevents.ShipmentEventData{
		ShipmentID:         "SHP-20260815-A3F2",
		Supplier:           "Savannah Fine Chemicals",
		OrderRef:           "PO-88412",
		ProductName:        "Citric Acid Monohydrate",
		ReceivingWarehouse: "JHB-CENTRAL",
		Status:             "teleported",
		PalletQty:          22,
		Quantity:           24000,
	})
	require.Error(t, validator.ValidateEvent(event))
}

func TestWarehouseCapacityEventPayload(t *testing.T) {
	validator := newEventValidator(t)

	t.Run("Valid", func(t *testing.T) {
		event := asyncapi.CloudEvent{
			SpecVersion:     "1.0",
			Type:            cloudevents.WarehouseCapacityUpdated,
			Source:          cloudevents.SourceImportSchedule,
			Subject:         "JHB-CENTRAL",
			ID:              "evt-456",
			Time:            time.Now().Format(time.RFC3339),
			DataContentType: "application/json",
			Data: cloudevents.WarehouseCapacityData{
				WarehouseCode:  "JHB-CENTRAL",
				TotalBins:      500,
				UsedBins:       410,
				UtilizationPct: 82.0,
				UpdatedBy:      "ops",
			},
		}
		require.NoError(t, validator.ValidateEvent(event))
	})

	t.Run("MissingBins", func(t *testing.T) {
		event := asyncapi.CloudEvent{
			SpecVersion: "1.0",
			Type:        cloudevents.WarehouseCapacityUpdated,
			Source:      cloudevents.SourceImportSchedule,
			ID:          "evt-457",
			Data: map[string]interface{}{
				"warehouseCode": "JHB-CENTRAL",
			},
		}
		require.Error(t, validator.ValidateEvent(event))
	})
}

func TestNotificationDispatchedPayload(t *testing.T) {
	validator := newEventValidator(t)

	t.Run("Sent", func(t *testing.T) {
		event := asyncapi.CloudEvent{
			SpecVersion:     "1.0",
			Type:            cloudevents.NotificationDispatched,
			Source:          cloudevents.SourceImportSchedule,
			Subject:         "user-ops",
			ID:              "evt-789",
			Time:            time.Now().Format(time.RFC3339),
			DataContentType: "application/json",
			Data: cloudevents.NotificationDispatchedData{
				DeliveryID: "dlv-20260815-0001",
				UserID:     "user-ops",
				EventType:  cloudevents.ShipmentArrived,
				Channel:    "webhook",
				Status:     "sent",
			},
		}
		require.NoError(t, validator.ValidateEvent(event))
	})

	t.Run("RejectsUnknownStatus", func(t *testing.T) {
		event := asyncapi.CloudEvent{
			SpecVersion: "1.0",
			Type:        cloudevents.NotificationDispatched,
			Source:      cloudevents.SourceImportSchedule,
			ID:          "evt-790",
			Data: cloudevents.NotificationDispatchedData{
				DeliveryID: "dlv-20260815-0002",
				UserID:     "user-ops",
				EventType:  cloudevents.ShipmentDelayed,
				Channel:    "webhook",
				Status:     "queued",
			},
		}
		require.Error(t, validator.ValidateEvent(event))
	})
}

func TestUnknownEventTypeRejected(t *testing.T) {
	validator := newEventValidator(t)

	event := shipmentEvent("imports.shipment.teleported", map[string]interface{}{})
	err := validator.ValidateEvent(event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema found")
}

func TestRegisterCustomSchema(t *testing.T) {
	validator := newEventValidator(t)

	schema := []byte(`{
		"type": "object",
		"required": ["shipmentId", "flag"],
		"properties": {
			"shipmentId": {"type": "string"},
			"flag": {"type": "string"}
		}
	}`)

	require.NoError(t, validator.RegisterSchema("imports.shipment.flagged", schema))
	assert.True(t, validator.HasSchema("imports.shipment.flagged"))

	event := shipmentEvent("imports.shipment.flagged", map[string]interface{}{
		"shipmentId": "SHP-20260815-A3F2",
		"flag":       "customs-hold",
	})
	require.NoError(t, validator.ValidateEvent(event))
}
