package application

import (
	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

// ToShipmentDTO converts a shipment aggregate to its response DTO
func ToShipmentDTO(shipment *domain.Shipment) *ShipmentDTO {
	if shipment == nil {
		return nil
	}

	history := make([]StatusChangeDTO, len(shipment.StatusHistory))
	for i, change := range shipment.StatusHistory {
		history[i] = StatusChangeDTO{
			Status:    string(change.Status),
			Note:      change.Note,
			ChangedAt: change.ChangedAt,
		}
	}

	return &ShipmentDTO{
		ShipmentID:         shipment.ShipmentID,
		Supplier:           shipment.Supplier,
		OrderRef:           shipment.OrderRef,
		ProductName:        shipment.ProductName,
		WeekNumber:         shipment.WeekNumber,
		Quantity:           shipment.Quantity,
		PalletQty:          shipment.PalletQty,
		ReceivingWarehouse: shipment.ReceivingWarehouse,
		ForwardingAgent:    shipment.ForwardingAgent,
		Incoterm:           shipment.Incoterm,
		VesselName:         shipment.VesselName,
		LatestStatus:       string(shipment.LatestStatus),
		EstimatedDeparture: shipment.EstimatedDeparture,
		EstimatedArrival:   shipment.EstimatedArrival,
		ActualArrival:      shipment.ActualArrival,
		StatusHistory:      history,
		Notes:              shipment.Notes,
		Archived:           shipment.Archived,
		ArchivedAt:         shipment.ArchivedAt,
		CreatedAt:          shipment.CreatedAt,
		UpdatedAt:          shipment.UpdatedAt,
	}
}

// ToShipmentDTOs converts a slice of shipment aggregates
func ToShipmentDTOs(shipments []*domain.Shipment) []ShipmentDTO {
	dtos := make([]ShipmentDTO, 0, len(shipments))
	for _, shipment := range shipments {
		dtos = append(dtos, *ToShipmentDTO(shipment))
	}
	return dtos
}

// ToPreferencesDTO converts notification preferences to their response DTO
func ToPreferencesDTO(prefs *domain.Preferences) *PreferencesDTO {
	if prefs == nil {
		return nil
	}
	return &PreferencesDTO{
		UserID:      prefs.UserID,
		Email:       prefs.Email,
		WebhookURL:  prefs.WebhookURL,
		OnArrival:   prefs.OnArrival,
		OnDelay:     prefs.OnDelay,
		OnStored:    prefs.OnStored,
		OnCancelled: prefs.OnCancelled,
		UpdatedAt:   prefs.UpdatedAt,
	}
}

// ToDeliveryDTO converts a delivery record to its response DTO
func ToDeliveryDTO(delivery *domain.Delivery) *DeliveryDTO {
	if delivery == nil {
		return nil
	}
	return &DeliveryDTO{
		DeliveryID: delivery.DeliveryID,
		UserID:     delivery.UserID,
		EventType:  delivery.EventType,
		Subject:    delivery.Subject,
		Message:    delivery.Message,
		Channel:    delivery.Channel,
		Status:     delivery.Status,
		Error:      delivery.Error,
		SentAt:     delivery.SentAt,
	}
}

// ToReportFilterDTO echoes a domain filter back into the report payload
func ToReportFilterDTO(filter domain.ShipmentFilter) ReportFilterDTO {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses = append(statuses, string(status))
	}
	return ReportFilterDTO{
		Statuses:         statuses,
		Suppliers:        filter.Suppliers,
		Warehouses:       filter.Warehouses,
		Incoterms:        filter.Incoterms,
		ForwardingAgents: filter.ForwardingAgents,
		WeekFrom:         filter.WeekFrom,
		WeekTo:           filter.WeekTo,
		ArrivalFrom:      filter.ArrivalFrom,
		ArrivalTo:        filter.ArrivalTo,
		Search:           filter.Search,
		IncludeArchived:  filter.IncludeArchived,
	}
}
