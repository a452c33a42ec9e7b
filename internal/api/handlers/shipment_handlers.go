package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/api"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/middleware"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

// ShipmentHandlers contains handlers for shipment operations
type ShipmentHandlers struct {
	service         *application.ShipmentApplicationService
	readModel       application.ShipmentReadModel
	logger          *logging.Logger
	businessMetrics *middleware.BusinessMetrics
}

// NewShipmentHandlers creates a new ShipmentHandlers
func NewShipmentHandlers(service *application.ShipmentApplicationService, readModel application.ShipmentReadModel, logger *logging.Logger, businessMetrics *middleware.BusinessMetrics) *ShipmentHandlers {
	return &ShipmentHandlers{
		service:         service,
		readModel:       readModel,
		logger:          logger,
		businessMetrics: businessMetrics,
	}
}

// RegisterRoutes registers shipment routes on the router
func (h *ShipmentHandlers) RegisterRoutes(router *gin.RouterGroup) {
	shipments := router.Group("/shipments")
	{
		shipments.GET("", h.ListShipments)
		shipments.POST("", h.CreateShipment)
		shipments.GET("/stats", h.GetStats)
		shipments.GET("/:shipmentId", h.GetShipment)
		shipments.PUT("/:shipmentId", h.AmendShipment)
		shipments.PUT("/:shipmentId/status", h.ChangeStatus)
		shipments.POST("/:shipmentId/archive", h.ArchiveShipment)
		shipments.POST("/:shipmentId/restore", h.RestoreShipment)
		shipments.DELETE("/:shipmentId", h.DeleteShipment)
		shipments.POST("/bulk/archive", h.BulkArchive)
		shipments.POST("/bulk/status", h.BulkChangeStatus)
	}
}

// ListShipments handles the filtered, paginated shipment list
func (h *ShipmentHandlers) ListShipments(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	req, err := api.ParseListRequest(c, "createdAt")
	if err != nil {
		responder.RespondBadRequest(err.Error())
		return
	}

	filter, appErr := toShipmentFilter(req.Filter)
	if appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	query := application.ListShipmentsQuery{
		Filter:    filter,
		Page:      req.Pagination.Page,
		PageSize:  req.Pagination.PageSize,
		SortBy:    req.Sort.Field,
		SortOrder: string(req.Sort.Order),
	}

	items, total, err := h.readModel.List(c.Request.Context(), query)
	if err != nil {
		responder.RespondInternalError(err)
		return
	}

	c.JSON(http.StatusOK, api.NewPageResponse(items, req.Pagination.Page, req.Pagination.PageSize, total))
}

// GetStats handles the dashboard statistics
func (h *ShipmentHandlers) GetStats(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	stats, err := h.readModel.Stats(c.Request.Context())
	if err != nil {
		responder.RespondInternalError(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CreateShipment handles shipment registration
func (h *ShipmentHandlers) CreateShipment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req struct {
		ShipmentID         string     `json:"shipmentId"`
		Supplier           string     `json:"supplier" binding:"required"`
		OrderRef           string     `json:"orderRef" binding:"required"`
		ProductName        string     `json:"productName" binding:"required"`
		WeekNumber         int        `json:"weekNumber" binding:"omitempty,min=1,max=53"`
		Quantity           float64    `json:"quantity" binding:"gte=0"`
		PalletQty          int        `json:"palletQty" binding:"gte=0"`
		ReceivingWarehouse string     `json:"receivingWarehouse" binding:"required"`
		ForwardingAgent    string     `json:"forwardingAgent"`
		Incoterm           string     `json:"incoterm" binding:"required"`
		VesselName         string     `json:"vesselName"`
		InitialStatus      string     `json:"initialStatus"`
		EstimatedDeparture *time.Time `json:"estimatedDeparture"`
		EstimatedArrival   *time.Time `json:"estimatedArrival"`
		Notes              string     `json:"notes"`
	}
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shipment.id": req.ShipmentID,
	})

	cmd := application.CreateShipmentCommand{
		ShipmentID:         req.ShipmentID,
		Supplier:           req.Supplier,
		OrderRef:           req.OrderRef,
		ProductName:        req.ProductName,
		WeekNumber:         req.WeekNumber,
		Quantity:           req.Quantity,
		PalletQty:          req.PalletQty,
		ReceivingWarehouse: req.ReceivingWarehouse,
		ForwardingAgent:    req.ForwardingAgent,
		Incoterm:           req.Incoterm,
		VesselName:         req.VesselName,
		InitialStatus:      req.InitialStatus,
		EstimatedDeparture: req.EstimatedDeparture,
		EstimatedArrival:   req.EstimatedArrival,
		Notes:              req.Notes,
	}

	shipment, err := h.service.CreateShipment(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	h.businessMetrics.RecordShipmentCreated(cmd.ReceivingWarehouse)
	c.JSON(http.StatusCreated, shipment)
}

// GetShipment handles getting a shipment by ID
func (h *ShipmentHandlers) GetShipment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	shipmentID := c.Param("shipmentId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shipment.id": shipmentID,
	})

	query := application.GetShipmentQuery{ShipmentID: shipmentID}

	shipment, err := h.service.GetShipment(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, shipment)
}

// AmendShipment handles amending shipment details
func (h *ShipmentHandlers) AmendShipment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	shipmentID := c.Param("shipmentId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shipment.id": shipmentID,
	})

	var req struct {
		Supplier           string     `json:"supplier" binding:"required"`
		OrderRef           string     `json:"orderRef" binding:"required"`
		ProductName        string     `json:"productName" binding:"required"`
		WeekNumber         int        `json:"weekNumber" binding:"omitempty,min=1,max=53"`
		Quantity           float64    `json:"quantity" binding:"gte=0"`
		PalletQty          int        `json:"palletQty" binding:"gte=0"`
		ReceivingWarehouse string     `json:"receivingWarehouse" binding:"required"`
		ForwardingAgent    string     `json:"forwardingAgent"`
		Incoterm           string     `json:"incoterm" binding:"required"`
		VesselName         string     `json:"vesselName"`
		EstimatedDeparture *time.Time `json:"estimatedDeparture"`
		EstimatedArrival   *time.Time `json:"estimatedArrival"`
		Notes              string     `json:"notes"`
	}
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	cmd := application.AmendShipmentCommand{
		ShipmentID:         shipmentID,
		Supplier:           req.Supplier,
		OrderRef:           req.OrderRef,
		ProductName:        req.ProductName,
		WeekNumber:         req.WeekNumber,
		Quantity:           req.Quantity,
		PalletQty:          req.PalletQty,
		ReceivingWarehouse: req.ReceivingWarehouse,
		ForwardingAgent:    req.ForwardingAgent,
		Incoterm:           req.Incoterm,
		VesselName:         req.VesselName,
		EstimatedDeparture: req.EstimatedDeparture,
		EstimatedArrival:   req.EstimatedArrival,
		Notes:              req.Notes,
	}

	shipment, err := h.service.AmendShipment(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, shipment)
}

// ChangeStatus handles transitioning a shipment through the status machine
func (h *ShipmentHandlers) ChangeStatus(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	shipmentID := c.Param("shipmentId")

	var req struct {
		Status string `json:"status" binding:"required"`
		Note   string `json:"note"`
	}
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shipment.id":     shipmentID,
		"shipment.status": req.Status,
	})

	cmd := application.ChangeStatusCommand{
		ShipmentID: shipmentID,
		Status:     req.Status,
		Note:       req.Note,
	}

	shipment, err := h.service.ChangeShipmentStatus(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	h.businessMetrics.RecordStatusChange(req.Status)
	c.JSON(http.StatusOK, shipment)
}

// ArchiveShipment handles archiving a shipment
func (h *ShipmentHandlers) ArchiveShipment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	shipmentID := c.Param("shipmentId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shipment.id": shipmentID,
	})

	cmd := application.ArchiveShipmentCommand{ShipmentID: shipmentID}

	shipment, err := h.service.ArchiveShipment(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, shipment)
}

// RestoreShipment handles restoring an archived shipment
func (h *ShipmentHandlers) RestoreShipment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	shipmentID := c.Param("shipmentId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shipment.id": shipmentID,
	})

	cmd := application.RestoreShipmentCommand{ShipmentID: shipmentID}

	shipment, err := h.service.RestoreShipment(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, shipment)
}

// DeleteShipment handles permanently removing a shipment
func (h *ShipmentHandlers) DeleteShipment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	shipmentID := c.Param("shipmentId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shipment.id": shipmentID,
	})

	cmd := application.DeleteShipmentCommand{ShipmentID: shipmentID}

	if err := h.service.DeleteShipment(c.Request.Context(), cmd); err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	// Hard deletes leave no document behind, so the audit log is the only trace
	h.logger.Audit(c.Request.Context(), "delete", "shipment", shipmentID, middleware.GetUser(c))

	c.Status(http.StatusNoContent)
}

// BulkArchive handles archiving a batch of shipments
func (h *ShipmentHandlers) BulkArchive(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req struct {
		ShipmentIDs []string `json:"shipmentIds" binding:"required,min=1"`
	}
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shipment.count": len(req.ShipmentIDs),
	})

	cmd := application.BulkArchiveCommand{ShipmentIDs: req.ShipmentIDs}

	result, err := h.service.BulkArchive(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// BulkChangeStatus handles transitioning a batch of shipments
func (h *ShipmentHandlers) BulkChangeStatus(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req struct {
		ShipmentIDs []string `json:"shipmentIds" binding:"required,min=1"`
		Status      string   `json:"status" binding:"required"`
		Note        string   `json:"note"`
	}
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shipment.count":  len(req.ShipmentIDs),
		"shipment.status": req.Status,
	})

	cmd := application.BulkChangeStatusCommand{
		ShipmentIDs: req.ShipmentIDs,
		Status:      req.Status,
		Note:        req.Note,
	}

	result, err := h.service.BulkChangeStatus(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	for i := 0; i < result.SuccessCount; i++ {
		h.businessMetrics.RecordStatusChange(req.Status)
	}
	c.JSON(http.StatusOK, result)
}

// toShipmentFilter validates status values and converts the parsed filter
// to the domain filter
func toShipmentFilter(req api.FilterRequest) (domain.ShipmentFilter, *errors.AppError) {
	statuses := make([]domain.ShipmentStatus, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		status := domain.ShipmentStatus(raw)
		if !status.IsValid() {
			return domain.ShipmentFilter{}, errors.ErrValidation(fmt.Sprintf("invalid shipment status: %s", raw))
		}
		statuses = append(statuses, status)
	}

	return domain.ShipmentFilter{
		Statuses:         statuses,
		Suppliers:        req.Suppliers,
		Warehouses:       req.Warehouses,
		Incoterms:        req.Incoterms,
		ForwardingAgents: req.ForwardingAgents,
		WeekFrom:         req.WeekFrom,
		WeekTo:           req.WeekTo,
		ArrivalFrom:      req.ArrivalFrom,
		ArrivalTo:        req.ArrivalTo,
		Search:           req.Search,
		IncludeArchived:  req.IncludeArchived,
	}, nil
}
