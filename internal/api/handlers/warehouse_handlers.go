package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/api"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/middleware"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
)

// WarehouseHandlers contains handlers for warehouse capacity operations
type WarehouseHandlers struct {
	service *application.WarehouseApplicationService
	logger  *logging.Logger
}

// NewWarehouseHandlers creates a new WarehouseHandlers
func NewWarehouseHandlers(service *application.WarehouseApplicationService, logger *logging.Logger) *WarehouseHandlers {
	return &WarehouseHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers warehouse capacity routes on the router
func (h *WarehouseHandlers) RegisterRoutes(router *gin.RouterGroup) {
	capacity := router.Group("/warehouse-capacity")
	{
		capacity.GET("", h.ListCapacity)
		capacity.POST("", h.CreateWarehouse)
		capacity.PUT("/:warehouseCode", h.UpdateBins)
	}
}

// ListCapacity handles listing capacity snapshots for all warehouses
func (h *WarehouseHandlers) ListCapacity(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	snapshots, err := h.service.ListCapacity(c.Request.Context())
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, snapshots)
}

// CreateWarehouse handles creating a warehouse capacity record
func (h *WarehouseHandlers) CreateWarehouse(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req struct {
		WarehouseCode string `json:"warehouseCode" binding:"required"`
		Name          string `json:"name"`
		TotalBins     int    `json:"totalBins" binding:"required,gt=0"`
		UsedBins      int    `json:"usedBins" binding:"gte=0"`
	}
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"warehouse.code": req.WarehouseCode,
	})

	cmd := application.CreateWarehouseCommand{
		WarehouseCode: req.WarehouseCode,
		Name:          req.Name,
		TotalBins:     req.TotalBins,
		UsedBins:      req.UsedBins,
		UpdatedBy:     middleware.GetUser(c),
	}

	snapshot, err := h.service.CreateWarehouse(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, snapshot)
}

// UpdateBins handles updating the bin counts of a warehouse
func (h *WarehouseHandlers) UpdateBins(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	warehouseCode := c.Param("warehouseCode")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"warehouse.code": warehouseCode,
	})

	var req struct {
		TotalBins int `json:"totalBins" binding:"required,gt=0"`
		UsedBins  int `json:"usedBins" binding:"gte=0"`
	}
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	cmd := application.UpdateWarehouseBinsCommand{
		WarehouseCode: warehouseCode,
		TotalBins:     req.TotalBins,
		UsedBins:      req.UsedBins,
		UpdatedBy:     middleware.GetUser(c),
	}

	snapshot, err := h.service.UpdateWarehouseBins(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
