package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/api"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/middleware"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
	"github.com/TGO0427/synercore-import-schedule-sub001/internal/infrastructure/reports"
)

// ReportHandlers contains handlers for shipment reports and exports
type ReportHandlers struct {
	service         *application.ReportApplicationService
	logger          *logging.Logger
	businessMetrics *middleware.BusinessMetrics
}

// NewReportHandlers creates a new ReportHandlers
func NewReportHandlers(service *application.ReportApplicationService, logger *logging.Logger, businessMetrics *middleware.BusinessMetrics) *ReportHandlers {
	return &ReportHandlers{
		service:         service,
		logger:          logger,
		businessMetrics: businessMetrics,
	}
}

// RegisterRoutes registers report routes on the router
func (h *ReportHandlers) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/reports")
	{
		group.GET("/shipments", h.GetShipmentReport)
		group.GET("/shipments/export", h.ExportShipmentReport)
	}
}

// GetShipmentReport handles building the aggregated JSON report
func (h *ReportHandlers) GetShipmentReport(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	query, appErr := h.parseReportQuery(c)
	if appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	report, err := h.service.BuildReport(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	h.businessMetrics.RecordReportGenerated("json")
	c.JSON(http.StatusOK, report)
}

// ExportShipmentReport handles streaming the report as an XLSX or PDF
// attachment
func (h *ReportHandlers) ExportShipmentReport(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	format := c.DefaultQuery("format", reports.FormatXLSX)
	if format != reports.FormatXLSX && format != reports.FormatPDF {
		responder.RespondWithAppError(errors.ErrValidation(fmt.Sprintf("unknown export format: %s", format)))
		return
	}

	query, appErr := h.parseReportQuery(c)
	if appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"report.format":  format,
		"report.groupBy": query.GroupBy,
	})

	report, err := h.service.BuildReport(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	data, contentType, err := reports.Render(format, report)
	if err != nil {
		responder.RespondInternalError(err)
		return
	}

	h.businessMetrics.RecordReportGenerated(format)

	filename := reports.Filename(format, report.GeneratedAt)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, data)
}

func (h *ReportHandlers) parseReportQuery(c *gin.Context) (application.ReportQuery, *errors.AppError) {
	filterReq, err := api.ParseFilter(c)
	if err != nil {
		return application.ReportQuery{}, errors.ErrBadRequest(err.Error())
	}

	filter, appErr := toShipmentFilter(filterReq)
	if appErr != nil {
		return application.ReportQuery{}, appErr
	}

	return application.ReportQuery{
		Filter:  filter,
		GroupBy: c.Query("groupBy"),
	}, nil
}
