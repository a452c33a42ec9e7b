package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

func newReportRouter(repo domain.ShipmentRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	service := application.NewReportApplicationService(repo, testLogger())
	handlers := NewReportHandlers(service, testLogger(), testBusinessMetrics())
	handlers.RegisterRoutes(router.Group("/api"))
	return router
}

func reportRepoFixture(t *testing.T) *fakeShipmentRepo {
	return &fakeShipmentRepo{
		findByFilterFn: func(_ context.Context, _ domain.ShipmentFilter, _ int64) ([]*domain.Shipment, error) {
			first := shipmentFixture(t, "SHP-001")
			second := shipmentFixture(t, "SHP-002")
			second.Supplier = "Brenntag"
			second.LatestStatus = domain.ShipmentStatusStored
			return []*domain.Shipment{first, second}, nil
		},
	}
}

func TestReportHandlerGetReport(t *testing.T) {
	router := newReportRouter(reportRepoFixture(t))

	rec := makeRequest(router, http.MethodGet, "/api/reports/shipments?groupBy=supplier", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"groupBy":"supplier"`)
	assert.Contains(t, rec.Body.String(), `"totalShipments":2`)
	assert.Contains(t, rec.Body.String(), `"key":"Brenntag"`)
}

func TestReportHandlerGetReportUnknownGroupBy(t *testing.T) {
	router := newReportRouter(reportRepoFixture(t))

	rec := makeRequest(router, http.MethodGet, "/api/reports/shipments?groupBy=vessel", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "vessel")
}

func TestReportHandlerGetReportInvalidStatusFilter(t *testing.T) {
	router := newReportRouter(reportRepoFixture(t))

	rec := makeRequest(router, http.MethodGet, "/api/reports/shipments?status=teleported", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandlerExportXLSX(t *testing.T) {
	router := newReportRouter(reportRepoFixture(t))

	rec := makeRequest(router, http.MethodGet, "/api/reports/shipments/export?format=xlsx&groupBy=warehouse", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	disposition := rec.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, "attachment; filename=shipments-"), disposition)
	assert.True(t, strings.HasSuffix(disposition, ".xlsx"), disposition)
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestReportHandlerExportPDF(t *testing.T) {
	router := newReportRouter(reportRepoFixture(t))

	rec := makeRequest(router, http.MethodGet, "/api/reports/shipments/export?format=pdf", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
}

func TestReportHandlerExportDefaultsToXLSX(t *testing.T) {
	router := newReportRouter(reportRepoFixture(t))

	rec := makeRequest(router, http.MethodGet, "/api/reports/shipments/export", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasSuffix(rec.Header().Get("Content-Disposition"), ".xlsx"))
}

func TestReportHandlerExportUnknownFormat(t *testing.T) {
	router := newReportRouter(reportRepoFixture(t))

	rec := makeRequest(router, http.MethodGet, "/api/reports/shipments/export?format=docx", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "docx")
}

func TestReportHandlerExportEmptyResult(t *testing.T) {
	repo := &fakeShipmentRepo{
		findByFilterFn: func(_ context.Context, _ domain.ShipmentFilter, _ int64) ([]*domain.Shipment, error) {
			return nil, nil
		},
	}
	router := newReportRouter(repo)

	rec := makeRequest(router, http.MethodGet, "/api/reports/shipments/export?format=xlsx", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.Bytes())
}
