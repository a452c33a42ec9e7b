package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/metrics"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/middleware"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

type fakeShipmentRepo struct {
	saveFn         func(context.Context, *domain.Shipment) error
	findByIDFn     func(context.Context, string) (*domain.Shipment, error)
	findByFilterFn func(context.Context, domain.ShipmentFilter, int64) ([]*domain.Shipment, error)
	deleteFn       func(context.Context, string) error
}

func (f *fakeShipmentRepo) Save(ctx context.Context, shipment *domain.Shipment) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, shipment)
	}
	return nil
}

func (f *fakeShipmentRepo) FindByID(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, shipmentID)
	}
	return nil, domain.ErrShipmentNotFound
}

func (f *fakeShipmentRepo) FindByFilter(ctx context.Context, filter domain.ShipmentFilter, limit int64) ([]*domain.Shipment, error) {
	if f.findByFilterFn != nil {
		return f.findByFilterFn(ctx, filter, limit)
	}
	return nil, nil
}

func (f *fakeShipmentRepo) Count(ctx context.Context, filter domain.ShipmentFilter) (int64, error) {
	return 0, nil
}

func (f *fakeShipmentRepo) Delete(ctx context.Context, shipmentID string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, shipmentID)
	}
	return nil
}

type fakeReadModel struct {
	listFn          func(context.Context, application.ListShipmentsQuery) ([]application.ShipmentListItem, int64, error)
	statsFn         func(context.Context) (*application.ShipmentStats, error)
	projectedBinsFn func(context.Context) (map[string]int, error)
}

func (f *fakeReadModel) List(ctx context.Context, query application.ListShipmentsQuery) ([]application.ShipmentListItem, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, query)
	}
	return nil, 0, nil
}

func (f *fakeReadModel) Stats(ctx context.Context) (*application.ShipmentStats, error) {
	if f.statsFn != nil {
		return f.statsFn(ctx)
	}
	return &application.ShipmentStats{}, nil
}

func (f *fakeReadModel) ProjectedBinsByWarehouse(ctx context.Context) (map[string]int, error) {
	if f.projectedBinsFn != nil {
		return f.projectedBinsFn(ctx)
	}
	return map[string]int{}, nil
}

func testLogger() *logging.Logger {
	cfg := logging.DefaultConfig("handler-test")
	cfg.Output = io.Discard
	return logging.New(cfg)
}

// testBusinessMetrics builds metrics on a fresh registry per call so tests
// never collide on registration
func testBusinessMetrics() *middleware.BusinessMetrics {
	return middleware.NewBusinessMetrics(metrics.New(metrics.DefaultConfig("handler-test")))
}

func makeRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func newShipmentRouter(repo domain.ShipmentRepository, readModel application.ShipmentReadModel) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	service := application.NewShipmentApplicationService(repo, testLogger())
	handlers := NewShipmentHandlers(service, readModel, testLogger(), testBusinessMetrics())
	handlers.RegisterRoutes(router.Group("/api"))
	return router
}

func shipmentFixture(t *testing.T, shipmentID string) *domain.Shipment {
	t.Helper()
	shipment, err := domain.NewShipment(shipmentID, domain.ShipmentStatusPlanned, domain.ShipmentDetails{
		Supplier:           "Savannah Fine Chemicals",
		OrderRef:           "PO-48812",
		ProductName:        "Citric Acid Monohydrate",
		WeekNumber:         5,
		Quantity:           24000,
		PalletQty:          22,
		ReceivingWarehouse: "JHB-CENTRAL",
		Incoterm:           "CIF",
	})
	require.NoError(t, err)
	shipment.ClearDomainEvents()
	return shipment
}

func createShipmentBody() map[string]interface{} {
	return map[string]interface{}{
		"shipmentId":         "SHP-001",
		"supplier":           "Savannah Fine Chemicals",
		"orderRef":           "PO-48812",
		"productName":        "Citric Acid Monohydrate",
		"weekNumber":         5,
		"quantity":           24000,
		"palletQty":          22,
		"receivingWarehouse": "JHB-CENTRAL",
		"incoterm":           "CIF",
	}
}

func TestShipmentHandlerCreate(t *testing.T) {
	router := newShipmentRouter(&fakeShipmentRepo{}, &fakeReadModel{})

	rec := makeRequest(router, http.MethodPost, "/api/shipments", createShipmentBody())

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"shipmentId":"SHP-001"`)
	assert.Contains(t, rec.Body.String(), `"latestStatus":"planned"`)
}

func TestShipmentHandlerCreateMissingField(t *testing.T) {
	router := newShipmentRouter(&fakeShipmentRepo{}, &fakeReadModel{})

	body := createShipmentBody()
	delete(body, "supplier")
	rec := makeRequest(router, http.MethodPost, "/api/shipments", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	assert.Contains(t, rec.Body.String(), `"supplier":"is required"`)
}

func TestShipmentHandlerCreateBadWeek(t *testing.T) {
	router := newShipmentRouter(&fakeShipmentRepo{}, &fakeReadModel{})

	body := createShipmentBody()
	body["weekNumber"] = 54
	rec := makeRequest(router, http.MethodPost, "/api/shipments", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"weekNumber":"must be at most 53"`)
}

func TestShipmentHandlerCreateSaveError(t *testing.T) {
	repo := &fakeShipmentRepo{
		saveFn: func(_ context.Context, _ *domain.Shipment) error {
			return assert.AnError
		},
	}
	router := newShipmentRouter(repo, &fakeReadModel{})

	rec := makeRequest(router, http.MethodPost, "/api/shipments", createShipmentBody())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestShipmentHandlerGet(t *testing.T) {
	repo := &fakeShipmentRepo{
		findByIDFn: func(_ context.Context, shipmentID string) (*domain.Shipment, error) {
			if shipmentID == "SHP-001" {
				return shipmentFixture(t, shipmentID), nil
			}
			return nil, domain.ErrShipmentNotFound
		},
	}
	router := newShipmentRouter(repo, &fakeReadModel{})

	rec := makeRequest(router, http.MethodGet, "/api/shipments/SHP-001", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"supplier":"Savannah Fine Chemicals"`)

	rec = makeRequest(router, http.MethodGet, "/api/shipments/SHP-404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "RESOURCE_NOT_FOUND")
}

func TestShipmentHandlerList(t *testing.T) {
	var captured application.ListShipmentsQuery
	readModel := &fakeReadModel{
		listFn: func(_ context.Context, query application.ListShipmentsQuery) ([]application.ShipmentListItem, int64, error) {
			captured = query
			return []application.ShipmentListItem{
				{ShipmentID: "SHP-001", Supplier: "Savannah Fine Chemicals", LatestStatus: "in_transit"},
			}, 1, nil
		},
	}
	router := newShipmentRouter(&fakeShipmentRepo{}, readModel)

	rec := makeRequest(router, http.MethodGet,
		"/api/shipments?status=in_transit,delayed&supplier=Savannah%20Fine%20Chemicals&archived=true&page=2&pageSize=10&sortBy=weekNumber&sortOrder=asc", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.ShipmentStatus{domain.ShipmentStatusInTransit, domain.ShipmentStatusDelayed}, captured.Filter.Statuses)
	assert.Equal(t, []string{"Savannah Fine Chemicals"}, captured.Filter.Suppliers)
	assert.True(t, captured.Filter.IncludeArchived)
	assert.Equal(t, int64(2), captured.Page)
	assert.Equal(t, int64(10), captured.PageSize)
	assert.Equal(t, "weekNumber", captured.SortBy)
	assert.Equal(t, "asc", captured.SortOrder)
	assert.Contains(t, rec.Body.String(), `"totalItems":1`)
	assert.Contains(t, rec.Body.String(), `"shipmentId":"SHP-001"`)
}

func TestShipmentHandlerListWeekNumber(t *testing.T) {
	var captured application.ListShipmentsQuery
	readModel := &fakeReadModel{
		listFn: func(_ context.Context, query application.ListShipmentsQuery) ([]application.ShipmentListItem, int64, error) {
			captured = query
			return nil, 0, nil
		},
	}
	router := newShipmentRouter(&fakeShipmentRepo{}, readModel)

	rec := makeRequest(router, http.MethodGet, "/api/shipments?weekNumber=7", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured.Filter.WeekFrom)
	require.NotNil(t, captured.Filter.WeekTo)
	assert.Equal(t, 7, *captured.Filter.WeekFrom)
	assert.Equal(t, 7, *captured.Filter.WeekTo)
}

func TestShipmentHandlerListInvalidStatus(t *testing.T) {
	router := newShipmentRouter(&fakeShipmentRepo{}, &fakeReadModel{})

	rec := makeRequest(router, http.MethodGet, "/api/shipments?status=teleported", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	assert.Contains(t, rec.Body.String(), "teleported")
}

func TestShipmentHandlerListInvalidArrivalBound(t *testing.T) {
	router := newShipmentRouter(&fakeShipmentRepo{}, &fakeReadModel{})

	rec := makeRequest(router, http.MethodGet, "/api/shipments?arrivalFrom=last-tuesday", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "arrivalFrom")
}

func TestShipmentHandlerStats(t *testing.T) {
	readModel := &fakeReadModel{
		statsFn: func(_ context.Context) (*application.ShipmentStats, error) {
			return &application.ShipmentStats{TotalShipments: 42, InTransit: 7}, nil
		},
	}
	router := newShipmentRouter(&fakeShipmentRepo{}, readModel)

	rec := makeRequest(router, http.MethodGet, "/api/shipments/stats", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalShipments":42`)
}

func TestShipmentHandlerAmend(t *testing.T) {
	repo := &fakeShipmentRepo{
		findByIDFn: func(_ context.Context, shipmentID string) (*domain.Shipment, error) {
			return shipmentFixture(t, shipmentID), nil
		},
	}
	router := newShipmentRouter(repo, &fakeReadModel{})

	body := createShipmentBody()
	delete(body, "shipmentId")
	body["orderRef"] = "PO-48812-R1"
	rec := makeRequest(router, http.MethodPut, "/api/shipments/SHP-001", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"orderRef":"PO-48812-R1"`)
}

func TestShipmentHandlerChangeStatus(t *testing.T) {
	repo := &fakeShipmentRepo{
		findByIDFn: func(_ context.Context, shipmentID string) (*domain.Shipment, error) {
			return shipmentFixture(t, shipmentID), nil
		},
	}
	router := newShipmentRouter(repo, &fakeReadModel{})

	rec := makeRequest(router, http.MethodPut, "/api/shipments/SHP-001/status", map[string]interface{}{
		"status": "in_transit",
		"note":   "departed on schedule",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"latestStatus":"in_transit"`)
}

func TestShipmentHandlerChangeStatusInvalidTransition(t *testing.T) {
	repo := &fakeShipmentRepo{
		findByIDFn: func(_ context.Context, shipmentID string) (*domain.Shipment, error) {
			return shipmentFixture(t, shipmentID), nil
		},
	}
	router := newShipmentRouter(repo, &fakeReadModel{})

	rec := makeRequest(router, http.MethodPut, "/api/shipments/SHP-001/status", map[string]interface{}{
		"status": "stored",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "planned")
	assert.Contains(t, rec.Body.String(), "stored")
}

func TestShipmentHandlerArchiveRestore(t *testing.T) {
	repo := &fakeShipmentRepo{
		findByIDFn: func(_ context.Context, shipmentID string) (*domain.Shipment, error) {
			return shipmentFixture(t, shipmentID), nil
		},
	}
	router := newShipmentRouter(repo, &fakeReadModel{})

	rec := makeRequest(router, http.MethodPost, "/api/shipments/SHP-001/archive", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"archived":true`)

	// Restore fails on a shipment that is not archived
	rec = makeRequest(router, http.MethodPost, "/api/shipments/SHP-001/restore", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShipmentHandlerDelete(t *testing.T) {
	router := newShipmentRouter(&fakeShipmentRepo{}, &fakeReadModel{})

	rec := makeRequest(router, http.MethodDelete, "/api/shipments/SHP-001", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestShipmentHandlerDeleteNotFound(t *testing.T) {
	repo := &fakeShipmentRepo{
		deleteFn: func(_ context.Context, _ string) error {
			return domain.ErrShipmentNotFound
		},
	}
	router := newShipmentRouter(repo, &fakeReadModel{})

	rec := makeRequest(router, http.MethodDelete, "/api/shipments/SHP-404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShipmentHandlerBulkArchive(t *testing.T) {
	repo := &fakeShipmentRepo{
		findByIDFn: func(_ context.Context, shipmentID string) (*domain.Shipment, error) {
			if shipmentID == "SHP-404" {
				return nil, domain.ErrShipmentNotFound
			}
			return shipmentFixture(t, shipmentID), nil
		},
	}
	router := newShipmentRouter(repo, &fakeReadModel{})

	rec := makeRequest(router, http.MethodPost, "/api/shipments/bulk/archive", map[string]interface{}{
		"shipmentIds": []string{"SHP-001", "SHP-404"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"successCount":1`)
	assert.Contains(t, rec.Body.String(), `"failCount":1`)
	assert.Contains(t, rec.Body.String(), "SHP-404")
}

func TestShipmentHandlerBulkArchiveEmpty(t *testing.T) {
	router := newShipmentRouter(&fakeShipmentRepo{}, &fakeReadModel{})

	rec := makeRequest(router, http.MethodPost, "/api/shipments/bulk/archive", map[string]interface{}{
		"shipmentIds": []string{},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShipmentHandlerBulkChangeStatusInvalidStatus(t *testing.T) {
	router := newShipmentRouter(&fakeShipmentRepo{}, &fakeReadModel{})

	rec := makeRequest(router, http.MethodPost, "/api/shipments/bulk/status", map[string]interface{}{
		"shipmentIds": []string{"SHP-001"},
		"status":      "teleported",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "teleported")
}

func TestShipmentHandlerCreateWithDates(t *testing.T) {
	var saved *domain.Shipment
	repo := &fakeShipmentRepo{
		saveFn: func(_ context.Context, shipment *domain.Shipment) error {
			saved = shipment
			return nil
		},
	}
	router := newShipmentRouter(repo, &fakeReadModel{})

	body := createShipmentBody()
	body["estimatedDeparture"] = "2024-01-05T00:00:00Z"
	body["estimatedArrival"] = "2024-02-02T00:00:00Z"
	rec := makeRequest(router, http.MethodPost, "/api/shipments", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, saved)
	require.NotNil(t, saved.EstimatedArrival)
	assert.Equal(t, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), saved.EstimatedArrival.UTC())
}
