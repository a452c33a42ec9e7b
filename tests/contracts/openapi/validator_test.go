package openapi_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/contracts/openapi"
)

const specPath = "../../../docs/openapi.yaml"

func newValidator(t *testing.T) *openapi.Validator {
	t.Helper()

	absPath, err := filepath.Abs(specPath)
	require.NoError(t, err)

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		t.Skipf("OpenAPI spec not found at %s", absPath)
	}

	validator, err := openapi.NewValidator(absPath)
	require.NoError(t, err, "OpenAPI spec must parse and validate")
	return validator
}

func jsonRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req
}

func jsonResponse(status int, body string) *http.Response {
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	rec.WriteHeader(status)
	rec.WriteString(body)
	return rec.Result()
}

func TestOpenAPISpecIsValid(t *testing.T) {
	validator := newValidator(t)

	doc := validator.GetDocument()
	require.NotNil(t, doc)
	assert.Equal(t, "Import Schedule Service API", doc.Info.Title)
	assert.NotEmpty(t, doc.Info.Version)
}

func TestOpenAPIHasRequiredPaths(t *testing.T) {
	validator := newValidator(t)

	declared := make(map[string]bool)
	for _, p := range validator.GetPaths() {
		declared[p] = true
	}

	required := []string{
		"/api/shipments",
		"/api/shipments/stats",
		"/api/shipments/{shipmentId}",
		"/api/shipments/{shipmentId}/status",
		"/api/shipments/{shipmentId}/archive",
		"/api/shipments/{shipmentId}/restore",
		"/api/shipments/bulk/archive",
		"/api/shipments/bulk/status",
		"/api/warehouse-capacity",
		"/api/warehouse-capacity/{warehouseCode}",
		"/api/notifications/preferences",
		"/api/notifications/test",
		"/api/reports/shipments",
		"/api/reports/shipments/export",
	}

	for _, path := range required {
		assert.True(t, declared[path], "missing path %s", path)
	}
}

func TestOperationIDs(t *testing.T) {
	validator := newValidator(t)

	cases := []struct {
		method string
		target string
		want   string
	}{
		{http.MethodGet, "/api/shipments", "listShipments"},
		{http.MethodPost, "/api/shipments", "createShipment"},
		{http.MethodGet, "/api/shipments/stats", "getShipmentStats"},
		{http.MethodPut, "/api/shipments/SHP-001/status", "changeShipmentStatus"},
		{http.MethodGet, "/api/warehouse-capacity", "listWarehouseCapacity"},
		{http.MethodPut, "/api/notifications/preferences", "saveNotificationPreferences"},
		{http.MethodGet, "/api/reports/shipments/export", "exportShipmentReport"},
	}

	for _, tc := range cases {
		opID, err := validator.GetOperationID(jsonRequest(tc.method, tc.target, ""))
		require.NoError(t, err, "%s %s must route", tc.method, tc.target)
		assert.Equal(t, tc.want, opID)
	}
}

func TestValidateListShipmentsRequest(t *testing.T) {
	validator := newValidator(t)

	t.Run("WithFilters", func(t *testing.T) {
		req := jsonRequest(http.MethodGet,
			"/api/shipments?status=planned&status=in_transit&supplier=Brenntag&weekFrom=3&weekTo=9&page=2&pageSize=50&sortBy=estimatedArrival&sortOrder=asc", "")
		require.NoError(t, validator.ValidateRequest(req))
	})

	t.Run("RejectsUnknownSortOrder", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/shipments?sortOrder=sideways", "")
		require.Error(t, validator.ValidateRequest(req))
	})

	t.Run("RejectsUnknownStatus", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/shipments?status=teleported", "")
		require.Error(t, validator.ValidateRequest(req))
	})
}

func TestValidateCreateShipmentRequest(t *testing.T) {
	validator := newValidator(t)

	t.Run("Valid", func(t *testing.T) {
		body := `{
			"supplier": "Savannah Fine Chemicals",
			"orderRef": "PO-88412",
			"productName": "Citric Acid Monohydrate",
			"weekNumber": 34,
			"quantity": 24000,
			"palletQty": 22,
			"receivingWarehouse": "JHB-CENTRAL",
			"incoterm": "CIF",
			"vesselName": "MSC Leanne",
			"estimatedArrival": "2026-08-28T08:00:00Z"
		}`
		req := jsonRequest(http.MethodPost, "/api/shipments", body)
		require.NoError(t, validator.ValidateRequest(req))
	})

	t.Run("MissingSupplier", func(t *testing.T) {
		body := `{
			"orderRef": "PO-88412",
			"productName": "Citric Acid Monohydrate",
			"receivingWarehouse": "JHB-CENTRAL",
			"incoterm": "CIF"
		}`
		req := jsonRequest(http.MethodPost, "/api/shipments", body)
		require.Error(t, validator.ValidateRequest(req))
	})

	t.Run("WeekNumberOutOfRange", func(t *testing.T) {
		body := `{
			"supplier": "Savannah Fine Chemicals",
			"orderRef": "PO-88412",
			"productName": "Citric Acid Monohydrate",
			"weekNumber": 99,
			"receivingWarehouse": "JHB-CENTRAL",
			"incoterm": "CIF"
		}`
		req := jsonRequest(http.MethodPost, "/api/shipments", body)
		require.Error(t, validator.ValidateRequest(req))
	})
}

func TestValidateShipmentResponse(t *testing.T) {
	validator := newValidator(t)

	req := jsonRequest(http.MethodGet, "/api/shipments/SHP-20260815-A3F2", "")
	resp := jsonResponse(http.StatusOK, `{
		"shipmentId": "SHP-20260815-A3F2",
		"supplier": "Savannah Fine Chemicals",
		"orderRef": "PO-88412",
		"productName": "Citric Acid Monohydrate",
		"weekNumber": 34,
		"quantity": 24000,
		"palletQty": 22,
		"receivingWarehouse": "JHB-CENTRAL",
		"incoterm": "CIF",
		"vesselName": "MSC Leanne",
		"latestStatus": "in_transit",
		"estimatedArrival": "2026-08-28T08:00:00Z",
		"statusHistory": [
			{"status": "planned", "changedAt": "2026-08-10T09:00:00Z"},
			{"status": "in_transit", "note": "departed Durban", "changedAt": "2026-08-15T14:30:00Z"}
		],
		"archived": false,
		"createdAt": "2026-08-10T09:00:00Z",
		"updatedAt": "2026-08-15T14:30:00Z"
	}`)

	require.NoError(t, validator.ValidateResponse(req, resp))
}

func TestValidateShipmentPageResponse(t *testing.T) {
	validator := newValidator(t)

	req := jsonRequest(http.MethodGet, "/api/shipments?page=1&pageSize=20", "")
	resp := jsonResponse(http.StatusOK, `{
		"data": [{
			"shipmentId": "SHP-20260815-A3F2",
			"supplier": "Savannah Fine Chemicals",
			"orderRef": "PO-88412",
			"productName": "Citric Acid Monohydrate",
			"weekNumber": 34,
			"quantity": 24000,
			"palletQty": 22,
			"receivingWarehouse": "JHB-CENTRAL",
			"incoterm": "CIF",
			"latestStatus": "in_transit",
			"archived": false,
			"createdAt": "2026-08-10T09:00:00Z",
			"updatedAt": "2026-08-15T14:30:00Z",
			"isLate": false
		}],
		"page": 1,
		"pageSize": 20,
		"totalItems": 1,
		"totalPages": 1,
		"hasNext": false,
		"hasPrev": false
	}`)

	require.NoError(t, validator.ValidateResponse(req, resp))
}

func TestValidateStatsResponse(t *testing.T) {
	validator := newValidator(t)

	req := jsonRequest(http.MethodGet, "/api/shipments/stats", "")
	resp := jsonResponse(http.StatusOK, `{
		"totalShipments": 42,
		"planned": 10,
		"inTransit": 12,
		"arrived": 8,
		"stored": 7,
		"delayed": 3,
		"cancelled": 2,
		"lateArrivals": 4,
		"arrivingThisWeek": 5,
		"totalQuantity": 816500.5,
		"totalPallets": 930,
		"archivedCount": 17
	}`)

	require.NoError(t, validator.ValidateResponse(req, resp))
}

func TestValidateNotFoundResponse(t *testing.T) {
	validator := newValidator(t)

	req := jsonRequest(http.MethodGet, "/api/shipments/SHP-MISSING", "")
	resp := jsonResponse(http.StatusNotFound, `{
		"code": "RESOURCE_NOT_FOUND",
		"message": "shipment not found: SHP-MISSING",
		"requestId": "req-7f3a",
		"timestamp": "2026-08-15T14:30:00Z",
		"path": "/api/shipments/SHP-MISSING"
	}`)

	require.NoError(t, validator.ValidateResponse(req, resp))
}

func TestValidateCapacityResponses(t *testing.T) {
	validator := newValidator(t)

	t.Run("ListResponse", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/warehouse-capacity", "")
		resp := jsonResponse(http.StatusOK, `[{
			"warehouseCode": "JHB-CENTRAL",
			"name": "Johannesburg Central",
			"totalBins": 500,
			"usedBins": 410,
			"projectedBins": 54,
			"utilizationPct": 82.0,
			"projectedPct": 92.8,
			"level": "warning",
			"updatedBy": "ops",
			"updatedAt": "2026-08-15T14:30:00Z"
		}]`)
		require.NoError(t, validator.ValidateResponse(req, resp))
	})

	t.Run("UpdateBinsRequest", func(t *testing.T) {
		req := jsonRequest(http.MethodPut, "/api/warehouse-capacity/JHB-CENTRAL",
			`{"totalBins": 520, "usedBins": 410}`)
		require.NoError(t, validator.ValidateRequest(req))
	})

	t.Run("CreateRejectsZeroBins", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/warehouse-capacity",
			`{"warehouseCode": "CPT-SOUTH", "totalBins": 0}`)
		require.Error(t, validator.ValidateRequest(req))
	})
}

func TestValidatePreferencesRequest(t *testing.T) {
	validator := newValidator(t)

	req := jsonRequest(http.MethodPut, "/api/notifications/preferences", `{
		"email": "ops@synercore.example",
		"webhookUrl": "https://hooks.synercore.example/imports",
		"onArrival": true,
		"onDelay": true,
		"onStored": false,
		"onCancelled": false
	}`)
	require.NoError(t, validator.ValidateRequest(req))
}

func TestValidateReportRequests(t *testing.T) {
	validator := newValidator(t)

	t.Run("Report", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/reports/shipments?groupBy=warehouse&status=stored", "")
		require.NoError(t, validator.ValidateRequest(req))
	})

	t.Run("RejectsUnknownGroupBy", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/reports/shipments?groupBy=vessel", "")
		require.Error(t, validator.ValidateRequest(req))
	})

	t.Run("RejectsUnknownExportFormat", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/reports/shipments/export?format=docx", "")
		require.Error(t, validator.ValidateRequest(req))
	})
}

func TestValidateResponseRejectsUndeclaredStatus(t *testing.T) {
	validator := newValidator(t)

	req := jsonRequest(http.MethodGet, "/api/shipments/stats", "")
	resp := jsonResponse(http.StatusTeapot, `{}`)

	require.Error(t, validator.ValidateResponse(req, resp))
}
