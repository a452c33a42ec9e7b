package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
)

func sampleReport() *application.ShipmentReport {
	departure := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	arrival := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	return &application.ShipmentReport{
		GroupBy:     application.GroupBySupplier,
		GeneratedAt: time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC),
		Stats: application.ReportStats{
			TotalShipments: 2,
			TotalQuantity:  26000.5,
			TotalPallets:   40,
			InTransit:      1,
			Stored:         1,
			AvgTransitDays: 28,
		},
		Groups: []application.ReportGroup{
			{Key: "Savannah Fine Chemicals", ShipmentCount: 1, TotalQuantity: 24000, TotalPallets: 22, Share: 50},
			{Key: "Brenntag", ShipmentCount: 1, TotalQuantity: 2000.5, TotalPallets: 18, Share: 50},
		},
		Shipments: []application.ShipmentDTO{
			{
				ShipmentID:         "SHP-001",
				Supplier:           "Savannah Fine Chemicals",
				OrderRef:           "PO-48812",
				ProductName:        "Citric Acid Monohydrate",
				WeekNumber:         5,
				Quantity:           24000,
				PalletQty:          22,
				ReceivingWarehouse: "JHB-CENTRAL",
				ForwardingAgent:    "DSV Air & Sea",
				Incoterm:           "CIF",
				VesselName:         "MSC Leanne",
				LatestStatus:       "in_transit",
				EstimatedDeparture: &departure,
				EstimatedArrival:   &arrival,
			},
			{
				ShipmentID:         "SHP-002",
				Supplier:           "Brenntag",
				OrderRef:           "PO-49077",
				ProductName:        "Sodium Benzoate",
				WeekNumber:         6,
				Quantity:           2000.5,
				PalletQty:          18,
				ReceivingWarehouse: "CPT-DOCKSIDE",
				Incoterm:           "FOB",
				LatestStatus:       "stored",
			},
		},
	}
}

func TestRenderXLSX(t *testing.T) {
	report := sampleReport()

	data, contentType, err := Render(FormatXLSX, report)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, ContentTypeXLSX, contentType)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Shipments", "Summary"}, f.GetSheetList())

	header, err := f.GetCellValue("Shipments", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Shipment ID", header)

	id, err := f.GetCellValue("Shipments", "A2")
	require.NoError(t, err)
	assert.Equal(t, "SHP-001", id)

	eta, err := f.GetCellValue("Shipments", "N2")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-02", eta)

	// Second shipment has no departure date
	etd, err := f.GetCellValue("Shipments", "M3")
	require.NoError(t, err)
	assert.Empty(t, etd)

	title, err := f.GetCellValue("Summary", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Shipment Report", title)
}

func TestRenderXLSXEmptyReport(t *testing.T) {
	report := &application.ShipmentReport{
		GroupBy:     application.GroupByWeek,
		GeneratedAt: time.Now().UTC(),
	}

	data, _, err := Render(FormatXLSX, report)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Shipments", "O1")
	require.NoError(t, err)
	assert.Equal(t, "Actual Arrival", header)
}

func TestRenderPDF(t *testing.T) {
	report := sampleReport()

	data, contentType, err := Render(FormatPDF, report)
	require.NoError(t, err)
	assert.Equal(t, ContentTypePDF, contentType)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderPDFManyGroups(t *testing.T) {
	report := sampleReport()
	report.Groups = nil
	for i := 0; i < 80; i++ {
		report.Groups = append(report.Groups, application.ReportGroup{
			Key:           "Supplier",
			ShipmentCount: i,
		})
	}

	data, _, err := Render(FormatPDF, report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderPDFEmptyReport(t *testing.T) {
	report := &application.ShipmentReport{
		GroupBy:     application.GroupByStatus,
		GeneratedAt: time.Now().UTC(),
	}

	data, _, err := Render(FormatPDF, report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderUnknownFormat(t *testing.T) {
	_, _, err := Render("csv", sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown export format")
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, "shipments-20240115-083000.xlsx", Filename(FormatXLSX, at))
	assert.Equal(t, "shipments-20240115-083000.pdf", Filename(FormatPDF, at))
}
