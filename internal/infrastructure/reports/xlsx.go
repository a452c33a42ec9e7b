package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
)

const (
	shipmentsSheet = "Shipments"
	summarySheet   = "Summary"
)

var shipmentColumns = []struct {
	Title string
	Width float64
}{
	{"Shipment ID", 16},
	{"Supplier", 28},
	{"Order Ref", 16},
	{"Product", 32},
	{"Week", 8},
	{"Quantity", 12},
	{"Pallets", 10},
	{"Warehouse", 20},
	{"Forwarding Agent", 20},
	{"Incoterm", 10},
	{"Vessel", 20},
	{"Status", 14},
	{"ETD", 12},
	{"ETA", 12},
	{"Actual Arrival", 14},
}

// renderXLSX builds the workbook: a Shipments sheet with one row per
// shipment and a Summary sheet with the stats block and group table.
// An empty report still produces a valid workbook with headers.
func renderXLSX(report *application.ShipmentReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", shipmentsSheet); err != nil {
		return nil, fmt.Errorf("failed to name shipments sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeShipmentsSheet(f, report, headerStyle); err != nil {
		return nil, err
	}
	if err := writeSummarySheet(f, report, headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeShipmentsSheet(f *excelize.File, report *application.ShipmentReport, headerStyle int) error {
	header := make([]interface{}, len(shipmentColumns))
	for i, col := range shipmentColumns {
		header[i] = col.Title
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column name: %w", err)
		}
		if err := f.SetColWidth(shipmentsSheet, name, name, col.Width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := f.SetSheetRow(shipmentsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	lastColumn, err := excelize.ColumnNumberToName(len(shipmentColumns))
	if err != nil {
		return fmt.Errorf("failed to resolve column name: %w", err)
	}
	if err := f.SetCellStyle(shipmentsSheet, "A1", lastColumn+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}

	for i, shipment := range report.Shipments {
		row := []interface{}{
			shipment.ShipmentID,
			shipment.Supplier,
			shipment.OrderRef,
			shipment.ProductName,
			shipment.WeekNumber,
			shipment.Quantity,
			shipment.PalletQty,
			shipment.ReceivingWarehouse,
			shipment.ForwardingAgent,
			shipment.Incoterm,
			shipment.VesselName,
			shipment.LatestStatus,
			formatDate(shipment.EstimatedDeparture),
			formatDate(shipment.EstimatedArrival),
			formatDate(shipment.ActualArrival),
		}
		if err := f.SetSheetRow(shipmentsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("failed to write shipment row: %w", err)
		}
	}

	// Freeze the header row and filter over the full data range
	if err := f.SetPanes(shipmentsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header row: %w", err)
	}
	dataRange := fmt.Sprintf("A1:%s%d", lastColumn, len(report.Shipments)+1)
	if err := f.AutoFilter(shipmentsSheet, dataRange, nil); err != nil {
		return fmt.Errorf("failed to set autofilter: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, report *application.ShipmentReport, headerStyle int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 28); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "B", "E", 14); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	stats := report.Stats
	rows := [][]interface{}{
		{"Shipment Report"},
		{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Grouped By", groupLabel(report.GroupBy)},
		{},
		{"Total Shipments", stats.TotalShipments},
		{"Total Quantity", stats.TotalQuantity},
		{"Total Pallets", stats.TotalPallets},
		{"In Transit", stats.InTransit},
		{"Arrived (not stored)", stats.ArrivedNotStored},
		{"Delayed", stats.Delayed},
		{"Stored", stats.Stored},
		{"Cancelled", stats.Cancelled},
		{"Late Arrivals", stats.LateArrivals},
		{"Avg Transit Days", stats.AvgTransitDays},
		{},
	}
	groupHeaderRow := len(rows) + 1
	rows = append(rows, []interface{}{groupLabel(report.GroupBy), "Shipments", "Quantity", "Pallets", "Share %"})
	for _, group := range report.Groups {
		rows = append(rows, []interface{}{
			group.Key,
			group.ShipmentCount,
			group.TotalQuantity,
			group.TotalPallets,
			group.Share,
		})
	}

	for i := range rows {
		if len(rows[i]) == 0 {
			continue
		}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &rows[i]); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	// Bold the title and the group table header
	if err := f.SetCellStyle(summarySheet, "A1", "A1", headerStyle); err != nil {
		return fmt.Errorf("failed to style summary title: %w", err)
	}
	start := fmt.Sprintf("A%d", groupHeaderRow)
	end := fmt.Sprintf("E%d", groupHeaderRow)
	if err := f.SetCellStyle(summarySheet, start, end, headerStyle); err != nil {
		return fmt.Errorf("failed to style group header: %w", err)
	}
	return nil
}
