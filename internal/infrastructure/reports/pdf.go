package reports

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
)

type pdfColumn struct {
	title string
	width float64
	align string
}

// renderPDF builds a landscape A4 document with the stats line and the
// grouped table. Column headers repeat on every page and the footer
// carries page numbers.
func renderPDF(report *application.ShipmentReport) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Shipment Report", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	columns := []pdfColumn{
		{groupLabel(report.GroupBy), 120, "L"},
		{"Shipments", 35, "R"},
		{"Quantity", 45, "R"},
		{"Pallets", 35, "R"},
		{"Share %", 40, "R"},
	}

	const rowHeight = 7.0
	// A4 landscape is 210mm high; stop the table clear of the footer
	const tableBottom = 190.0

	drawTableHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(221, 235, 247)
		for _, col := range columns {
			pdf.CellFormat(col.width, rowHeight, tr(col.title), "1", 0, col.align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
	}

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Shipment Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	generated := fmt.Sprintf("Generated %s, grouped by %s",
		report.GeneratedAt.Format("2006-01-02 15:04:05 MST"), groupLabel(report.GroupBy))
	pdf.CellFormat(0, 6, tr(generated), "", 1, "L", false, 0, "")

	stats := report.Stats
	statsLine := fmt.Sprintf(
		"Shipments: %d | Quantity: %s | Pallets: %d | In transit: %d | Arrived: %d | Stored: %d | Delayed: %d | Cancelled: %d | Late: %d | Avg transit: %s days",
		stats.TotalShipments, formatNumber(stats.TotalQuantity), stats.TotalPallets,
		stats.InTransit, stats.ArrivedNotStored, stats.Stored, stats.Delayed,
		stats.Cancelled, stats.LateArrivals, formatNumber(stats.AvgTransitDays),
	)
	pdf.CellFormat(0, 6, tr(statsLine), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	drawTableHeader()
	for _, group := range report.Groups {
		if pdf.GetY()+rowHeight > tableBottom {
			pdf.AddPage()
			drawTableHeader()
		}
		key := truncate(pdf, tr(group.Key), columns[0].width-3)
		pdf.CellFormat(columns[0].width, rowHeight, key, "1", 0, "L", false, 0, "")
		pdf.CellFormat(columns[1].width, rowHeight, fmt.Sprintf("%d", group.ShipmentCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(columns[2].width, rowHeight, formatNumber(group.TotalQuantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(columns[3].width, rowHeight, fmt.Sprintf("%d", group.TotalPallets), "1", 0, "R", false, 0, "")
		pdf.CellFormat(columns[4].width, rowHeight, formatNumber(group.Share), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate shortens text to fit a cell width at the current font
func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
