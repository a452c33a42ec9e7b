package reports

import (
	"fmt"
	"strconv"
	"time"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
)

// Export formats
const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// Content types served with exported documents
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

// Render produces the report document in the requested format and returns
// the bytes with their content type
func Render(format string, report *application.ShipmentReport) ([]byte, string, error) {
	switch format {
	case FormatXLSX:
		data, err := renderXLSX(report)
		return data, ContentTypeXLSX, err
	case FormatPDF:
		data, err := renderPDF(report)
		return data, ContentTypePDF, err
	default:
		return nil, "", fmt.Errorf("unknown export format: %s", format)
	}
}

// Filename builds the attachment name for an exported report
func Filename(format string, generatedAt time.Time) string {
	return fmt.Sprintf("shipments-%s.%s", generatedAt.Format("20060102-150405"), format)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// groupLabel maps a groupBy key to its column heading
func groupLabel(groupBy string) string {
	switch groupBy {
	case application.GroupByWarehouse:
		return "Warehouse"
	case application.GroupByStatus:
		return "Status"
	case application.GroupByIncoterm:
		return "Incoterm"
	case application.GroupByForwardingAgent:
		return "Forwarding Agent"
	case application.GroupByWeek:
		return "Week"
	default:
		return "Supplier"
	}
}

// formatNumber prints a quantity without trailing zeros; report values are
// already rounded to at most 3 decimal places
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
