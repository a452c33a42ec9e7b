package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
)

func reportShipment(t *testing.T, shipmentID, supplier, warehouse string, week int, quantity float64, pallets int, status domain.ShipmentStatus) *domain.Shipment {
	t.Helper()
	shipment, err := domain.NewShipment(shipmentID, "", domain.ShipmentDetails{
		Supplier:           supplier,
		OrderRef:           "PO-" + shipmentID,
		ProductName:        "Citric Acid Monohydrate",
		WeekNumber:         week,
		Quantity:           quantity,
		PalletQty:          pallets,
		ReceivingWarehouse: warehouse,
		Incoterm:           "CIF",
	})
	require.NoError(t, err)
	if status != domain.ShipmentStatusPlanned {
		shipment.LatestStatus = status
	}
	shipment.ClearDomainEvents()
	return shipment
}

func reportRepo(shipments ...*domain.Shipment) *mockShipmentRepo {
	return &mockShipmentRepo{
		findByFilterFn: func(ctx context.Context, filter domain.ShipmentFilter, limit int64) ([]*domain.Shipment, error) {
			return shipments, nil
		},
	}
}

func TestBuildReportGroupsBySupplier(t *testing.T) {
	repo := reportRepo(
		reportShipment(t, "SHP-1", "Savannah Fine Chemicals", "JHB-CENTRAL", 4, 1200.5, 10, domain.ShipmentStatusInTransit),
		reportShipment(t, "SHP-2", "Savannah Fine Chemicals", "JHB-CENTRAL", 5, 800.25, 8, domain.ShipmentStatusPlanned),
		reportShipment(t, "SHP-3", "Brenntag SA", "CPT-DOCKSIDE", 5, 500, 6, domain.ShipmentStatusStored),
	)
	service := NewReportApplicationService(repo, testLogger())

	report, err := service.BuildReport(context.Background(), ReportQuery{GroupBy: GroupBySupplier})
	require.NoError(t, err)
	assert.Equal(t, GroupBySupplier, report.GroupBy)
	require.Len(t, report.Groups, 2)

	top := report.Groups[0]
	assert.Equal(t, "Savannah Fine Chemicals", top.Key)
	assert.Equal(t, 2, top.ShipmentCount)
	assert.InDelta(t, 2000.75, top.TotalQuantity, 0.0001)
	assert.Equal(t, 18, top.TotalPallets)
	assert.InDelta(t, 66.667, top.Share, 0.0001)

	second := report.Groups[1]
	assert.Equal(t, "Brenntag SA", second.Key)
	assert.InDelta(t, 33.333, second.Share, 0.0001)

	assert.Len(t, report.Shipments, 3)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestBuildReportStats(t *testing.T) {
	late := reportShipment(t, "SHP-4", "Brenntag SA", "CPT-DOCKSIDE", 3, 100, 2, domain.ShipmentStatusInTransit)
	pastArrival := time.Now().UTC().Add(-72 * time.Hour)
	late.EstimatedArrival = &pastArrival

	transited := reportShipment(t, "SHP-5", "Brenntag SA", "CPT-DOCKSIDE", 3, 200, 4, domain.ShipmentStatusStored)
	departure := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	arrival := time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC)
	transited.EstimatedDeparture = &departure
	transited.ActualArrival = &arrival

	repo := reportRepo(
		late,
		transited,
		reportShipment(t, "SHP-6", "Brenntag SA", "CPT-DOCKSIDE", 4, 300, 5, domain.ShipmentStatusArrived),
		reportShipment(t, "SHP-7", "Brenntag SA", "CPT-DOCKSIDE", 4, 400, 6, domain.ShipmentStatusDelayed),
		reportShipment(t, "SHP-8", "Brenntag SA", "CPT-DOCKSIDE", 5, 500, 7, domain.ShipmentStatusCancelled),
	)
	service := NewReportApplicationService(repo, testLogger())

	report, err := service.BuildReport(context.Background(), ReportQuery{GroupBy: GroupByWarehouse})
	require.NoError(t, err)

	stats := report.Stats
	assert.Equal(t, 5, stats.TotalShipments)
	assert.InDelta(t, 1500.0, stats.TotalQuantity, 0.0001)
	assert.Equal(t, 24, stats.TotalPallets)
	assert.Equal(t, 1, stats.InTransit)
	assert.Equal(t, 1, stats.ArrivedNotStored)
	assert.Equal(t, 1, stats.Delayed)
	assert.Equal(t, 1, stats.Stored)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Equal(t, 1, stats.LateArrivals)
	assert.InDelta(t, 28.0, stats.AvgTransitDays, 0.0001)
}

func TestBuildReportWeekGrouping(t *testing.T) {
	repo := reportRepo(
		reportShipment(t, "SHP-9", "Brenntag SA", "CPT-DOCKSIDE", 12, 100, 1, domain.ShipmentStatusPlanned),
		reportShipment(t, "SHP-10", "Brenntag SA", "CPT-DOCKSIDE", 3, 100, 1, domain.ShipmentStatusPlanned),
		reportShipment(t, "SHP-11", "Brenntag SA", "CPT-DOCKSIDE", 0, 100, 1, domain.ShipmentStatusPlanned),
		reportShipment(t, "SHP-12", "Brenntag SA", "CPT-DOCKSIDE", 3, 100, 1, domain.ShipmentStatusPlanned),
	)
	service := NewReportApplicationService(repo, testLogger())

	report, err := service.BuildReport(context.Background(), ReportQuery{GroupBy: GroupByWeek})
	require.NoError(t, err)
	require.Len(t, report.Groups, 3)
	assert.Equal(t, "3", report.Groups[0].Key)
	assert.Equal(t, 2, report.Groups[0].ShipmentCount)
	assert.Equal(t, "12", report.Groups[1].Key)
	assert.Equal(t, "unscheduled", report.Groups[2].Key)
}

func TestBuildReportDefaultGroupBy(t *testing.T) {
	repo := reportRepo(reportShipment(t, "SHP-13", "Brenntag SA", "CPT-DOCKSIDE", 1, 100, 1, domain.ShipmentStatusPlanned))
	service := NewReportApplicationService(repo, testLogger())

	report, err := service.BuildReport(context.Background(), ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, GroupBySupplier, report.GroupBy)
}

func TestBuildReportUnknownGroupBy(t *testing.T) {
	service := NewReportApplicationService(reportRepo(), testLogger())

	_, err := service.BuildReport(context.Background(), ReportQuery{GroupBy: "vessel"})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidationError, appErr.Code)
	assert.Contains(t, appErr.Message, "vessel")
}

func TestBuildReportEmpty(t *testing.T) {
	service := NewReportApplicationService(reportRepo(), testLogger())

	report, err := service.BuildReport(context.Background(), ReportQuery{GroupBy: GroupByStatus})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Stats.TotalShipments)
	assert.Zero(t, report.Stats.TotalQuantity)
	assert.Zero(t, report.Stats.AvgTransitDays)
	assert.Empty(t, report.Groups)
	assert.Empty(t, report.Shipments)
}

func TestBuildReportDecimalAccumulation(t *testing.T) {
	shipments := make([]*domain.Shipment, 0, 10)
	for i := 0; i < 10; i++ {
		shipments = append(shipments, reportShipment(t, "SHP-Q", "Brenntag SA", "CPT-DOCKSIDE", 1, 0.1, 1, domain.ShipmentStatusPlanned))
	}
	service := NewReportApplicationService(reportRepo(shipments...), testLogger())

	report, err := service.BuildReport(context.Background(), ReportQuery{GroupBy: GroupBySupplier})
	require.NoError(t, err)

	// ten times 0.1 is exactly 1 in decimal arithmetic
	assert.Equal(t, 1.0, report.Stats.TotalQuantity)
	require.Len(t, report.Groups, 1)
	assert.Equal(t, 1.0, report.Groups[0].TotalQuantity)
}
