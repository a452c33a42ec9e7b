package application

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

// Group-by dimensions supported by shipment reports
const (
	GroupBySupplier        = "supplier"
	GroupByWarehouse       = "warehouse"
	GroupByStatus          = "status"
	GroupByIncoterm        = "incoterm"
	GroupByForwardingAgent = "forwardingAgent"
	GroupByWeek            = "week"
)

// Bucket keys for shipments missing the grouped field
const (
	groupKeyUnspecified = "unspecified"
	groupKeyUnscheduled = "unscheduled"
)

var validGroupBys = map[string]bool{
	GroupBySupplier:        true,
	GroupByWarehouse:       true,
	GroupByStatus:          true,
	GroupByIncoterm:        true,
	GroupByForwardingAgent: true,
	GroupByWeek:            true,
}

// ReportApplicationService builds aggregated shipment reports
type ReportApplicationService struct {
	repo   domain.ShipmentRepository
	logger *logging.Logger
}

// NewReportApplicationService creates a new ReportApplicationService
func NewReportApplicationService(repo domain.ShipmentRepository, logger *logging.Logger) *ReportApplicationService {
	return &ReportApplicationService{
		repo:   repo,
		logger: logger,
	}
}

// BuildReport loads the filtered shipments and aggregates them into groups
// and derived statistics. Quantity sums use decimal arithmetic and round
// half-up to 3 decimal places.
func (s *ReportApplicationService) BuildReport(ctx context.Context, query ReportQuery) (*ShipmentReport, error) {
	groupBy := query.GroupBy
	if groupBy == "" {
		groupBy = GroupBySupplier
	}
	if !validGroupBys[groupBy] {
		return nil, errors.ErrValidation(fmt.Sprintf("unknown groupBy: %s", query.GroupBy))
	}

	shipments, err := s.repo.FindByFilter(ctx, query.Filter, 0)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load shipments for report")
		return nil, fmt.Errorf("failed to load shipments for report: %w", err)
	}

	now := time.Now().UTC()
	report := &ShipmentReport{
		Filter:      ToReportFilterDTO(query.Filter),
		GroupBy:     groupBy,
		GeneratedAt: now,
		Stats:       buildStats(shipments, now),
		Groups:      buildGroups(shipments, groupBy),
		Shipments:   ToShipmentDTOs(shipments),
	}

	s.logger.Info("Built shipment report",
		"groupBy", groupBy,
		"totalShipments", report.Stats.TotalShipments,
		"groups", len(report.Groups))

	return report, nil
}

func buildStats(shipments []*domain.Shipment, now time.Time) ReportStats {
	stats := ReportStats{TotalShipments: len(shipments)}

	quantity := decimal.Zero
	transitSum := decimal.Zero
	transitCount := 0

	for _, shipment := range shipments {
		quantity = quantity.Add(decimal.NewFromFloat(shipment.Quantity))
		stats.TotalPallets += shipment.PalletQty

		switch shipment.LatestStatus {
		case domain.ShipmentStatusInTransit:
			stats.InTransit++
		case domain.ShipmentStatusArrived:
			stats.ArrivedNotStored++
		case domain.ShipmentStatusDelayed:
			stats.Delayed++
		case domain.ShipmentStatusStored:
			stats.Stored++
		case domain.ShipmentStatusCancelled:
			stats.Cancelled++
		}

		if shipment.IsLate(now) {
			stats.LateArrivals++
		}
		if days, ok := shipment.TransitDays(); ok {
			transitSum = transitSum.Add(decimal.NewFromFloat(days))
			transitCount++
		}
	}

	stats.TotalQuantity = roundReport(quantity)
	if transitCount > 0 {
		stats.AvgTransitDays = roundReport(transitSum.Div(decimal.NewFromInt(int64(transitCount))))
	}
	return stats
}

func buildGroups(shipments []*domain.Shipment, groupBy string) []ReportGroup {
	type bucket struct {
		count    int
		quantity decimal.Decimal
		pallets  int
	}

	buckets := make(map[string]*bucket)
	for _, shipment := range shipments {
		key := groupKey(shipment, groupBy)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{quantity: decimal.Zero}
			buckets[key] = b
		}
		b.count++
		b.quantity = b.quantity.Add(decimal.NewFromFloat(shipment.Quantity))
		b.pallets += shipment.PalletQty
	}

	total := decimal.NewFromInt(int64(len(shipments)))
	hundred := decimal.NewFromInt(100)

	groups := make([]ReportGroup, 0, len(buckets))
	for key, b := range buckets {
		share := 0.0
		if total.IsPositive() {
			share = roundReport(decimal.NewFromInt(int64(b.count)).Mul(hundred).Div(total))
		}
		groups = append(groups, ReportGroup{
			Key:           key,
			ShipmentCount: b.count,
			TotalQuantity: roundReport(b.quantity),
			TotalPallets:  b.pallets,
			Share:         share,
		})
	}

	sortGroups(groups, groupBy)
	return groups
}

func groupKey(shipment *domain.Shipment, groupBy string) string {
	switch groupBy {
	case GroupByWarehouse:
		return shipment.ReceivingWarehouse
	case GroupByStatus:
		return string(shipment.LatestStatus)
	case GroupByIncoterm:
		return shipment.Incoterm
	case GroupByForwardingAgent:
		if shipment.ForwardingAgent == "" {
			return groupKeyUnspecified
		}
		return shipment.ForwardingAgent
	case GroupByWeek:
		if shipment.WeekNumber == 0 {
			return groupKeyUnscheduled
		}
		return strconv.Itoa(shipment.WeekNumber)
	default:
		return shipment.Supplier
	}
}

// sortGroups orders week buckets chronologically and everything else by
// volume, so supplier/warehouse reports read as a ranking
func sortGroups(groups []ReportGroup, groupBy string) {
	if groupBy == GroupByWeek {
		sort.Slice(groups, func(i, j int) bool {
			wi, errI := strconv.Atoi(groups[i].Key)
			wj, errJ := strconv.Atoi(groups[j].Key)
			if errI != nil || errJ != nil {
				return errJ != nil && errI == nil
			}
			return wi < wj
		})
		return
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].ShipmentCount != groups[j].ShipmentCount {
			return groups[i].ShipmentCount > groups[j].ShipmentCount
		}
		return groups[i].Key < groups[j].Key
	})
}

// roundReport rounds half-up to 3 decimal places
func roundReport(d decimal.Decimal) float64 {
	return d.Round(3).InexactFloat64()
}
