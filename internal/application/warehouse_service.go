package application

import (
	"context"
	"fmt"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

// WarehouseApplicationService handles warehouse capacity use cases
type WarehouseApplicationService struct {
	repo      domain.WarehouseCapacityRepository
	readModel ShipmentReadModel
	logger    *logging.Logger
}

// NewWarehouseApplicationService creates a new WarehouseApplicationService
func NewWarehouseApplicationService(
	repo domain.WarehouseCapacityRepository,
	readModel ShipmentReadModel,
	logger *logging.Logger,
) *WarehouseApplicationService {
	return &WarehouseApplicationService{
		repo:      repo,
		readModel: readModel,
		logger:    logger,
	}
}

// ListCapacity returns a capacity snapshot per warehouse, sorted by code
func (s *WarehouseApplicationService) ListCapacity(ctx context.Context) ([]domain.CapacitySnapshot, error) {
	warehouses, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list warehouse capacity")
		return nil, fmt.Errorf("failed to list warehouse capacity: %w", err)
	}

	projected, err := s.readModel.ProjectedBinsByWarehouse(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to project incoming pallets")
		return nil, fmt.Errorf("failed to project incoming pallets: %w", err)
	}

	snapshots := make([]domain.CapacitySnapshot, 0, len(warehouses))
	for _, warehouse := range warehouses {
		snapshots = append(snapshots, warehouse.Snapshot(projected[warehouse.WarehouseCode]))
	}
	return snapshots, nil
}

// CreateWarehouse registers a capacity record for a new warehouse
func (s *WarehouseApplicationService) CreateWarehouse(ctx context.Context, cmd CreateWarehouseCommand) (*domain.CapacitySnapshot, error) {
	warehouse, err := domain.NewWarehouseCapacity(cmd.WarehouseCode, cmd.Name, cmd.TotalBins, cmd.UsedBins, cmd.UpdatedBy)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.repo.Save(ctx, warehouse); err != nil {
		if errors.Is(err, domain.ErrWarehouseExists) {
			return nil, errors.ErrConflict(fmt.Sprintf("warehouse %s already exists", warehouse.WarehouseCode))
		}
		s.logger.WithError(err).Error("Failed to create warehouse", "warehouseCode", warehouse.WarehouseCode)
		return nil, fmt.Errorf("failed to create warehouse: %w", err)
	}

	// Events are saved to outbox by repository in transaction

	s.logger.Event(ctx, "warehouse.created", map[string]any{
		"warehouseCode": warehouse.WarehouseCode,
		"totalBins":     warehouse.TotalBins,
	})

	return s.snapshot(ctx, warehouse)
}

// UpdateWarehouseBins updates the bin counts of an existing warehouse
func (s *WarehouseApplicationService) UpdateWarehouseBins(ctx context.Context, cmd UpdateWarehouseBinsCommand) (*domain.CapacitySnapshot, error) {
	warehouse, err := s.repo.FindByCode(ctx, cmd.WarehouseCode)
	if err != nil {
		if errors.Is(err, domain.ErrWarehouseNotFound) {
			return nil, errors.ErrNotFoundWithID("warehouse", cmd.WarehouseCode)
		}
		s.logger.WithError(err).Error("Failed to load warehouse", "warehouseCode", cmd.WarehouseCode)
		return nil, fmt.Errorf("failed to load warehouse: %w", err)
	}
	if warehouse == nil {
		return nil, errors.ErrNotFoundWithID("warehouse", cmd.WarehouseCode)
	}

	if err := warehouse.UpdateBins(cmd.TotalBins, cmd.UsedBins, cmd.UpdatedBy); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.repo.Save(ctx, warehouse); err != nil {
		s.logger.WithError(err).Error("Failed to save warehouse", "warehouseCode", cmd.WarehouseCode)
		return nil, fmt.Errorf("failed to save warehouse: %w", err)
	}

	// Events are saved to outbox by repository in transaction

	s.logger.Event(ctx, "warehouse.capacity_updated", map[string]any{
		"warehouseCode": warehouse.WarehouseCode,
		"totalBins":     warehouse.TotalBins,
		"usedBins":      warehouse.UsedBins,
	})

	return s.snapshot(ctx, warehouse)
}

func (s *WarehouseApplicationService) snapshot(ctx context.Context, warehouse *domain.WarehouseCapacity) (*domain.CapacitySnapshot, error) {
	projected, err := s.readModel.ProjectedBinsByWarehouse(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to project incoming pallets")
		return nil, fmt.Errorf("failed to project incoming pallets: %w", err)
	}
	snapshot := warehouse.Snapshot(projected[warehouse.WarehouseCode])
	return &snapshot, nil
}
