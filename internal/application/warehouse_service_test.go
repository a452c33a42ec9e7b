package application

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/errors"
)

type mockWarehouseRepo struct {
	saveFn       func(context.Context, *domain.WarehouseCapacity) error
	findByCodeFn func(context.Context, string) (*domain.WarehouseCapacity, error)
	findAllFn    func(context.Context) ([]*domain.WarehouseCapacity, error)

	lastSaved *domain.WarehouseCapacity
}

func (m *mockWarehouseRepo) Save(ctx context.Context, warehouse *domain.WarehouseCapacity) error {
	m.lastSaved = warehouse
	if m.saveFn != nil {
		return m.saveFn(ctx, warehouse)
	}
	return nil
}

func (m *mockWarehouseRepo) FindByCode(ctx context.Context, code string) (*domain.WarehouseCapacity, error) {
	if m.findByCodeFn != nil {
		return m.findByCodeFn(ctx, code)
	}
	return nil, domain.ErrWarehouseNotFound
}

func (m *mockWarehouseRepo) FindAll(ctx context.Context) ([]*domain.WarehouseCapacity, error) {
	if m.findAllFn != nil {
		return m.findAllFn(ctx)
	}
	return nil, nil
}

type mockReadModel struct {
	listFn          func(context.Context, ListShipmentsQuery) ([]ShipmentListItem, int64, error)
	statsFn         func(context.Context) (*ShipmentStats, error)
	projectedBinsFn func(context.Context) (map[string]int, error)
}

func (m *mockReadModel) List(ctx context.Context, query ListShipmentsQuery) ([]ShipmentListItem, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, query)
	}
	return nil, 0, nil
}

func (m *mockReadModel) Stats(ctx context.Context) (*ShipmentStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &ShipmentStats{}, nil
}

func (m *mockReadModel) ProjectedBinsByWarehouse(ctx context.Context) (map[string]int, error) {
	if m.projectedBinsFn != nil {
		return m.projectedBinsFn(ctx)
	}
	return map[string]int{}, nil
}

func createWarehouse(t *testing.T, code string, totalBins, usedBins int) *domain.WarehouseCapacity {
	t.Helper()
	warehouse, err := domain.NewWarehouseCapacity(code, code+" warehouse", totalBins, usedBins, "tino")
	require.NoError(t, err)
	warehouse.ClearDomainEvents()
	return warehouse
}

func TestListCapacity(t *testing.T) {
	repo := &mockWarehouseRepo{
		findAllFn: func(ctx context.Context) ([]*domain.WarehouseCapacity, error) {
			return []*domain.WarehouseCapacity{
				createWarehouse(t, "CPT-DOCKSIDE", 500, 410),
				createWarehouse(t, "JHB-CENTRAL", 1000, 600),
			}, nil
		},
	}
	readModel := &mockReadModel{
		projectedBinsFn: func(ctx context.Context) (map[string]int, error) {
			return map[string]int{"JHB-CENTRAL": 200}, nil
		},
	}
	service := NewWarehouseApplicationService(repo, readModel, testLogger())

	snapshots, err := service.ListCapacity(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	assert.Equal(t, "CPT-DOCKSIDE", snapshots[0].WarehouseCode)
	assert.Equal(t, 0, snapshots[0].ProjectedBins)
	assert.InDelta(t, 82.0, snapshots[0].UtilizationPct, 0.001)
	assert.Equal(t, domain.CapacityLevelWarning, snapshots[0].Level)

	assert.Equal(t, "JHB-CENTRAL", snapshots[1].WarehouseCode)
	assert.Equal(t, 200, snapshots[1].ProjectedBins)
	assert.InDelta(t, 60.0, snapshots[1].UtilizationPct, 0.001)
	assert.InDelta(t, 80.0, snapshots[1].ProjectedPct, 0.001)
	assert.Equal(t, domain.CapacityLevelOK, snapshots[1].Level)
}

func TestListCapacityRepoError(t *testing.T) {
	repo := &mockWarehouseRepo{
		findAllFn: func(ctx context.Context) ([]*domain.WarehouseCapacity, error) {
			return nil, stderrors.New("db error")
		},
	}
	service := NewWarehouseApplicationService(repo, &mockReadModel{}, testLogger())

	_, err := service.ListCapacity(context.Background())
	assert.Error(t, err)
}

func TestCreateWarehouse(t *testing.T) {
	repo := &mockWarehouseRepo{}
	service := NewWarehouseApplicationService(repo, &mockReadModel{}, testLogger())

	snapshot, err := service.CreateWarehouse(context.Background(), CreateWarehouseCommand{
		WarehouseCode: "dbn-harbour",
		Name:          "Durban Harbour Store",
		TotalBins:     800,
		UsedBins:      120,
		UpdatedBy:     "tino",
	})
	require.NoError(t, err)
	assert.Equal(t, "DBN-HARBOUR", snapshot.WarehouseCode)
	assert.InDelta(t, 15.0, snapshot.UtilizationPct, 0.001)
	require.NotNil(t, repo.lastSaved)
	assert.Len(t, repo.lastSaved.DomainEvents, 1)
}

func TestCreateWarehouseValidationError(t *testing.T) {
	service := NewWarehouseApplicationService(&mockWarehouseRepo{}, &mockReadModel{}, testLogger())

	_, err := service.CreateWarehouse(context.Background(), CreateWarehouseCommand{
		WarehouseCode: "DBN-HARBOUR",
		TotalBins:     0,
	})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidationError, appErr.Code)
}

func TestCreateWarehouseDuplicate(t *testing.T) {
	repo := &mockWarehouseRepo{
		saveFn: func(ctx context.Context, warehouse *domain.WarehouseCapacity) error {
			return domain.ErrWarehouseExists
		},
	}
	service := NewWarehouseApplicationService(repo, &mockReadModel{}, testLogger())

	_, err := service.CreateWarehouse(context.Background(), CreateWarehouseCommand{
		WarehouseCode: "JHB-CENTRAL",
		TotalBins:     1000,
		UsedBins:      0,
	})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeConflict, appErr.Code)
	assert.Contains(t, appErr.Message, "JHB-CENTRAL")
}

func TestUpdateWarehouseBins(t *testing.T) {
	warehouse := createWarehouse(t, "JHB-CENTRAL", 1000, 347)
	repo := &mockWarehouseRepo{
		findByCodeFn: func(ctx context.Context, code string) (*domain.WarehouseCapacity, error) {
			return warehouse, nil
		},
	}
	service := NewWarehouseApplicationService(repo, &mockReadModel{}, testLogger())

	snapshot, err := service.UpdateWarehouseBins(context.Background(), UpdateWarehouseBinsCommand{
		WarehouseCode: "JHB-CENTRAL",
		TotalBins:     1000,
		UsedBins:      920,
		UpdatedBy:     "tino",
	})
	require.NoError(t, err)
	assert.Equal(t, 920, snapshot.UsedBins)
	assert.Equal(t, domain.CapacityLevelCritical, snapshot.Level)
	assert.NotNil(t, repo.lastSaved)
}

func TestUpdateWarehouseBinsNotFound(t *testing.T) {
	service := NewWarehouseApplicationService(&mockWarehouseRepo{}, &mockReadModel{}, testLogger())

	_, err := service.UpdateWarehouseBins(context.Background(), UpdateWarehouseBinsCommand{
		WarehouseCode: "PTA-NORTH",
		TotalBins:     100,
	})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeNotFound, appErr.Code)
}

func TestUpdateWarehouseBinsValidationError(t *testing.T) {
	warehouse := createWarehouse(t, "JHB-CENTRAL", 1000, 347)
	repo := &mockWarehouseRepo{
		findByCodeFn: func(ctx context.Context, code string) (*domain.WarehouseCapacity, error) {
			return warehouse, nil
		},
	}
	service := NewWarehouseApplicationService(repo, &mockReadModel{}, testLogger())

	_, err := service.UpdateWarehouseBins(context.Background(), UpdateWarehouseBinsCommand{
		WarehouseCode: "JHB-CENTRAL",
		TotalBins:     1000,
		UsedBins:      1400,
	})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidationError, appErr.Code)
	assert.Equal(t, 347, warehouse.UsedBins)
}
