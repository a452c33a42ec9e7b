package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestWarehouse(t *testing.T) *WarehouseCapacity {
	t.Helper()
	warehouse, err := NewWarehouseCapacity("JHB-CENTRAL", "Johannesburg Central", 1000, 347, "tino")
	require.NoError(t, err)
	warehouse.ClearDomainEvents()
	return warehouse
}

func TestNewWarehouseCapacity(t *testing.T) {
	t.Run("creates record with normalized code", func(t *testing.T) {
		warehouse, err := NewWarehouseCapacity("  cpt-dockside ", "Cape Town Dockside", 600, 0, "tino")

		require.NoError(t, err)
		assert.Equal(t, "CPT-DOCKSIDE", warehouse.WarehouseCode)
		assert.Equal(t, 600, warehouse.TotalBins)
		assert.Equal(t, 0, warehouse.UsedBins)
		assert.False(t, warehouse.CreatedAt.IsZero())

		events := warehouse.GetDomainEvents()
		require.Len(t, events, 1)
		event, ok := events[0].(WarehouseCapacityUpdatedEvent)
		require.True(t, ok)
		assert.Equal(t, "imports.warehouse.capacity-updated", event.EventType())
		assert.Equal(t, "CPT-DOCKSIDE", event.WarehouseCode)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		tests := []struct {
			name        string
			code        string
			totalBins   int
			usedBins    int
			expectError error
		}{
			{"empty code", "  ", 100, 0, ErrWarehouseCodeRequired},
			{"zero total bins", "DBN-BAYHEAD", 0, 0, ErrInvalidTotalBins},
			{"negative total bins", "DBN-BAYHEAD", -5, 0, ErrInvalidTotalBins},
			{"negative used bins", "DBN-BAYHEAD", 100, -1, ErrUsedBinsOutOfRange},
			{"used bins above total", "DBN-BAYHEAD", 100, 101, ErrUsedBinsOutOfRange},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				warehouse, err := NewWarehouseCapacity(tt.code, "Durban Bayhead", tt.totalBins, tt.usedBins, "tino")

				assert.Nil(t, warehouse)
				assert.ErrorIs(t, err, tt.expectError)
			})
		}
	})
}

func TestWarehouseCapacity_UpdateBins(t *testing.T) {
	t.Run("updates counts and emits event", func(t *testing.T) {
		warehouse := createTestWarehouse(t)

		err := warehouse.UpdateBins(1200, 800, "lindiwe")

		require.NoError(t, err)
		assert.Equal(t, 1200, warehouse.TotalBins)
		assert.Equal(t, 800, warehouse.UsedBins)
		assert.Equal(t, "lindiwe", warehouse.UpdatedBy)

		events := warehouse.GetDomainEvents()
		require.Len(t, events, 1)
		event, ok := events[0].(WarehouseCapacityUpdatedEvent)
		require.True(t, ok)
		assert.Equal(t, 1200, event.TotalBins)
		assert.InDelta(t, 66.7, event.UtilizationPct, 0.01)
	})

	t.Run("rejects out of range counts", func(t *testing.T) {
		warehouse := createTestWarehouse(t)

		err := warehouse.UpdateBins(500, 501, "lindiwe")

		assert.ErrorIs(t, err, ErrUsedBinsOutOfRange)
		assert.Equal(t, 1000, warehouse.TotalBins)
		assert.Equal(t, 347, warehouse.UsedBins)
	})
}

func TestWarehouseCapacity_UtilizationPct(t *testing.T) {
	tests := []struct {
		name      string
		totalBins int
		usedBins  int
		expected  float64
	}{
		{"exact percentage", 1000, 347, 34.7},
		{"rounds to one decimal", 3, 1, 33.3},
		{"rounds half up", 3, 2, 66.7},
		{"empty warehouse", 500, 0, 0},
		{"full warehouse", 500, 500, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warehouse, err := NewWarehouseCapacity("JHB-CENTRAL", "Johannesburg Central", tt.totalBins, tt.usedBins, "")
			require.NoError(t, err)

			assert.InDelta(t, tt.expected, warehouse.UtilizationPct(), 0.001)
		})
	}
}

func TestCapacityLevel(t *testing.T) {
	tests := []struct {
		utilization float64
		expected    string
	}{
		{0, CapacityLevelOK},
		{74.9, CapacityLevelOK},
		{75, CapacityLevelWarning},
		{82.5, CapacityLevelWarning},
		{90, CapacityLevelWarning},
		{90.1, CapacityLevelCritical},
		{100, CapacityLevelCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CapacityLevel(tt.utilization), "utilization %.1f", tt.utilization)
	}
}

func TestWarehouseCapacity_Snapshot(t *testing.T) {
	t.Run("combines stored counts with projected pallets", func(t *testing.T) {
		warehouse, err := NewWarehouseCapacity("JHB-CENTRAL", "Johannesburg Central", 1000, 600, "tino")
		require.NoError(t, err)

		snapshot := warehouse.Snapshot(200)

		assert.Equal(t, "JHB-CENTRAL", snapshot.WarehouseCode)
		assert.Equal(t, 200, snapshot.ProjectedBins)
		assert.InDelta(t, 60.0, snapshot.UtilizationPct, 0.001)
		assert.InDelta(t, 80.0, snapshot.ProjectedPct, 0.001)
		assert.Equal(t, CapacityLevelOK, snapshot.Level)
	})

	t.Run("projected percentage capped at 100", func(t *testing.T) {
		warehouse, err := NewWarehouseCapacity("CPT-DOCKSIDE", "Cape Town Dockside", 100, 90, "tino")
		require.NoError(t, err)

		snapshot := warehouse.Snapshot(30)

		assert.InDelta(t, 100.0, snapshot.ProjectedPct, 0.001)
		assert.Equal(t, CapacityLevelWarning, snapshot.Level)
	})

	t.Run("level follows utilization not projection", func(t *testing.T) {
		warehouse, err := NewWarehouseCapacity("DBN-BAYHEAD", "Durban Bayhead", 100, 95, "tino")
		require.NoError(t, err)

		snapshot := warehouse.Snapshot(0)

		assert.Equal(t, CapacityLevelCritical, snapshot.Level)
	})
}
