package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlanket() *InventoryItem {
	return &InventoryItem{
		ID:                1,
		Name:              "Blanket",
		Category:          CategoryBlanket,
		Unit:              UnitPiece,
		TotalQuantity:     10,
		AvailableQuantity: 10,
		MinimumThreshold:  2,
		CostPerUnit:       decimal.RequireFromString("450.50"),
	}
}

func TestInventoryAllocate(t *testing.T) {
	item := newBlanket()
	room := 12
	at := time.Now()

	tx, err := item.Allocate(3, "ID001", &room, 9, at)
	require.NoError(t, err)
	assert.Equal(t, 7, item.AvailableQuantity)
	assert.Equal(t, 3, item.InUseQuantity)
	assert.Equal(t, TxAllocation, tx.Type)
	assert.Equal(t, uint(1), tx.ItemID)
	assert.Equal(t, TraineeCode("ID001"), tx.TraineeCode)
	assert.Equal(t, uint(9), tx.PerformedBy)
	assert.Empty(t, item.Transactions, "entries are attached once persisted")
	require.NoError(t, item.Validate())
}

func TestInventoryAllocateInsufficient(t *testing.T) {
	item := newBlanket()
	item.AvailableQuantity = 0
	item.InUseQuantity = 10

	_, err := item.Allocate(1, "ID001", nil, 1, time.Now())
	assert.ErrorIs(t, err, ErrInsufficientQuantity)
	assert.Equal(t, 0, item.AvailableQuantity)
	assert.Equal(t, 10, item.InUseQuantity)
	assert.Empty(t, item.Transactions)

	_, err = item.Allocate(0, "ID001", nil, 1, time.Now())
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestInventoryReturnConditions(t *testing.T) {
	tests := []struct {
		condition ReturnCondition
		available int
		used      int
		damaged   int
	}{
		{ConditionGood, 8, 0, 0},
		{ConditionUsed, 6, 2, 0},
		{ConditionDamaged, 6, 0, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.condition), func(t *testing.T) {
			item := newBlanket()
			_, err := item.Allocate(4, "ID001", nil, 1, time.Now())
			require.NoError(t, err)

			tx, err := item.Return(2, "ID001", tt.condition, 1, time.Now())
			require.NoError(t, err)
			assert.Equal(t, TxReturn, tx.Type)
			assert.Equal(t, 2, item.InUseQuantity)
			assert.Equal(t, tt.available, item.AvailableQuantity)
			assert.Equal(t, tt.used, item.UsedQuantity)
			assert.Equal(t, tt.damaged, item.DamagedQuantity)
			require.NoError(t, item.Validate())
		})
	}
}

func TestInventoryReturnErrors(t *testing.T) {
	item := newBlanket()
	_, err := item.Return(1, "ID001", ConditionGood, 1, time.Now())
	assert.ErrorIs(t, err, ErrExceedsInUse)

	_, err = item.Return(1, "ID001", "lost", 1, time.Now())
	assert.ErrorIs(t, err, ErrInvalidCondition)
}

func TestInventoryRestockAndDispose(t *testing.T) {
	item := newBlanket()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := item.Restock(5, 1, at)
	require.NoError(t, err)
	assert.Equal(t, 15, item.TotalQuantity)
	assert.Equal(t, 15, item.AvailableQuantity)
	require.NotNil(t, item.LastRestocked)
	assert.Equal(t, at, *item.LastRestocked)

	_, err = item.Dispose(1, 1, at)
	assert.ErrorIs(t, err, ErrExceedsDamaged)

	_, err = item.Allocate(2, "ID001", nil, 1, at)
	require.NoError(t, err)
	_, err = item.Return(2, "ID001", ConditionDamaged, 1, at)
	require.NoError(t, err)

	tx, err := item.Dispose(2, 1, at)
	require.NoError(t, err)
	assert.Equal(t, TxDisposal, tx.Type)
	assert.Equal(t, 13, item.TotalQuantity)
	assert.Equal(t, 0, item.DamagedQuantity)
	require.NoError(t, item.Validate())
}

func TestInventoryValidate(t *testing.T) {
	item := newBlanket()
	item.InUseQuantity = 1
	assert.ErrorIs(t, item.Validate(), ErrInventoryInvariant)

	item = newBlanket()
	item.UsedQuantity = -1
	assert.ErrorIs(t, item.Validate(), ErrInventoryInvariant)

	item = newBlanket()
	item.CostPerUnit = decimal.NewFromInt(-1)
	assert.ErrorIs(t, item.Validate(), ErrInventoryInvariant)
}

func TestInventoryStockFigures(t *testing.T) {
	item := newBlanket()
	assert.True(t, item.StockValue().Equal(decimal.RequireFromString("4505")))
	assert.False(t, item.IsLowStock())

	item.AvailableQuantity = 2
	item.InUseQuantity = 8
	assert.True(t, item.IsLowStock())
}
