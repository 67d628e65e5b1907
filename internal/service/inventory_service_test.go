package service

import (
	"context"
	"testing"

	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectAllocateInsufficientQuantity(t *testing.T) {
	eachFixture(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.room(t, 12, models.BlockA, models.RoomTypeDouble)
		blanket := f.item(t, "Blanket", models.CategoryBlanket, 3)
		asha := f.allocate(t, "Asha", key(12, models.BlockA), 1)

		_, err := f.inventory.AllocateToTrainee(ctx, DirectAllocation{
			ItemID: blanket.ID, Trainee: models.TraineeRef(asha.Trainee.TraineeCode), Quantity: 4,
		}, operator)
		assert.ErrorIs(t, err, models.ErrInsufficientQuantity)

		item, err := f.inventory.Get(ctx, blanket.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, item.AvailableQuantity)
		assert.Equal(t, 0, item.InUseQuantity)
		assert.Empty(t, item.Transactions, "failed allocation writes no ledger entry")
		assert.Empty(t, f.getTrainee(t, asha.Trainee.TraineeCode).Amenities)
	})
}

func TestDirectAllocateAndReturn(t *testing.T) {
	eachFixture(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.room(t, 12, models.BlockA, models.RoomTypeDouble)
		towel := f.item(t, "Towel", models.CategoryLinen, 10)
		asha := f.allocate(t, "Asha", key(12, models.BlockA), 1)
		ref := models.TraineeRef(asha.Trainee.TraineeCode)

		res, err := f.inventory.AllocateToTrainee(ctx, DirectAllocation{ItemID: towel.ID, Trainee: ref, Quantity: 2}, operator)
		require.NoError(t, err)
		assert.Equal(t, 8, res.Item.AvailableQuantity)
		require.Len(t, res.Item.Transactions, 1)
		assert.NotZero(t, res.Item.Transactions[0].ID, "returned ledger entry is the stored one")
		assert.Equal(t, models.TxAllocation, res.Item.Transactions[0].Type)
		require.Len(t, res.Trainee.Amenities, 1)
		assert.Equal(t, "Towel", res.Trainee.Amenities[0].Name)

		_, err = f.inventory.AllocateToTrainee(ctx, DirectAllocation{ItemID: towel.ID, Trainee: ref, Quantity: 1}, operator)
		require.NoError(t, err)

		trainee := f.getTrainee(t, asha.Trainee.TraineeCode)
		require.Len(t, trainee.Amenities, 1, "allocations of the same item merge into one line")
		assert.Equal(t, 3, trainee.Amenities[0].Quantity)
		assert.True(t, trainee.Amenities[0].Allocated)

		item, err := f.inventory.Get(ctx, towel.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, item.AvailableQuantity)
		assert.Equal(t, 3, item.InUseQuantity)
		require.Len(t, item.Transactions, 2)
		assert.Equal(t, asha.Trainee.TraineeCode, item.Transactions[0].TraineeCode)
		require.NotNil(t, item.Transactions[0].RoomNumber)
		assert.Equal(t, 12, *item.Transactions[0].RoomNumber, "room defaults to the trainee's room")

		_, err = f.inventory.ReturnFromTrainee(ctx, DirectReturn{ItemID: towel.ID, Trainee: ref, Quantity: 4}, operator)
		assert.ErrorIs(t, err, models.ErrExceedsInUse)

		res, err = f.inventory.ReturnFromTrainee(ctx, DirectReturn{ItemID: towel.ID, Trainee: ref, Quantity: 1, Condition: models.ConditionDamaged}, operator)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Item.DamagedQuantity)
		assert.Equal(t, 2, res.Item.InUseQuantity)
		require.Len(t, res.Trainee.Amenities, 1)
		assert.Equal(t, 2, res.Trainee.Amenities[0].Quantity)

		res, err = f.inventory.ReturnFromTrainee(ctx, DirectReturn{ItemID: towel.ID, Trainee: ref, Quantity: 2}, operator)
		require.NoError(t, err)
		assert.Equal(t, 9, res.Item.AvailableQuantity, "condition defaults to good")
		assert.Equal(t, 0, res.Item.InUseQuantity)
		assert.Empty(t, res.Trainee.Amenities)
		assert.Empty(t, f.getTrainee(t, asha.Trainee.TraineeCode).Amenities, "fully returned line is removed")
	})
}

func TestDirectAllocateRequiresActiveTrainee(t *testing.T) {
	eachFixture(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.room(t, 12, models.BlockA, models.RoomTypeDouble)
		towel := f.item(t, "Towel", models.CategoryLinen, 10)
		asha := f.allocate(t, "Asha", key(12, models.BlockA), 1)
		ref := models.TraineeRef(asha.Trainee.TraineeCode)
		_, err := f.allocation.Checkout(ctx, ref, operator)
		require.NoError(t, err)

		_, err = f.inventory.AllocateToTrainee(ctx, DirectAllocation{ItemID: towel.ID, Trainee: ref, Quantity: 1}, operator)
		assert.ErrorIs(t, err, models.ErrInvalidState)

		_, err = f.inventory.AllocateToTrainee(ctx, DirectAllocation{ItemID: 404, Trainee: ref, Quantity: 1}, operator)
		assert.ErrorIs(t, err, models.ErrItemNotFound)

		_, err = f.inventory.AllocateToTrainee(ctx, DirectAllocation{ItemID: towel.ID, Trainee: "ID404", Quantity: 1}, operator)
		assert.ErrorIs(t, err, models.ErrTraineeNotFound)
	})
}

func TestReturnWithoutHeldLine(t *testing.T) {
	eachFixture(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.room(t, 12, models.BlockA, models.RoomTypeDouble)
		towel := f.item(t, "Towel", models.CategoryLinen, 10)
		asha := f.allocate(t, "Asha", key(12, models.BlockA), 1, named("Towel", 1))
		ravi := f.allocate(t, "Ravi", key(12, models.BlockA), 2)

		_, err := f.inventory.ReturnFromTrainee(ctx, DirectReturn{ItemID: towel.ID, Trainee: models.TraineeRef(ravi.Trainee.TraineeCode), Quantity: 1}, operator)
		assert.ErrorIs(t, err, models.ErrExceedsInUse, "the item is in use, but not by this trainee")

		_, err = f.inventory.ReturnFromTrainee(ctx, DirectReturn{ItemID: towel.ID, Trainee: models.TraineeRef(asha.Trainee.TraineeCode), Quantity: 1, Condition: "lost"}, operator)
		assert.ErrorIs(t, err, models.ErrInvalidCondition)
		assert.Equal(t, 1, f.getItem(t, towel.ID).InUseQuantity)
	})
}

func TestInventoryItemLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.room(t, 12, models.BlockA, models.RoomTypeDouble)
	chair := f.item(t, "Chair", models.CategoryFurniture, 5)
	assert.Equal(t, models.UnitPiece, chair.Unit)
	assert.Equal(t, 5, chair.AvailableQuantity)

	available := 6
	_, err := f.inventory.Create(ctx, CreateItemInput{Name: "Table", Category: models.CategoryFurniture, TotalQuantity: 5, AvailableQuantity: &available}, operator)
	assert.ErrorIs(t, err, models.ErrInventoryInvariant)

	total := 2
	asha := f.allocate(t, "Asha", key(12, models.BlockA), 1, named("Chair", 3))
	_, err = f.inventory.Update(ctx, chair.ID, UpdateItemInput{TotalQuantity: &total}, operator)
	assert.ErrorIs(t, err, models.ErrInventoryInvariant, "total cannot drop below the counters")

	assert.ErrorIs(t, f.inventory.Delete(ctx, chair.ID, operator), models.ErrItemInUse)

	name := "Wooden Chair"
	cost := decimal.RequireFromString("899.50")
	updated, err := f.inventory.Update(ctx, chair.ID, UpdateItemInput{Name: &name, CostPerUnit: &cost}, operator)
	require.NoError(t, err)
	assert.Equal(t, "Wooden Chair", updated.Name)
	assert.True(t, updated.StockValue().Equal(decimal.RequireFromString("4497.50")))

	_, err = f.inventory.ReturnFromTrainee(ctx, DirectReturn{
		ItemID: chair.ID, Trainee: models.TraineeRef(asha.Trainee.TraineeCode), Quantity: 3, Condition: models.ConditionDamaged,
	}, operator)
	require.NoError(t, err)

	_, err = f.inventory.Dispose(ctx, chair.ID, 4, operator)
	assert.ErrorIs(t, err, models.ErrExceedsDamaged)
	item, err := f.inventory.Dispose(ctx, chair.ID, 3, operator)
	require.NoError(t, err)
	assert.Equal(t, 2, item.TotalQuantity)
	assert.Equal(t, 0, item.DamagedQuantity)

	item, err = f.inventory.Restock(ctx, chair.ID, 8, operator)
	require.NoError(t, err)
	assert.Equal(t, 10, item.TotalQuantity)
	assert.Equal(t, 10, item.AvailableQuantity)
	assert.NotNil(t, item.LastRestocked)
	require.Len(t, item.Transactions, 1)
	assert.NotZero(t, item.Transactions[0].ID)
	assert.Equal(t, models.TxPurchase, item.Transactions[0].Type)

	_, err = f.inventory.Restock(ctx, chair.ID, 0, operator)
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)

	require.NoError(t, f.inventory.Delete(ctx, chair.ID, operator))
	_, err = f.inventory.Get(ctx, chair.ID)
	assert.ErrorIs(t, err, models.ErrItemNotFound)
}

func TestInventoryReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.room(t, 12, models.BlockA, models.RoomTypeDouble)
	f.item(t, "Pillow", models.CategoryLinen, 10)
	f.item(t, "Bedsheet", models.CategoryLinen, 1)
	f.item(t, "Fan", models.CategoryElectrical, 4)
	f.allocate(t, "Asha", key(12, models.BlockA), 1, named("Pillow", 5))

	low, err := f.inventory.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Bedsheet", low[0].Name)

	items, page, err := f.inventory.List(ctx, repository.InventoryFilter{Category: models.CategoryLinen})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 2, page.TotalItems)

	summary, err := f.inventory.CategorySummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, models.CategoryElectrical, summary[0].Category)
	linen := summary[1]
	assert.Equal(t, models.CategoryLinen, linen.Category)
	assert.Equal(t, 2, linen.TotalItems)
	assert.Equal(t, 11, linen.TotalQuantity)
	assert.Equal(t, 5, linen.InUseQuantity)
	assert.Equal(t, 1, linen.LowStockItems)
	assert.InDelta(t, 45.45, linen.UtilizationPercentage, 0.001)
	assert.True(t, linen.StockValue.Equal(decimal.NewFromInt(1650)))

	staying, err := f.inventory.StayingWithAmenities(ctx, models.BlockA, "")
	require.NoError(t, err)
	require.Len(t, staying, 1)
	assert.Len(t, staying[0].Amenities, 1)
}
