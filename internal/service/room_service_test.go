package service

import (
	"context"
	"testing"
	"time"

	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room := f.room(t, 112, models.BlockA, models.RoomTypeTriple)
	assert.Equal(t, 3, room.Beds, "beds default from type")
	assert.Equal(t, models.RoomVacant, room.Status)
	assert.Equal(t, models.DeriveFloor(112, models.BlockA), room.Floor)
	assert.NotNil(t, room.Occupants)

	_, err := f.rooms.CreateRoom(ctx, CreateRoomInput{Number: 112, Block: models.BlockA, Type: models.RoomTypeSingle}, operator)
	assert.ErrorIs(t, err, models.ErrDuplicateRoom)

	_, err = f.rooms.CreateRoom(ctx, CreateRoomInput{Number: 5, Block: models.BlockB, Type: models.RoomTypeDouble, Status: models.RoomOccupied}, operator)
	assert.ErrorIs(t, err, models.ErrInvalidStatus, "a new room has no occupants")

	_, err = f.rooms.CreateRoom(ctx, CreateRoomInput{Number: 6, Block: models.BlockB, Type: "Penthouse"}, operator)
	assert.ErrorIs(t, err, models.ErrInvalidRoom)

	beds := 1
	caretaker, err := f.rooms.CreateRoom(ctx, CreateRoomInput{Number: 7, Block: models.BlockB, Type: models.RoomTypeCaretaker, Beds: &beds, Notes: "  warden  "}, operator)
	require.NoError(t, err)
	assert.Equal(t, 1, caretaker.Beds)
	assert.Equal(t, "warden", caretaker.Notes)
}

func TestUpdateRoomStatusRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a12 := key(12, models.BlockA)
	f.room(t, 12, models.BlockA, models.RoomTypeDouble)
	f.allocate(t, "Asha", a12, 1)

	vacant := models.RoomVacant
	_, err := f.rooms.UpdateRoom(ctx, a12, UpdateRoomInput{Status: &vacant}, operator)
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	beds := 0
	_, err = f.rooms.UpdateRoom(ctx, a12, UpdateRoomInput{Beds: &beds}, operator)
	assert.ErrorIs(t, err, models.ErrInvalidRoom, "capacity cannot drop below occupants")

	for _, status := range []models.RoomStatus{models.RoomMaintenance, models.RoomBlocked, models.RoomStore} {
		_, err = f.rooms.UpdateRoom(ctx, a12, UpdateRoomInput{Status: &status}, operator)
		assert.ErrorIs(t, err, models.ErrInvalidStatus, "%s while occupied", status)
	}
	room := f.getRoom(t, a12)
	assert.Equal(t, models.RoomOccupied, room.Status)
	assert.Len(t, room.Occupants, 1)

	notes := "window latch loose"
	room, err = f.rooms.UpdateRoom(ctx, a12, UpdateRoomInput{Notes: &notes}, operator)
	require.NoError(t, err)
	assert.Equal(t, models.RoomOccupied, room.Status)

	a13 := key(13, models.BlockA)
	f.room(t, 13, models.BlockA, models.RoomTypeDouble)
	occupied := models.RoomOccupied
	_, err = f.rooms.UpdateRoom(ctx, a13, UpdateRoomInput{Status: &occupied}, operator)
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	maintenance := models.RoomMaintenance
	room, err = f.rooms.UpdateRoom(ctx, a13, UpdateRoomInput{Status: &maintenance}, operator)
	require.NoError(t, err)
	assert.Equal(t, models.RoomMaintenance, room.Status)

	_, err = f.allocation.Allocate(ctx, AllocateInput{Trainee: traineeInput("Ravi"), Room: a13, BedNumber: 1}, operator)
	assert.ErrorIs(t, err, models.ErrRoomUnavailable)

	_, err = f.rooms.UpdateRoom(ctx, key(99, models.BlockC), UpdateRoomInput{Status: &vacant}, operator)
	assert.ErrorIs(t, err, models.ErrRoomNotFound)
}

func TestDeleteRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.room(t, 12, models.BlockA, models.RoomTypeDouble)
	f.room(t, 13, models.BlockA, models.RoomTypeDouble)
	f.allocate(t, "Asha", key(12, models.BlockA), 1)

	assert.ErrorIs(t, f.rooms.DeleteRoom(ctx, key(12, models.BlockA), operator), models.ErrRoomOccupied)
	require.NoError(t, f.rooms.DeleteRoom(ctx, key(13, models.BlockA), operator))
	_, err := f.rooms.GetRoom(ctx, key(13, models.BlockA))
	assert.ErrorIs(t, err, models.ErrRoomNotFound)
}

func TestAvailableRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.room(t, 12, models.BlockA, models.RoomTypeDouble)
	f.room(t, 13, models.BlockA, models.RoomTypeQuad)
	f.room(t, 14, models.BlockA, models.RoomTypeSingle)
	f.room(t, 15, models.BlockA, models.RoomTypeStore)
	f.room(t, 3, models.BlockB, models.RoomTypeDouble)
	f.allocate(t, "Asha", key(12, models.BlockA), 1)
	f.allocate(t, "Ravi", key(14, models.BlockA), 1)

	rooms, err := f.rooms.Available(ctx, models.BlockA, 1)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, 12, rooms[0].Number)
	assert.Equal(t, 13, rooms[1].Number)

	rooms, err = f.rooms.Available(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, key(13, models.BlockA), rooms[0].Key())
	assert.Equal(t, key(3, models.BlockB), rooms[1].Key())

	listed, err := f.rooms.GetRooms(ctx, repository.RoomFilter{Status: models.RoomOccupied})
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestAddMaintenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	f.rooms.now = func() time.Time { return now }
	f.room(t, 12, models.BlockA, models.RoomTypeDouble)

	room, err := f.rooms.AddMaintenance(ctx, key(12, models.BlockA), MaintenanceInput{
		Description: "Fixed ceiling fan",
		Type:        models.MaintenanceRepair,
		Cost:        decimal.NewFromInt(450),
	}, operator)
	require.NoError(t, err)
	require.Len(t, room.MaintenanceHistory, 1)
	record := room.MaintenanceHistory[0]
	assert.Equal(t, "Fixed ceiling fan", record.Description)
	assert.True(t, record.Date.Equal(now))
	assert.Equal(t, operator, record.PerformedBy)

	_, err = f.rooms.AddMaintenance(ctx, key(12, models.BlockA), MaintenanceInput{
		Description: "Refund", Type: models.MaintenanceRepair, Cost: decimal.NewFromInt(-1),
	}, operator)
	assert.ErrorIs(t, err, models.ErrInvalidRoom)

	_, err = f.rooms.AddMaintenance(ctx, key(40, models.BlockB), MaintenanceInput{Description: "Paint", Type: models.MaintenanceUpgrade}, operator)
	assert.ErrorIs(t, err, models.ErrRoomNotFound)
}
