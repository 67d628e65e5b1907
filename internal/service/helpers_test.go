package service

import (
	"context"
	"testing"
	"time"

	"hostel-management-backend/internal/database"
	"hostel-management-backend/internal/metrics"
	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const operator uint = 7

var (
	checkIn  = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	checkOut = time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	store      repository.Store
	metrics    *metrics.Metrics
	allocation *AllocationService
	inventory  *InventoryService
	rooms      *RoomService
	trainees   *TraineeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(repository.NewMemoryStore())
}

// eachFixture runs fn once on the in-memory store and once on gorm over an
// in-memory sqlite database.
func eachFixture(t *testing.T, fn func(t *testing.T, f *fixture)) {
	t.Run("memory", func(t *testing.T) { fn(t, newFixtureOn(repository.NewMemoryStore())) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newFixtureOn(newSQLiteStore(t))) })
}

func newSQLiteStore(t *testing.T) *repository.GormStore {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return repository.NewGormStore(db)
}

func newFixtureOn(store repository.Store) *fixture {
	log := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	return &fixture{
		store:      store,
		metrics:    m,
		allocation: NewAllocationService(store, log, m),
		inventory:  NewInventoryService(store, log, m),
		rooms:      NewRoomService(store, log),
		trainees:   NewTraineeService(store, log),
	}
}

func (f *fixture) room(t *testing.T, number int, block models.Block, typ models.RoomType) *models.Room {
	t.Helper()
	room, err := f.rooms.CreateRoom(context.Background(), CreateRoomInput{Number: number, Block: block, Type: typ}, operator)
	require.NoError(t, err)
	return room
}

func (f *fixture) item(t *testing.T, name string, category models.ItemCategory, total int) *models.InventoryItem {
	t.Helper()
	item, err := f.inventory.Create(context.Background(), CreateItemInput{
		Name:             name,
		Category:         category,
		TotalQuantity:    total,
		MinimumThreshold: 1,
		CostPerUnit:      decimal.NewFromInt(150),
	}, operator)
	require.NoError(t, err)
	return item
}

func traineeInput(name string, amenities ...AmenityRequest) TraineeInput {
	return TraineeInput{
		Name:                 name,
		Designation:          models.DesignationJE,
		Division:             "Electrical",
		Mobile:               "9876543210",
		CheckInDate:          checkIn,
		ExpectedCheckOutDate: checkOut,
		Amenities:            amenities,
	}
}

func (f *fixture) allocate(t *testing.T, name string, key models.RoomKey, bed int, amenities ...AmenityRequest) *AllocateResult {
	t.Helper()
	res, err := f.allocation.Allocate(context.Background(), AllocateInput{
		Trainee:   traineeInput(name, amenities...),
		Room:      key,
		BedNumber: bed,
	}, operator)
	require.NoError(t, err)
	return res
}

func (f *fixture) getRoom(t *testing.T, key models.RoomKey) *models.Room {
	t.Helper()
	room, err := f.store.Rooms().GetByKey(context.Background(), key)
	require.NoError(t, err)
	return room
}

func (f *fixture) getItem(t *testing.T, id uint) *models.InventoryItem {
	t.Helper()
	item, err := f.store.Inventory().GetByID(context.Background(), id, false)
	require.NoError(t, err)
	return item
}

func (f *fixture) getTrainee(t *testing.T, code models.TraineeCode) *models.Trainee {
	t.Helper()
	trainee, err := f.store.Trainees().GetByRef(context.Background(), models.TraineeRef(code))
	require.NoError(t, err)
	return trainee
}

func key(number int, block models.Block) models.RoomKey {
	return models.RoomKey{Number: number, Block: block}
}

func named(name string, quantity int) AmenityRequest {
	return AmenityRequest{Name: name, Quantity: quantity}
}

func byID(id uint, quantity int) AmenityRequest {
	return AmenityRequest{ItemID: &id, Quantity: quantity}
}
