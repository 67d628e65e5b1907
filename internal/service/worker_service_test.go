package service

import (
	"context"
	"testing"
	"time"

	"hostel-management-backend/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

func TestCheckIntegrityHealthy(t *testing.T) {
	f := newFixture(t)
	seedHostel(t, f)
	worker := NewWorkerService(f.store, zap.NewNop(), f.metrics, time.Minute)

	report, err := worker.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Violations)
	for _, check := range integrityChecks {
		assert.Zero(t, testutil.ToFloat64(f.metrics.IntegrityViolations.WithLabelValues(check)), check)
	}
}

func TestCheckIntegrityViolations(t *testing.T) {
	a12 := models.Block("A")
	rooms := []models.Room{
		{
			Number: 12, Block: a12, Type: models.RoomTypeDouble, Status: models.RoomVacant, Beds: 1,
			Occupants: []models.Occupant{
				{TraineeCode: "ID001", BedNumber: 1},
				{TraineeCode: "ID009", BedNumber: 1},
			},
		},
		{Number: 13, Block: a12, Type: models.RoomTypeDouble, Status: models.RoomOccupied, Beds: 2},
	}
	trainees := []models.Trainee{
		{TraineeCode: "ID001", Status: models.TraineeStaying, RoomNumber: ptr(12), Block: &a12, BedNumber: ptr(2)},
		{TraineeCode: "ID002", Status: models.TraineeStaying},
		{TraineeCode: "ID003", Status: models.TraineeCheckedOut, RoomNumber: ptr(13), Block: &a12},
	}
	items := []models.InventoryItem{
		{Name: "Pillow", TotalQuantity: 2, AvailableQuantity: 2, InUseQuantity: 1},
	}

	found := map[string]int{}
	for _, v := range CheckIntegrity(rooms, trainees, items) {
		found[v.Check]++
	}
	assert.Equal(t, map[string]int{
		CheckCapacity:       1,
		CheckDuplicateBed:   1,
		CheckRoomStatus:     2,
		CheckBackReference:  2,
		CheckCheckedOutRoom: 1,
		CheckOrphanOccupant: 1,
		CheckInventory:      1,
	}, found)
}

func TestCheckIntegrityFlagsOccupiedRoomOutOfService(t *testing.T) {
	a := models.BlockA
	rooms := []models.Room{{
		Number: 4, Block: a, Type: models.RoomTypeDouble, Status: models.RoomMaintenance, Beds: 2,
		Occupants: []models.Occupant{{TraineeCode: "ID001", BedNumber: 1}},
	}}
	trainees := []models.Trainee{
		{TraineeCode: "ID001", Status: models.TraineeStaying, RoomNumber: ptr(4), Block: &a, BedNumber: ptr(1)},
	}

	violations := CheckIntegrity(rooms, trainees, nil)
	require.Len(t, violations, 1)
	assert.Equal(t, CheckRoomStatus, violations[0].Check)
	assert.Equal(t, "A-4", violations[0].Subject)
}

func TestWorkerScanReportsOverdueAndLowStock(t *testing.T) {
	f := newFixture(t)
	seedHostel(t, f)
	worker := NewWorkerService(f.store, zap.NewNop(), f.metrics, time.Minute)
	worker.now = func() time.Time { return time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC) }

	report, err := worker.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Overdue, 2)
	require.Len(t, report.LowStock, 1)
	assert.Equal(t, "Bucket", report.LowStock[0].Name)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.OverdueTrainees))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LowStockItems))
}

func TestWorkerStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	worker := NewWorkerService(f.store, zap.NewNop(), f.metrics, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
