package service

import (
	"context"
	"fmt"
	"time"

	"hostel-management-backend/internal/metrics"
	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Integrity checks reported by the worker.
const (
	CheckCapacity       = "capacity"
	CheckDuplicateBed   = "duplicate_bed"
	CheckRoomStatus     = "room_status"
	CheckBackReference  = "back_reference"
	CheckOrphanOccupant = "orphan_occupant"
	CheckCheckedOutRoom = "checked_out_room"
	CheckInventory      = "inventory_counters"
)

var integrityChecks = []string{
	CheckCapacity, CheckDuplicateBed, CheckRoomStatus, CheckBackReference,
	CheckOrphanOccupant, CheckCheckedOutRoom, CheckInventory,
}

type Violation struct {
	Check   string `json:"check"`
	Subject string `json:"subject"`
	Detail  string `json:"detail"`
}

// ScanReport is the outcome of one worker pass.
type ScanReport struct {
	Overdue    []models.Trainee       `json:"overdue"`
	LowStock   []models.InventoryItem `json:"lowStock"`
	Violations []Violation            `json:"violations"`
	ScannedAt  time.Time              `json:"scannedAt"`
}

// WorkerService periodically looks for overdue stays, low stock and broken
// room/trainee/inventory invariants. It only reports; nothing is repaired.
type WorkerService struct {
	store    repository.Store
	log      *zap.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time
}

func NewWorkerService(store repository.Store, log *zap.Logger, m *metrics.Metrics, interval time.Duration) *WorkerService {
	return &WorkerService{
		store:    store,
		log:      log.Named("worker"),
		metrics:  m,
		interval: interval,
		now:      time.Now,
	}
}

// Start runs a scan immediately and then on every tick until ctx is done
func (w *WorkerService) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Background worker started", zap.Duration("interval", w.interval))
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Background worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *WorkerService) tick(ctx context.Context) {
	report, err := w.Scan(ctx)
	if err != nil {
		w.log.Error("Worker scan failed", zap.Error(err))
		return
	}

	for _, t := range report.Overdue {
		w.log.Warn("Trainee overdue for check-out",
			zap.String("trainee_id", string(t.TraineeCode)),
			zap.Time("expected_check_out", t.ExpectedCheckOutDate),
		)
	}
	for _, item := range report.LowStock {
		w.log.Warn("Inventory item low on stock",
			zap.String("item", item.Name),
			zap.Int("available", item.AvailableQuantity),
			zap.Int("minimum", item.MinimumThreshold),
		)
	}
	for _, v := range report.Violations {
		w.log.Error("Integrity violation",
			zap.String("check", v.Check),
			zap.String("subject", v.Subject),
			zap.String("detail", v.Detail),
		)
	}
}

// Scan performs one pass and updates the worker gauges.
func (w *WorkerService) Scan(ctx context.Context) (*ScanReport, error) {
	var (
		rooms    []models.Room
		trainees []models.Trainee
		items    []models.InventoryItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rooms, err = w.store.Rooms().List(gctx, repository.RoomFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		trainees, _, err = w.store.Trainees().List(gctx, repository.TraineeFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		items, _, err = w.store.Inventory().List(gctx, repository.InventoryFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := w.now()
	report := &ScanReport{
		Overdue:    []models.Trainee{},
		LowStock:   []models.InventoryItem{},
		Violations: CheckIntegrity(rooms, trainees, items),
		ScannedAt:  now,
	}
	for _, t := range trainees {
		if t.Status.Active() && t.ExpectedCheckOutDate.Before(now) {
			report.Overdue = append(report.Overdue, t)
		}
	}
	for _, item := range items {
		if item.IsLowStock() {
			report.LowStock = append(report.LowStock, item)
		}
	}

	w.metrics.OverdueTrainees.Set(float64(len(report.Overdue)))
	w.metrics.LowStockItems.Set(float64(len(report.LowStock)))
	perCheck := map[string]int{}
	for _, v := range report.Violations {
		perCheck[v.Check]++
	}
	for _, check := range integrityChecks {
		w.metrics.IntegrityViolations.WithLabelValues(check).Set(float64(perCheck[check]))
	}
	return report, nil
}

// CheckIntegrity evaluates the cross-entity invariants over a snapshot of
// rooms, trainees and inventory items.
func CheckIntegrity(rooms []models.Room, trainees []models.Trainee, items []models.InventoryItem) []Violation {
	violations := []Violation{}
	add := func(check, subject, format string, args ...interface{}) {
		violations = append(violations, Violation{Check: check, Subject: subject, Detail: fmt.Sprintf(format, args...)})
	}

	byKey := make(map[models.RoomKey]*models.Room, len(rooms))
	for i := range rooms {
		room := &rooms[i]
		key := room.Key().String()
		byKey[room.Key()] = room

		if len(room.Occupants) > room.Beds {
			add(CheckCapacity, key, "%d occupants in %d beds", len(room.Occupants), room.Beds)
		}
		seen := map[int]bool{}
		for _, o := range room.Occupants {
			if seen[o.BedNumber] {
				add(CheckDuplicateBed, key, "bed %d held twice", o.BedNumber)
			}
			seen[o.BedNumber] = true
		}
		if (room.Status == models.RoomOccupied) != (len(room.Occupants) > 0) {
			add(CheckRoomStatus, key, "status %s with %d occupants", room.Status, len(room.Occupants))
		}
	}

	active := map[models.TraineeCode]bool{}
	for _, t := range trainees {
		code := string(t.TraineeCode)
		key, housed := t.Room()
		switch {
		case t.Status.Active():
			active[t.TraineeCode] = true
			if !housed {
				add(CheckBackReference, code, "%s trainee has no room", t.Status)
				continue
			}
			room, ok := byKey[key]
			if !ok {
				add(CheckBackReference, code, "room %s does not exist", key)
				continue
			}
			occ, ok := room.OccupantOf(t.TraineeCode)
			if !ok {
				add(CheckBackReference, code, "room %s has no occupant entry", key)
			} else if t.BedNumber == nil || occ.BedNumber != *t.BedNumber {
				add(CheckBackReference, code, "room %s lists bed %d", key, occ.BedNumber)
			}
		case t.Status == models.TraineeCheckedOut && (housed || t.BedNumber != nil):
			add(CheckCheckedOutRoom, code, "checked out trainee still references a room")
		}
	}

	for i := range rooms {
		for _, o := range rooms[i].Occupants {
			if !active[o.TraineeCode] {
				add(CheckOrphanOccupant, rooms[i].Key().String(), "bed %d held by inactive or unknown trainee %s", o.BedNumber, o.TraineeCode)
			}
		}
	}

	for i := range items {
		if err := items[i].Validate(); err != nil {
			add(CheckInventory, items[i].Name, "%v", err)
		}
	}
	return violations
}
