package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type RoomService struct {
	store repository.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewRoomService(store repository.Store, log *zap.Logger) *RoomService {
	return &RoomService{
		store: store,
		log:   log.Named("rooms"),
		now:   time.Now,
	}
}

type CreateRoomInput struct {
	Number int
	Block  models.Block
	Type   models.RoomType
	Beds   *int
	Status models.RoomStatus
	Notes  string
}

// UpdateRoomInput carries the fields to change; nil means unchanged.
type UpdateRoomInput struct {
	Type   *models.RoomType
	Status *models.RoomStatus
	Beds   *int
	Notes  *string
}

type MaintenanceInput struct {
	Description string
	Type        models.MaintenanceType
	Cost        decimal.Decimal
	Date        *time.Time
}

// GetRooms retrieves rooms with their occupants
func (s *RoomService) GetRooms(ctx context.Context, filter repository.RoomFilter) ([]models.Room, error) {
	return s.store.Rooms().List(ctx, filter)
}

// GetRoom retrieves one room with occupants and maintenance history
func (s *RoomService) GetRoom(ctx context.Context, key models.RoomKey) (*models.Room, error) {
	return s.store.Rooms().GetByKey(ctx, key)
}

// Available lists rooms that can take a new trainee and have at least
// minBeds free beds.
func (s *RoomService) Available(ctx context.Context, block models.Block, minBeds int) ([]models.Room, error) {
	rooms, err := s.store.Rooms().List(ctx, repository.RoomFilter{Block: block})
	if err != nil {
		return nil, err
	}
	if minBeds < 1 {
		minBeds = 1
	}

	available := []models.Room{}
	for _, room := range rooms {
		if room.IsAvailable() && room.AvailableBeds() >= minBeds {
			available = append(available, room)
		}
	}
	return available, nil
}

// CreateRoom creates a new room; floor is derived and beds default from type
func (s *RoomService) CreateRoom(ctx context.Context, in CreateRoomInput, performedBy uint) (*models.Room, error) {
	room := &models.Room{
		Number: in.Number,
		Block:  in.Block,
		Type:   in.Type,
		Status: in.Status,
		Beds:   in.Type.DefaultBeds(),
		Floor:  models.DeriveFloor(in.Number, in.Block),
		Notes:  strings.TrimSpace(in.Notes),
	}
	if in.Beds != nil {
		room.Beds = *in.Beds
	}
	if room.Status == "" {
		room.Status = models.RoomVacant
	}
	if room.Status == models.RoomOccupied {
		return nil, models.ErrInvalidStatus
	}
	if err := room.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Rooms().Create(ctx, room); err != nil {
		return nil, err
	}
	room.Occupants = []models.Occupant{}

	writeAudit(ctx, s.store, s.log, performedBy, "room_create",
		fmt.Sprintf("Created room %s (%s, %d beds)", room.Key(), room.Type, room.Beds), nil)
	return room, nil
}

// UpdateRoom changes type, status, capacity or notes. Capacity cannot drop
// below the current occupants and status must agree with occupancy.
func (s *RoomService) UpdateRoom(ctx context.Context, key models.RoomKey, in UpdateRoomInput, performedBy uint) (*models.Room, error) {
	var room *models.Room
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		room, err = tx.Rooms().GetByKeyForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if in.Type != nil {
			room.Type = *in.Type
		}
		if in.Beds != nil {
			room.Beds = *in.Beds
		}
		if in.Notes != nil {
			room.Notes = strings.TrimSpace(*in.Notes)
		}
		if in.Status != nil {
			room.Status = *in.Status
		}

		// A room is occupied exactly when it has occupants; it has to be
		// emptied before it can be blocked or taken for maintenance.
		if (room.Status == models.RoomOccupied) != (len(room.Occupants) > 0) {
			return models.ErrInvalidStatus
		}
		if err := room.Validate(); err != nil {
			return err
		}
		return tx.Rooms().Update(ctx, room)
	})
	if err != nil {
		return nil, err
	}

	writeAudit(ctx, s.store, s.log, performedBy, "room_update",
		fmt.Sprintf("Updated room %s (status %s, %d beds)", key, room.Status, room.Beds), nil)
	return room, nil
}

// DeleteRoom removes a room that has no occupants
func (s *RoomService) DeleteRoom(ctx context.Context, key models.RoomKey, performedBy uint) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		room, err := tx.Rooms().GetByKeyForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if len(room.Occupants) > 0 {
			return models.ErrRoomOccupied
		}
		return tx.Rooms().Delete(ctx, room.ID)
	})
	if err != nil {
		return err
	}

	writeAudit(ctx, s.store, s.log, performedBy, "room_delete", fmt.Sprintf("Deleted room %s", key), nil)
	return nil
}

// AddMaintenance records maintenance work on a room
func (s *RoomService) AddMaintenance(ctx context.Context, key models.RoomKey, in MaintenanceInput, performedBy uint) (*models.Room, error) {
	if in.Cost.IsNegative() {
		return nil, fmt.Errorf("%w: cost cannot be negative", models.ErrInvalidRoom)
	}

	date := s.now()
	if in.Date != nil {
		date = *in.Date
	}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		room, err := tx.Rooms().GetByKeyForUpdate(ctx, key)
		if err != nil {
			return err
		}
		return tx.Rooms().AddMaintenance(ctx, &models.MaintenanceRecord{
			RoomID:      room.ID,
			Date:        date,
			Description: strings.TrimSpace(in.Description),
			Type:        in.Type,
			Cost:        in.Cost,
			PerformedBy: performedBy,
		})
	})
	if err != nil {
		return nil, err
	}

	writeAudit(ctx, s.store, s.log, performedBy, "room_maintenance",
		fmt.Sprintf("Recorded %s maintenance on room %s", in.Type, key),
		map[string]interface{}{"cost": in.Cost.StringFixed(2)})
	return s.store.Rooms().GetByKey(ctx, key)
}
