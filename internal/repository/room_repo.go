package repository

import (
	"context"
	"errors"

	"hostel-management-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomRepo struct {
	db *gorm.DB
}

func NewRoomRepo(db *gorm.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

func orderByBed(db *gorm.DB) *gorm.DB {
	return db.Order("bed_number ASC")
}

func orderByDateDesc(db *gorm.DB) *gorm.DB {
	return db.Order("date DESC")
}

// List retrieves rooms ordered by block and number with their occupants
func (r *RoomRepo) List(ctx context.Context, filter RoomFilter) ([]models.Room, error) {
	q := r.db.WithContext(ctx).Preload("Occupants", orderByBed)
	if filter.Block != "" {
		q = q.Where("block = ?", filter.Block)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}

	var rooms []models.Room
	err := q.Order("block ASC, number ASC").Find(&rooms).Error
	return rooms, err
}

// GetByKey retrieves a room with occupants and maintenance history preloaded
func (r *RoomRepo) GetByKey(ctx context.Context, key models.RoomKey) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Preload("Occupants", orderByBed).
		Preload("MaintenanceHistory", orderByDateDesc).
		Where("number = ? AND block = ?", key.Number, key.Block).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// GetByKeyForUpdate retrieves a room under SELECT ... FOR UPDATE
func (r *RoomRepo) GetByKeyForUpdate(ctx context.Context, key models.RoomKey) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Occupants", orderByBed).
		Where("number = ? AND block = ?", key.Number, key.Block).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// Create creates a new room
func (r *RoomRepo) Create(ctx context.Context, room *models.Room) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(room).Error
	if isDuplicate(err) {
		return models.ErrDuplicateRoom
	}
	return err
}

// Update saves the room's own columns; occupants are written separately
func (r *RoomRepo) Update(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(room).Error
}

// Delete removes a room and its maintenance history
func (r *RoomRepo) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("room_id = ?", id).Delete(&models.MaintenanceRecord{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Room{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrRoomNotFound
	}
	return nil
}

// AddOccupant inserts a bed assignment; the unique (room_id, bed_number)
// index turns a lost race into ErrBedOccupied
func (r *RoomRepo) AddOccupant(ctx context.Context, occupant *models.Occupant) error {
	err := r.db.WithContext(ctx).Create(occupant).Error
	if isDuplicate(err) {
		return models.ErrBedOccupied
	}
	return err
}

// RemoveOccupant deletes the trainee's bed assignment in a room
func (r *RoomRepo) RemoveOccupant(ctx context.Context, roomID uint, code models.TraineeCode) error {
	return r.db.WithContext(ctx).
		Where("room_id = ? AND trainee_code = ?", roomID, code).
		Delete(&models.Occupant{}).Error
}

// AddMaintenance appends a maintenance record to a room
func (r *RoomRepo) AddMaintenance(ctx context.Context, record *models.MaintenanceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}
