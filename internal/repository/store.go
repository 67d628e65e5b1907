package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormStore is the relational Store used with mysql, postgres and sqlite.
type GormStore struct {
	db        *gorm.DB
	rooms     *RoomRepo
	trainees  *TraineeRepo
	inventory *InventoryRepo
	users     *UserRepo
	audit     *AuditRepo
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:        db,
		rooms:     NewRoomRepo(db),
		trainees:  NewTraineeRepo(db),
		inventory: NewInventoryRepo(db),
		users:     NewUserRepo(db),
		audit:     NewAuditRepo(db),
	}
}

func (s *GormStore) Rooms() RoomRepository           { return s.rooms }
func (s *GormStore) Trainees() TraineeRepository     { return s.trainees }
func (s *GormStore) Inventory() InventoryRepository { return s.inventory }
func (s *GormStore) Users() UserRepository           { return s.users }
func (s *GormStore) Audit() AuditRepository          { return s.audit }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
