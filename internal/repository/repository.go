package repository

import (
	"context"
	"time"

	"hostel-management-backend/internal/models"
)

// RoomFilter narrows room listings. Zero values mean "any".
type RoomFilter struct {
	Block  models.Block
	Status models.RoomStatus
	Type   models.RoomType
}

type TraineeSort int

const (
	SortNewest TraineeSort = iota // created_at DESC
	SortCheckIn                   // check_in_date DESC
	SortRoom                      // block, room_number, bed_number ASC
)

// TraineeFilter narrows trainee listings. A zero Page.Limit returns every match.
type TraineeFilter struct {
	Statuses    []models.TraineeStatus
	Block       models.Block
	RoomNumber  *int
	Designation models.Designation
	Search      string
	Ref         models.TraineeRef
	CheckInFrom *time.Time
	CheckInTo   *time.Time
	Sort        TraineeSort
	Page        models.PageRequest
}

// InventoryFilter narrows inventory listings. A zero Page.Limit returns every match.
type InventoryFilter struct {
	Category models.ItemCategory
	LowStock bool
	Search   string
	Page     models.PageRequest
}

type RoomRepository interface {
	List(ctx context.Context, filter RoomFilter) ([]models.Room, error)
	GetByKey(ctx context.Context, key models.RoomKey) (*models.Room, error)
	// GetByKeyForUpdate loads the room and holds its row lock until the
	// surrounding transaction ends.
	GetByKeyForUpdate(ctx context.Context, key models.RoomKey) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id uint) error
	AddOccupant(ctx context.Context, occupant *models.Occupant) error
	RemoveOccupant(ctx context.Context, roomID uint, code models.TraineeCode) error
	AddMaintenance(ctx context.Context, record *models.MaintenanceRecord) error
}

type TraineeRepository interface {
	List(ctx context.Context, filter TraineeFilter) ([]models.Trainee, int64, error)
	GetByRef(ctx context.Context, ref models.TraineeRef) (*models.Trainee, error)
	GetByCode(ctx context.Context, code models.TraineeCode) (*models.Trainee, error)
	// Create inserts the trainee and assigns its TraineeCode.
	Create(ctx context.Context, trainee *models.Trainee) error
	Update(ctx context.Context, trainee *models.Trainee) error
	// Delete removes the trainee together with its amenity lines.
	Delete(ctx context.Context, id uint) error
	SaveAmenity(ctx context.Context, amenity *models.TraineeAmenity) error
	DeleteAmenity(ctx context.Context, id uint) error
}

type InventoryRepository interface {
	List(ctx context.Context, filter InventoryFilter) ([]models.InventoryItem, int64, error)
	GetByID(ctx context.Context, id uint, withTransactions bool) (*models.InventoryItem, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.InventoryItem, error)
	// FindByName matches the item name case-insensitively and exactly.
	FindByName(ctx context.Context, name string) (*models.InventoryItem, error)
	Create(ctx context.Context, item *models.InventoryItem) error
	Update(ctx context.Context, item *models.InventoryItem) error
	Delete(ctx context.Context, id uint) error
	AppendTransaction(ctx context.Context, tx *models.InventoryTransaction) error
	ListLowStock(ctx context.Context) ([]models.InventoryItem, error)
}

type UserRepository interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	RevokeRefreshTokenByHash(ctx context.Context, hash string) error
}

type AuditRepository interface {
	CreateAuditLog(ctx context.Context, userID *uint, action, details string, metadata map[string]interface{}) error
	Recent(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// Store groups the repositories that share one transactional boundary.
type Store interface {
	Rooms() RoomRepository
	Trainees() TraineeRepository
	Inventory() InventoryRepository
	Users() UserRepository
	Audit() AuditRepository
	// Transaction runs fn against a Store bound to a single transaction.
	// Returning an error from fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
