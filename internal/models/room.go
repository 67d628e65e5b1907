package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxRoomNumber  = 200
	MaxBedsPerRoom = 4
)

type RoomType string

const (
	RoomTypeSingle     RoomType = "Single"
	RoomTypeDouble     RoomType = "Double"
	RoomTypeTriple     RoomType = "Triple"
	RoomTypeQuad       RoomType = "Quad"
	RoomTypeStore      RoomType = "Store"
	RoomTypeOffice     RoomType = "Office"
	RoomTypeCaretaker  RoomType = "Caretaker Room"
	RoomTypeContractor RoomType = "Contractor Room"
	RoomTypeDamage     RoomType = "Damage"
	RoomTypeCondemn    RoomType = "Condemn"
	RoomTypeGym        RoomType = "GYM ROOM"
	RoomTypeEmergency  RoomType = "Emergency"
	RoomTypeNoFurnish  RoomType = "NO FURNITURE"
	RoomTypeProhibited RoomType = "Prohibited"
)

var roomTypes = map[RoomType]int{
	RoomTypeSingle: 1, RoomTypeDouble: 2, RoomTypeTriple: 3, RoomTypeQuad: 4,
	RoomTypeStore: 0, RoomTypeOffice: 0, RoomTypeCaretaker: 0, RoomTypeContractor: 0,
	RoomTypeDamage: 0, RoomTypeCondemn: 0, RoomTypeGym: 0, RoomTypeEmergency: 0,
	RoomTypeNoFurnish: 0, RoomTypeProhibited: 0,
}

func (t RoomType) Valid() bool {
	_, ok := roomTypes[t]
	return ok
}

// DefaultBeds is the bed count a room of this type gets when none is given.
func (t RoomType) DefaultBeds() int {
	return roomTypes[t]
}

type RoomStatus string

const (
	RoomVacant      RoomStatus = "vacant"
	RoomOccupied    RoomStatus = "occupied"
	RoomBlocked     RoomStatus = "blocked"
	RoomStore       RoomStatus = "store"
	RoomMaintenance RoomStatus = "maintenance"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomVacant, RoomOccupied, RoomBlocked, RoomStore, RoomMaintenance:
		return true
	}
	return false
}

type Floor string

const (
	FloorGround Floor = "Ground"
	FloorFirst  Floor = "First"
)

// DeriveFloor maps a room number to its floor; each block has its own
// ground-floor numbering range.
func DeriveFloor(number int, block Block) Floor {
	limit := 0
	switch block {
	case BlockA:
		limit = 21
	case BlockB:
		limit = 64
	case BlockC:
		limit = 100
	}
	if number <= limit {
		return FloorGround
	}
	return FloorFirst
}

// Room represents the rooms table
type Room struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Number    int        `gorm:"not null;uniqueIndex:idx_rooms_number_block,priority:1" json:"number"`
	Block     Block      `gorm:"size:1;not null;uniqueIndex:idx_rooms_number_block,priority:2;index" json:"block"`
	Type      RoomType   `gorm:"size:30;not null;index" json:"type"`
	Status    RoomStatus `gorm:"size:20;not null;index" json:"status"`
	Beds      int        `gorm:"not null" json:"beds"`
	Floor     Floor      `gorm:"size:10;not null" json:"floor"`
	Notes     string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`

	// Relationships
	Occupants          []Occupant          `gorm:"foreignKey:RoomID" json:"occupants"`
	MaintenanceHistory []MaintenanceRecord `gorm:"foreignKey:RoomID" json:"maintenanceHistory,omitempty"`
}

// TableName specifies the table name for Room model
func (Room) TableName() string {
	return "rooms"
}

func (r *Room) Key() RoomKey {
	return RoomKey{Number: r.Number, Block: r.Block}
}

// Validate checks the static attributes of a room.
func (r *Room) Validate() error {
	if !r.Key().Valid() {
		return fmt.Errorf("%w: number must be 1-%d and block one of A, B, C", ErrInvalidRoom, MaxRoomNumber)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown room type %q", ErrInvalidRoom, r.Type)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown room status %q", ErrInvalidRoom, r.Status)
	}
	if r.Beds < 0 || r.Beds > MaxBedsPerRoom {
		return fmt.Errorf("%w: beds must be between 0 and %d", ErrInvalidRoom, MaxBedsPerRoom)
	}
	if len(r.Occupants) > r.Beds {
		return fmt.Errorf("%w: %d occupants exceed %d beds", ErrInvalidRoom, len(r.Occupants), r.Beds)
	}
	return nil
}

// IsAvailable reports whether the room can take another trainee: it must be
// in an allocatable status and have a free bed.
func (r *Room) IsAvailable() bool {
	if r.Status != RoomVacant && r.Status != RoomOccupied {
		return false
	}
	return len(r.Occupants) < r.Beds
}

func (r *Room) AvailableBeds() int {
	free := r.Beds - len(r.Occupants)
	if free < 0 {
		return 0
	}
	return free
}

func (r *Room) OccupancyRate() float64 {
	if r.Beds == 0 {
		return 0
	}
	return float64(len(r.Occupants)) / float64(r.Beds) * 100
}

// OccupantOf returns the occupant entry held by the given trainee.
func (r *Room) OccupantOf(code TraineeCode) (*Occupant, bool) {
	for i := range r.Occupants {
		if r.Occupants[i].TraineeCode == code {
			return &r.Occupants[i], true
		}
	}
	return nil, false
}

// BedHolder returns the trainee currently holding bed.
func (r *Room) BedHolder(bed int) (TraineeCode, bool) {
	for _, o := range r.Occupants {
		if o.BedNumber == bed {
			return o.TraineeCode, true
		}
	}
	return "", false
}

// AddOccupant places a trainee in bed and marks the room occupied. The
// caller is responsible for availability checks.
func (r *Room) AddOccupant(code TraineeCode, bed int, at time.Time) Occupant {
	occ := Occupant{RoomID: r.ID, TraineeCode: code, BedNumber: bed, AllocatedDate: at}
	r.Occupants = append(r.Occupants, occ)
	sort.Slice(r.Occupants, func(i, j int) bool {
		return r.Occupants[i].BedNumber < r.Occupants[j].BedNumber
	})
	r.Status = RoomOccupied
	return occ
}

// RemoveOccupant drops the trainee's entry and frees the room when it
// becomes empty. It reports whether an entry was removed.
func (r *Room) RemoveOccupant(code TraineeCode) bool {
	kept := r.Occupants[:0]
	removed := false
	for _, o := range r.Occupants {
		if o.TraineeCode == code {
			removed = true
			continue
		}
		kept = append(kept, o)
	}
	r.Occupants = kept
	if len(r.Occupants) == 0 && r.Status == RoomOccupied {
		r.Status = RoomVacant
	}
	return removed
}

// Occupant is an active trainee-to-bed assignment recorded on a room.
type Occupant struct {
	ID            uint        `gorm:"primaryKey" json:"-"`
	RoomID        uint        `gorm:"not null;uniqueIndex:idx_room_occupants_bed,priority:1" json:"-"`
	TraineeCode   TraineeCode `gorm:"size:40;not null;uniqueIndex" json:"traineeId"`
	BedNumber     int         `gorm:"not null;uniqueIndex:idx_room_occupants_bed,priority:2" json:"bedNumber"`
	AllocatedDate time.Time   `json:"allocatedDate"`
}

// TableName specifies the table name for Occupant model
func (Occupant) TableName() string {
	return "room_occupants"
}

type MaintenanceType string

const (
	MaintenanceRepair     MaintenanceType = "repair"
	MaintenanceCleaning   MaintenanceType = "cleaning"
	MaintenanceInspection MaintenanceType = "inspection"
	MaintenanceUpgrade    MaintenanceType = "upgrade"
)

// MaintenanceRecord represents the room_maintenance table
type MaintenanceRecord struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	RoomID      uint            `gorm:"not null;index" json:"-"`
	Date        time.Time       `json:"date"`
	Description string          `gorm:"type:text" json:"description"`
	Type        MaintenanceType `gorm:"size:20" json:"type"`
	Cost        decimal.Decimal `gorm:"type:decimal(12,2)" json:"cost"`
	PerformedBy uint            `json:"performedBy"`
}

// TableName specifies the table name for MaintenanceRecord model
func (MaintenanceRecord) TableName() string {
	return "room_maintenance"
}
