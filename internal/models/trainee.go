package models

import "time"

type Designation string

const (
	DesignationSSE    Designation = "SSE"
	DesignationJE     Designation = "JE"
	DesignationTechI  Designation = "Tech-I"
	DesignationTechII Designation = "Tech-II"
	DesignationAJE    Designation = "AJE"
)

type TraineeStatus string

const (
	TraineeStaying    TraineeStatus = "staying"
	TraineeCheckedOut TraineeStatus = "checked_out"
	TraineeExtended   TraineeStatus = "extended"
)

func (s TraineeStatus) Valid() bool {
	return s == TraineeStaying || s == TraineeCheckedOut || s == TraineeExtended
}

// Active reports whether a trainee in this status must hold a bed.
func (s TraineeStatus) Active() bool {
	return s == TraineeStaying || s == TraineeExtended
}

type EmergencyContact struct {
	Name     string `gorm:"size:100" json:"name"`
	Contact  string `gorm:"size:10" json:"contact"`
	Relation string `gorm:"size:50" json:"relation"`
	Place    string `gorm:"size:100" json:"place"`
}

// Trainee represents the trainees table
type Trainee struct {
	ID                   uint             `gorm:"primaryKey" json:"id"`
	TraineeCode          TraineeCode      `gorm:"size:40;not null;uniqueIndex" json:"traineeId"`
	Name                 string           `gorm:"size:100;not null" json:"name"`
	Designation          Designation      `gorm:"size:20;not null" json:"designation"`
	Division             string           `gorm:"size:50;not null" json:"division"`
	Mobile               string           `gorm:"size:10;not null" json:"mobile"`
	RoomNumber           *int             `gorm:"index:idx_trainees_room,priority:1" json:"roomNumber"`
	Block                *Block           `gorm:"size:1;index:idx_trainees_room,priority:2" json:"block"`
	BedNumber            *int             `json:"bedNumber"`
	CheckInDate          time.Time        `gorm:"not null;index" json:"checkInDate"`
	CheckOutDate         *time.Time       `json:"checkOutDate"`
	ExpectedCheckOutDate time.Time        `gorm:"not null" json:"expectedCheckOutDate"`
	Status               TraineeStatus    `gorm:"size:20;not null;index" json:"status"`
	TrainingUnder        string           `gorm:"size:100" json:"trainingUnder,omitempty"`
	EmergencyContact     EmergencyContact `gorm:"embedded;embeddedPrefix:emergency_" json:"emergencyContact"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`

	// Relationships
	Amenities []TraineeAmenity `gorm:"foreignKey:TraineeID" json:"amenities"`
}

// TableName specifies the table name for Trainee model
func (Trainee) TableName() string {
	return "trainees"
}

// Room returns the room the trainee is housed in, if any.
func (t *Trainee) Room() (RoomKey, bool) {
	if t.RoomNumber == nil || t.Block == nil {
		return RoomKey{}, false
	}
	return RoomKey{Number: *t.RoomNumber, Block: *t.Block}, true
}

// AssignBed records the trainee's bed on the trainee side of the back-reference.
func (t *Trainee) AssignBed(key RoomKey, bed int) {
	number, block, b := key.Number, key.Block, bed
	t.RoomNumber = &number
	t.Block = &block
	t.BedNumber = &b
}

func (t *Trainee) ClearRoom() {
	t.RoomNumber = nil
	t.Block = nil
	t.BedNumber = nil
}

// AmenityFor returns the trainee's amenity line for an inventory item.
func (t *Trainee) AmenityFor(itemID uint) (*TraineeAmenity, bool) {
	for i := range t.Amenities {
		if t.Amenities[i].InventoryItemID != nil && *t.Amenities[i].InventoryItemID == itemID {
			return &t.Amenities[i], true
		}
	}
	return nil, false
}

// TraineeAmenity is a physical item handed to a trainee. InventoryItemID is
// the ledger item it was drawn from; Allocated is true while the quantity is
// still counted as in use on that item.
type TraineeAmenity struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TraineeID       uint      `gorm:"not null;index" json:"-"`
	InventoryItemID *uint     `gorm:"index" json:"itemId"`
	Name            string    `gorm:"size:100;not null" json:"name"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	Allocated       bool      `json:"allocated"`
	AllocatedDate   time.Time `json:"allocatedDate"`
}

// TableName specifies the table name for TraineeAmenity model
func (TraineeAmenity) TableName() string {
	return "trainee_amenities"
}

// Returnable reports whether the line still holds stock drawn from the ledger.
func (a TraineeAmenity) Returnable() bool {
	return a.Allocated && a.InventoryItemID != nil && a.Quantity > 0
}
