package models

import "errors"

// Not-found errors.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrTraineeNotFound = errors.New("trainee not found")
	ErrItemNotFound    = errors.New("inventory item not found")
	ErrUserNotFound    = errors.New("user not found")
)

// State-conflict errors.
var (
	ErrRoomUnavailable      = errors.New("room is not available")
	ErrBedOccupied          = errors.New("bed is already occupied")
	ErrInvalidState         = errors.New("operation not allowed in current trainee state")
	ErrInvalidDate          = errors.New("new check-out date must be later than current expected check-out date")
	ErrAlreadyCheckedOut    = errors.New("trainee is already checked out")
	ErrInsufficientQuantity = errors.New("insufficient quantity available")
	ErrExceedsInUse         = errors.New("cannot return more items than are in use")
	ErrExceedsDamaged       = errors.New("cannot dispose more items than are damaged")
	ErrInventoryInvariant   = errors.New("sum of available, in-use, used, and damaged quantities cannot exceed total quantity")
	ErrItemInUse            = errors.New("cannot delete item with items currently in use")
	ErrRoomOccupied         = errors.New("cannot delete occupied room, checkout all trainees first")
	ErrDuplicateRoom        = errors.New("room already exists")
	ErrDuplicateUser        = errors.New("username already exists")
)

// Validation errors raised by domain methods.
var (
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrInvalidCondition = errors.New("condition must be one of good, used, damaged")
	ErrInvalidRoom      = errors.New("invalid room definition")
	ErrInvalidBed       = errors.New("bed number is outside the room capacity")
	ErrInvalidStay      = errors.New("expected check-out date cannot be before check-in date")
	ErrInvalidAmenity   = errors.New("amenity requires an itemId or a name")
	ErrInvalidStatus    = errors.New("room status does not match its occupancy")
)
