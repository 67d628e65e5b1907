package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Block is one of the three physical wings of the hostel.
type Block string

const (
	BlockA Block = "A"
	BlockB Block = "B"
	BlockC Block = "C"
)

var Blocks = []Block{BlockA, BlockB, BlockC}

func (b Block) Valid() bool {
	return b == BlockA || b == BlockB || b == BlockC
}

// RoomKey is the compound identity of a room.
type RoomKey struct {
	Number int   `json:"number"`
	Block  Block `json:"block"`
}

func (k RoomKey) String() string {
	return fmt.Sprintf("%s-%d", k.Block, k.Number)
}

func (k RoomKey) Valid() bool {
	return k.Block.Valid() && k.Number >= 1 && k.Number <= MaxRoomNumber
}

// TraineeCode is the human-readable trainee identifier (ID001, ID002, ...).
// Rooms reference trainees by code, never by internal id.
type TraineeCode string

// FormatTraineeCode derives the code from the internal sequence id.
func FormatTraineeCode(id uint) TraineeCode {
	return TraineeCode(fmt.Sprintf("ID%03d", id))
}

// PendingTraineeCode is a unique placeholder held by a freshly inserted row
// until its sequence id is known. It must fit the trainee_code column.
func PendingTraineeCode() TraineeCode {
	return TraineeCode(uuid.NewString())
}

// TraineeRef is a lookup value supplied by clients: either the internal
// numeric id or the trainee code.
type TraineeRef string

// Parse splits the reference into its candidate internal id (0 if the value
// is not numeric) and its candidate code.
func (r TraineeRef) Parse() (uint, TraineeCode) {
	s := strings.TrimSpace(string(r))
	if id, err := strconv.ParseUint(s, 10, 64); err == nil && id > 0 {
		return uint(id), TraineeCode(s)
	}
	return 0, TraineeCode(s)
}
