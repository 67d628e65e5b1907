package handler

import (
	"net/http"
	"strconv"
	"time"

	"hostel-management-backend/internal/middleware"
	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"
	"hostel-management-backend/internal/service"
	"hostel-management-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type RoomHandler struct {
	roomService *service.RoomService
	log         *zap.Logger
}

func NewRoomHandler(roomService *service.RoomService, log *zap.Logger) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		log:         log,
	}
}

// Room types contain spaces ("Caretaker Room"), so they are checked by the
// model rather than a oneof tag.
type CreateRoomRequest struct {
	Number int               `json:"number" binding:"required,min=1"`
	Block  models.Block      `json:"block" binding:"required,oneof=A B C"`
	Type   models.RoomType   `json:"type" binding:"required"`
	Beds   *int              `json:"beds" binding:"omitempty,min=0,max=4"`
	Status models.RoomStatus `json:"status" binding:"omitempty,oneof=vacant occupied blocked store maintenance"`
	Notes  string            `json:"notes" binding:"max=500"`
}

type UpdateRoomRequest struct {
	Type   *models.RoomType   `json:"type"`
	Status *models.RoomStatus `json:"status" binding:"omitempty,oneof=vacant occupied blocked store maintenance"`
	Beds   *int               `json:"beds" binding:"omitempty,min=0,max=4"`
	Notes  *string            `json:"notes" binding:"omitempty,max=500"`
}

type MaintenanceRequest struct {
	Description string                 `json:"description" binding:"required,max=500"`
	Type        models.MaintenanceType `json:"type" binding:"required,oneof=repair cleaning inspection upgrade"`
	Cost        decimal.Decimal        `json:"cost"`
	Date        string                 `json:"date"`
}

// GetRooms lists rooms with their occupants
func (h *RoomHandler) GetRooms(c *gin.Context) {
	block, ok := optionalBlock(c, c.Query("block"))
	if !ok {
		return
	}

	rooms, err := h.roomService.GetRooms(c.Request.Context(), repository.RoomFilter{
		Block:  block,
		Status: models.RoomStatus(c.Query("status")),
		Type:   models.RoomType(c.Query("type")),
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch rooms")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// GetRoom retrieves a specific room by block and number
func (h *RoomHandler) GetRoom(c *gin.Context) {
	key, ok := roomKeyParam(c)
	if !ok {
		return
	}

	room, err := h.roomService.GetRoom(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch room")
		return
	}
	utils.SuccessResponse(c, room)
}

// Available lists rooms that can take new trainees
func (h *RoomHandler) Available(c *gin.Context) {
	block, ok := optionalBlock(c, c.Query("block"))
	if !ok {
		return
	}
	minBeds := 1
	if raw := c.Query("bedCount"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.ValidationErrorResponse(c, []string{"bedCount must be a positive number"})
			return
		}
		minBeds = n
	}

	rooms, err := h.roomService.Available(c.Request.Context(), block, minBeds)
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch available rooms")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// CreateRoom creates a new room (admin and manager only)
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), service.CreateRoomInput{
		Number: req.Number,
		Block:  req.Block,
		Type:   req.Type,
		Beds:   req.Beds,
		Status: req.Status,
		Notes:  req.Notes,
	}, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to create room")
		return
	}

	utils.DataResponse(c, http.StatusCreated, "Room created successfully", room)
}

// UpdateRoom updates an existing room (admin and manager only)
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	key, ok := roomKeyParam(c)
	if !ok {
		return
	}
	var req UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	room, err := h.roomService.UpdateRoom(c.Request.Context(), key, service.UpdateRoomInput{
		Type:   req.Type,
		Status: req.Status,
		Beds:   req.Beds,
		Notes:  req.Notes,
	}, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to update room")
		return
	}

	utils.DataResponse(c, http.StatusOK, "Room updated successfully", room)
}

// DeleteRoom deletes a room that has no occupants (admin and manager only)
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	key, ok := roomKeyParam(c)
	if !ok {
		return
	}

	if err := h.roomService.DeleteRoom(c.Request.Context(), key, middleware.UserID(c)); err != nil {
		respondError(c, h.log, err, "Failed to delete room")
		return
	}

	utils.MessageResponse(c, "Room deleted successfully")
}

// AddMaintenance appends a maintenance record to the room history
func (h *RoomHandler) AddMaintenance(c *gin.Context) {
	key, ok := roomKeyParam(c)
	if !ok {
		return
	}
	var req MaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	var date *time.Time
	if req.Date != "" {
		d, err := parseDate("date", req.Date)
		if err != nil {
			utils.ValidationErrorResponse(c, []string{err.Error()})
			return
		}
		date = &d
	}

	room, err := h.roomService.AddMaintenance(c.Request.Context(), key, service.MaintenanceInput{
		Description: req.Description,
		Type:        req.Type,
		Cost:        req.Cost,
		Date:        date,
	}, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to add maintenance record")
		return
	}

	utils.DataResponse(c, http.StatusCreated, "Maintenance record added", room)
}
