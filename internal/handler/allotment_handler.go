package handler

import (
	"net/http"
	"strings"

	"hostel-management-backend/internal/middleware"
	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/service"
	"hostel-management-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AllotmentHandler struct {
	allocationService *service.AllocationService
	traineeService    *service.TraineeService
	log               *zap.Logger
}

func NewAllotmentHandler(allocationService *service.AllocationService, traineeService *service.TraineeService, log *zap.Logger) *AllotmentHandler {
	return &AllotmentHandler{
		allocationService: allocationService,
		traineeService:    traineeService,
		log:               log,
	}
}

type AmenityLineRequest struct {
	ItemID   *uint  `json:"itemId"`
	Name     string `json:"name" binding:"required_without=ItemID,max=100"`
	Quantity int    `json:"quantity" binding:"omitempty,min=1"`
}

type EmergencyContactRequest struct {
	Name     string `json:"name" binding:"max=100"`
	Contact  string `json:"contact" binding:"omitempty,mobile"`
	Relation string `json:"relation" binding:"max=50"`
	Place    string `json:"place" binding:"max=100"`
}

func (r EmergencyContactRequest) model() models.EmergencyContact {
	return models.EmergencyContact{
		Name:     strings.TrimSpace(r.Name),
		Contact:  r.Contact,
		Relation: strings.TrimSpace(r.Relation),
		Place:    strings.TrimSpace(r.Place),
	}
}

type TraineeDataRequest struct {
	Name                 string                  `json:"name" binding:"required,max=100"`
	Designation          models.Designation      `json:"designation" binding:"required,oneof=SSE JE Tech-I Tech-II AJE"`
	Division             string                  `json:"division" binding:"required,max=100"`
	Mobile               string                  `json:"mobile" binding:"required,mobile"`
	CheckInDate          string                  `json:"checkInDate"`
	ExpectedCheckOutDate string                  `json:"expectedCheckOutDate" binding:"required"`
	TrainingUnder        string                  `json:"trainingUnder" binding:"max=100"`
	EmergencyContact     EmergencyContactRequest `json:"emergencyContact"`
	Amenities            []AmenityLineRequest    `json:"amenities" binding:"omitempty,dive"`
}

type AllocateRequest struct {
	TraineeData TraineeDataRequest `json:"traineeData"`
	RoomNumber  int                `json:"roomNumber" binding:"required,min=1"`
	Block       models.Block       `json:"block" binding:"required,oneof=A B C"`
	BedNumber   int                `json:"bedNumber" binding:"required,min=1,max=4"`
}

type DeallocateRequest struct {
	TraineeID models.TraineeRef `json:"traineeId" binding:"required"`
}

type TransferRequest struct {
	TraineeID     models.TraineeRef `json:"traineeId" binding:"required"`
	NewRoomNumber int               `json:"newRoomNumber" binding:"required,min=1"`
	NewBlock      models.Block      `json:"newBlock" binding:"required,oneof=A B C"`
	NewBedNumber  int               `json:"newBedNumber" binding:"required,min=1,max=4"`
	Reason        string            `json:"reason" binding:"max=255"`
}

type ExtendRequest struct {
	TraineeID       models.TraineeRef `json:"traineeId" binding:"required"`
	NewCheckOutDate string            `json:"newCheckOutDate" binding:"required"`
	Reason          string            `json:"reason" binding:"max=255"`
}

// allocateInput converts the request into the coordinator input, reporting
// date problems as validation details.
func (r AllocateRequest) allocateInput() (service.AllocateInput, []string) {
	var details []string
	data := r.TraineeData

	checkIn, err := parseOptionalDate("checkInDate", data.CheckInDate)
	if err != nil {
		details = append(details, err.Error())
	}
	expected, err := parseDate("expectedCheckOutDate", data.ExpectedCheckOutDate)
	if err != nil {
		details = append(details, err.Error())
	}

	amenities := make([]service.AmenityRequest, 0, len(data.Amenities))
	for _, a := range data.Amenities {
		amenities = append(amenities, service.AmenityRequest{
			ItemID:   a.ItemID,
			Name:     strings.TrimSpace(a.Name),
			Quantity: a.Quantity,
		})
	}

	in := service.AllocateInput{
		Trainee: service.TraineeInput{
			Name:                 data.Name,
			Designation:          data.Designation,
			Division:             data.Division,
			Mobile:               data.Mobile,
			ExpectedCheckOutDate: expected,
			TrainingUnder:        data.TrainingUnder,
			EmergencyContact:     data.EmergencyContact.model(),
			Amenities:            amenities,
		},
		Room:      models.RoomKey{Number: r.RoomNumber, Block: r.Block},
		BedNumber: r.BedNumber,
	}
	if checkIn != nil {
		in.Trainee.CheckInDate = *checkIn
	}
	return in, details
}

// Allocate creates a trainee in the requested room and bed
func (h *AllotmentHandler) Allocate(c *gin.Context) {
	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	in, details := req.allocateInput()
	if len(details) > 0 {
		utils.ValidationErrorResponse(c, details)
		return
	}

	res, err := h.allocationService.Allocate(c.Request.Context(), in, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to allocate room")
		return
	}

	utils.DataResponse(c, http.StatusCreated, allocationMessage("Room allocated successfully", res.Result), res)
}

// Deallocate frees the trainee's bed and deletes the trainee
func (h *AllotmentHandler) Deallocate(c *gin.Context) {
	var req DeallocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	h.deallocate(c, req.TraineeID)
}

func (h *AllotmentHandler) deallocate(c *gin.Context, ref models.TraineeRef) {
	res, err := h.allocationService.Deallocate(c.Request.Context(), ref, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to deallocate room")
		return
	}
	utils.DataResponse(c, http.StatusOK, allocationMessage("Room deallocated successfully", res.Result), res)
}

// Transfer moves the trainee to another room or bed
func (h *AllotmentHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.allocationService.Transfer(c.Request.Context(), service.TransferInput{
		Trainee:   req.TraineeID,
		Room:      models.RoomKey{Number: req.NewRoomNumber, Block: req.NewBlock},
		BedNumber: req.NewBedNumber,
		Reason:    strings.TrimSpace(req.Reason),
	}, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to transfer trainee")
		return
	}

	utils.DataResponse(c, http.StatusOK, "Trainee transferred successfully", res)
}

// Extend pushes the expected check-out date of a staying trainee
func (h *AllotmentHandler) Extend(c *gin.Context) {
	var req ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	newDate, err := parseDate("newCheckOutDate", req.NewCheckOutDate)
	if err != nil {
		utils.ValidationErrorResponse(c, []string{err.Error()})
		return
	}

	trainee, err := h.allocationService.Extend(c.Request.Context(), service.ExtendInput{
		Trainee:         req.TraineeID,
		NewCheckOutDate: newDate,
		Reason:          strings.TrimSpace(req.Reason),
	}, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to extend stay")
		return
	}

	utils.DataResponse(c, http.StatusOK, "Stay extended successfully", gin.H{"trainee": trainee})
}

// Current lists staying and extended trainees grouped by block
func (h *AllotmentHandler) Current(c *gin.Context) {
	block, ok := optionalBlock(c, c.Query("block"))
	if !ok {
		return
	}

	current, err := h.traineeService.Current(c.Request.Context(), block)
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch current allotments")
		return
	}
	utils.SuccessResponse(c, current)
}

// History lists allotments filtered by trainee, room and check-in window
func (h *AllotmentHandler) History(c *gin.Context) {
	block, ok := optionalBlock(c, c.Query("block"))
	if !ok {
		return
	}
	roomNumber, ok := optionalInt(c, "roomNumber")
	if !ok {
		return
	}
	from, err := parseOptionalDate("startDate", c.Query("startDate"))
	if err != nil {
		utils.ValidationErrorResponse(c, []string{err.Error()})
		return
	}
	to, err := parseOptionalDate("endDate", c.Query("endDate"))
	if err != nil {
		utils.ValidationErrorResponse(c, []string{err.Error()})
		return
	}

	trainees, pagination, err := h.traineeService.History(c.Request.Context(), service.HistoryQuery{
		Trainee:    models.TraineeRef(c.Query("traineeId")),
		RoomNumber: roomNumber,
		Block:      block,
		From:       from,
		To:         to,
		Page:       pageRequest(c),
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch allotment history")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"allotments": trainees,
		"pagination": pagination,
	})
}

func allocationMessage(base string, result service.Result) string {
	if result.Outcome == service.OutcomePartial {
		return base + "; some amenities could not be processed"
	}
	return base
}
