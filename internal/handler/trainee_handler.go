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

type TraineeHandler struct {
	traineeService *service.TraineeService
	allotments     *AllotmentHandler
	allocation     *service.AllocationService
	log            *zap.Logger
}

func NewTraineeHandler(traineeService *service.TraineeService, allotments *AllotmentHandler, allocation *service.AllocationService, log *zap.Logger) *TraineeHandler {
	return &TraineeHandler{
		traineeService: traineeService,
		allotments:     allotments,
		allocation:     allocation,
		log:            log,
	}
}

type UpdateTraineeRequest struct {
	Name             *string                  `json:"name" binding:"omitempty,min=1,max=100"`
	Designation      *models.Designation      `json:"designation" binding:"omitempty,oneof=SSE JE Tech-I Tech-II AJE"`
	Division         *string                  `json:"division" binding:"omitempty,min=1,max=100"`
	Mobile           *string                  `json:"mobile" binding:"omitempty,mobile"`
	TrainingUnder    *string                  `json:"trainingUnder" binding:"omitempty,max=100"`
	EmergencyContact *EmergencyContactRequest `json:"emergencyContact"`
}

// List returns trainees filtered by status, block, designation and search text
func (h *TraineeHandler) List(c *gin.Context) {
	block, ok := optionalBlock(c, c.Query("block"))
	if !ok {
		return
	}

	trainees, pagination, err := h.traineeService.List(c.Request.Context(), service.TraineeQuery{
		Status:      models.TraineeStatus(c.Query("status")),
		Block:       block,
		Designation: models.Designation(c.Query("designation")),
		Search:      strings.TrimSpace(c.Query("search")),
		Page:        pageRequest(c),
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch trainees")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"trainees":   trainees,
		"pagination": pagination,
	})
}

// Get returns one trainee by internal id or trainee code
func (h *TraineeHandler) Get(c *gin.Context) {
	trainee, err := h.traineeService.Get(c.Request.Context(), models.TraineeRef(c.Param("id")))
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch trainee")
		return
	}
	utils.SuccessResponse(c, trainee)
}

// Create is the same operation as POST /allotments/allocate
func (h *TraineeHandler) Create(c *gin.Context) {
	h.allotments.Allocate(c)
}

// Update changes profile fields; room fields only change through a transfer
func (h *TraineeHandler) Update(c *gin.Context) {
	var req UpdateTraineeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	in := service.ProfileInput{
		Name:          req.Name,
		Designation:   req.Designation,
		Division:      req.Division,
		Mobile:        req.Mobile,
		TrainingUnder: req.TrainingUnder,
	}
	if req.EmergencyContact != nil {
		contact := req.EmergencyContact.model()
		in.EmergencyContact = &contact
	}

	trainee, err := h.traineeService.UpdateProfile(c.Request.Context(), models.TraineeRef(c.Param("id")), in, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to update trainee")
		return
	}
	utils.DataResponse(c, http.StatusOK, "Trainee updated successfully", trainee)
}

// Checkout frees the trainee's bed and keeps the record as checked_out
func (h *TraineeHandler) Checkout(c *gin.Context) {
	res, err := h.allocation.Checkout(c.Request.Context(), models.TraineeRef(c.Param("id")), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to check out trainee")
		return
	}
	utils.DataResponse(c, http.StatusOK, allocationMessage("Trainee checked out successfully", res.Result), res)
}

// Delete is the same operation as POST /allotments/deallocate
func (h *TraineeHandler) Delete(c *gin.Context) {
	h.allotments.deallocate(c, models.TraineeRef(c.Param("id")))
}

// ByBlock lists trainees of one block, staying by default
func (h *TraineeHandler) ByBlock(c *gin.Context) {
	block, ok := optionalBlock(c, c.Param("block"))
	if !ok {
		return
	}

	trainees, err := h.traineeService.ByBlock(c.Request.Context(), block, models.TraineeStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch trainees")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"trainees": trainees,
		"count":    len(trainees),
	})
}
