package handler

import (
	"net/http"
	"strconv"
	"strings"

	"hostel-management-backend/internal/middleware"
	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"
	"hostel-management-backend/internal/service"
	"hostel-management-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AmenityHandler struct {
	inventoryService *service.InventoryService
	log              *zap.Logger
}

func NewAmenityHandler(inventoryService *service.InventoryService, log *zap.Logger) *AmenityHandler {
	return &AmenityHandler{
		inventoryService: inventoryService,
		log:              log,
	}
}

type CreateItemRequest struct {
	Name              string              `json:"name" binding:"required,max=100"`
	Category          models.ItemCategory `json:"category" binding:"required,oneof=linen blanket furniture electrical cleaning other"`
	Unit              models.ItemUnit     `json:"unit" binding:"omitempty,oneof=piece set pair meter kg liter"`
	TotalQuantity     int                 `json:"totalQuantity" binding:"min=0"`
	AvailableQuantity *int                `json:"availableQuantity" binding:"omitempty,min=0"`
	MinimumThreshold  int                 `json:"minimumThreshold" binding:"min=0"`
	CostPerUnit       decimal.Decimal     `json:"costPerUnit"`
}

type UpdateItemRequest struct {
	Name             *string              `json:"name" binding:"omitempty,min=1,max=100"`
	Category         *models.ItemCategory `json:"category" binding:"omitempty,oneof=linen blanket furniture electrical cleaning other"`
	Unit             *models.ItemUnit     `json:"unit" binding:"omitempty,oneof=piece set pair meter kg liter"`
	TotalQuantity    *int                 `json:"totalQuantity" binding:"omitempty,min=0"`
	MinimumThreshold *int                 `json:"minimumThreshold" binding:"omitempty,min=0"`
	CostPerUnit      *decimal.Decimal     `json:"costPerUnit"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type AllocateAmenityRequest struct {
	ItemID     uint              `json:"itemId" binding:"required"`
	TraineeID  models.TraineeRef `json:"traineeId" binding:"required"`
	Quantity   int               `json:"quantity" binding:"required,min=1"`
	RoomNumber *int              `json:"roomNumber" binding:"omitempty,min=1"`
}

type ReturnAmenityRequest struct {
	ItemID    uint                   `json:"itemId" binding:"required"`
	TraineeID models.TraineeRef      `json:"traineeId" binding:"required"`
	Quantity  int                    `json:"quantity" binding:"required,min=1"`
	Condition models.ReturnCondition `json:"condition" binding:"omitempty,oneof=good used damaged"`
}

// List returns inventory items filtered by category, stock level and name
func (h *AmenityHandler) List(c *gin.Context) {
	lowStock, _ := strconv.ParseBool(c.Query("lowStock"))
	items, pagination, err := h.inventoryService.List(c.Request.Context(), repository.InventoryFilter{
		Category: models.ItemCategory(c.Query("category")),
		LowStock: lowStock,
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     pageRequest(c),
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch inventory items")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"items":      items,
		"pagination": pagination,
	})
}

// Get returns one item with its transaction log
func (h *AmenityHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	item, err := h.inventoryService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch inventory item")
		return
	}
	utils.SuccessResponse(c, item)
}

func (h *AmenityHandler) Create(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := h.inventoryService.Create(c.Request.Context(), service.CreateItemInput{
		Name:              req.Name,
		Category:          req.Category,
		Unit:              req.Unit,
		TotalQuantity:     req.TotalQuantity,
		AvailableQuantity: req.AvailableQuantity,
		MinimumThreshold:  req.MinimumThreshold,
		CostPerUnit:       req.CostPerUnit,
	}, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to create inventory item")
		return
	}
	utils.DataResponse(c, http.StatusCreated, "Inventory item created successfully", item)
}

func (h *AmenityHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := h.inventoryService.Update(c.Request.Context(), id, service.UpdateItemInput{
		Name:             req.Name,
		Category:         req.Category,
		Unit:             req.Unit,
		TotalQuantity:    req.TotalQuantity,
		MinimumThreshold: req.MinimumThreshold,
		CostPerUnit:      req.CostPerUnit,
	}, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to update inventory item")
		return
	}
	utils.DataResponse(c, http.StatusOK, "Inventory item updated successfully", item)
}

func (h *AmenityHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.inventoryService.Delete(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		respondError(c, h.log, err, "Failed to delete inventory item")
		return
	}
	utils.MessageResponse(c, "Inventory item deleted successfully")
}

// Restock adds purchased stock
func (h *AmenityHandler) Restock(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := h.inventoryService.Restock(c.Request.Context(), id, req.Quantity, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to restock inventory item")
		return
	}
	utils.DataResponse(c, http.StatusOK, "Inventory item restocked successfully", item)
}

// Dispose writes off damaged stock
func (h *AmenityHandler) Dispose(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := h.inventoryService.Dispose(c.Request.Context(), id, req.Quantity, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to dispose inventory item")
		return
	}
	utils.DataResponse(c, http.StatusOK, "Damaged items disposed successfully", item)
}

// Allocate hands items to a trainee
func (h *AmenityHandler) Allocate(c *gin.Context) {
	var req AllocateAmenityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.inventoryService.AllocateToTrainee(c.Request.Context(), service.DirectAllocation{
		ItemID:     req.ItemID,
		Trainee:    req.TraineeID,
		Quantity:   req.Quantity,
		RoomNumber: req.RoomNumber,
	}, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to allocate amenity")
		return
	}
	utils.DataResponse(c, http.StatusOK, "Amenity allocated successfully", res)
}

// Return takes items back from a trainee
func (h *AmenityHandler) Return(c *gin.Context) {
	var req ReturnAmenityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.inventoryService.ReturnFromTrainee(c.Request.Context(), service.DirectReturn{
		ItemID:    req.ItemID,
		Trainee:   req.TraineeID,
		Quantity:  req.Quantity,
		Condition: req.Condition,
	}, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to return amenity")
		return
	}
	utils.DataResponse(c, http.StatusOK, "Amenity returned successfully", res)
}

// TraineeAmenities returns the amenity lines held by one trainee
func (h *AmenityHandler) TraineeAmenities(c *gin.Context) {
	trainee, err := h.inventoryService.TraineeAmenities(c.Request.Context(), models.TraineeRef(c.Param("traineeId")))
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch trainee amenities")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"trainee":   trainee,
		"amenities": trainee.Amenities,
	})
}

// AllTrainees lists staying trainees with their amenities
func (h *AmenityHandler) AllTrainees(c *gin.Context) {
	block, ok := optionalBlock(c, c.Query("block"))
	if !ok {
		return
	}
	trainees, err := h.inventoryService.StayingWithAmenities(c.Request.Context(), block, strings.TrimSpace(c.Query("search")))
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch trainees")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"trainees": trainees,
		"count":    len(trainees),
	})
}

func (h *AmenityHandler) LowStock(c *gin.Context) {
	items, err := h.inventoryService.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch low stock items")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *AmenityHandler) CategorySummary(c *gin.Context) {
	summary, err := h.inventoryService.CategorySummary(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to build category summary")
		return
	}
	utils.SuccessResponse(c, summary)
}
