package handler

import (
	"hostel-management-backend/internal/config"
	"hostel-management-backend/internal/metrics"
	"hostel-management-backend/internal/middleware"
	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/service"
	"hostel-management-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services bundles what the router needs to build its handlers.
type Services struct {
	Auth       *service.AuthService
	Allocation *service.AllocationService
	Trainees   *service.TraineeService
	Rooms      *service.RoomService
	Inventory  *service.InventoryService
	Reports    *service.ReportService
	Worker     *service.WorkerService
}

// SetupRouter wires middleware, handlers and routes.
func SetupRouter(cfg *config.Config, log *zap.Logger, m *metrics.Metrics, svc Services) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log, m))
	r.Use(middleware.CORS(cfg))

	authHandler := NewAuthHandler(svc.Auth, cfg.Server.GinMode == gin.ReleaseMode, log)
	allotmentHandler := NewAllotmentHandler(svc.Allocation, svc.Trainees, log)
	traineeHandler := NewTraineeHandler(svc.Trainees, allotmentHandler, svc.Allocation, log)
	roomHandler := NewRoomHandler(svc.Rooms, log)
	amenityHandler := NewAmenityHandler(svc.Inventory, log)
	reportHandler := NewReportHandler(svc.Reports, svc.Worker, log)

	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{
			"status":  "healthy",
			"service": "hostel-management-backend",
		})
	})
	if cfg.Server.MetricsEnabled && m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	setup := middleware.RequireRole(models.RoleAdmin, models.RoleManager)

	// Auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", middleware.AuthMiddleware(), authHandler.Me)
		auth.POST("/register", middleware.AuthMiddleware(), middleware.RequireRole(models.RoleAdmin), authHandler.Register)
	}

	api := r.Group("")
	api.Use(middleware.AuthMiddleware())

	allotments := api.Group("/allotments")
	{
		allotments.POST("/allocate", allotmentHandler.Allocate)
		allotments.POST("/deallocate", allotmentHandler.Deallocate)
		allotments.POST("/transfer", allotmentHandler.Transfer)
		allotments.POST("/extend", allotmentHandler.Extend)
		allotments.GET("/current", allotmentHandler.Current)
		allotments.GET("/history", allotmentHandler.History)
	}

	trainees := api.Group("/trainees")
	{
		trainees.GET("", traineeHandler.List)
		trainees.POST("", traineeHandler.Create)
		trainees.GET("/block/:block", traineeHandler.ByBlock)
		trainees.GET("/:id", traineeHandler.Get)
		trainees.PUT("/:id", traineeHandler.Update)
		trainees.PUT("/:id/checkout", traineeHandler.Checkout)
		trainees.DELETE("/:id", traineeHandler.Delete)
	}

	rooms := api.Group("/rooms")
	{
		rooms.GET("", roomHandler.GetRooms)
		rooms.GET("/available", roomHandler.Available)
		rooms.GET("/:block/:number", roomHandler.GetRoom)
		rooms.POST("", setup, roomHandler.CreateRoom)
		rooms.PUT("/:block/:number", setup, roomHandler.UpdateRoom)
		rooms.DELETE("/:block/:number", setup, roomHandler.DeleteRoom)
		rooms.POST("/:block/:number/maintenance", setup, roomHandler.AddMaintenance)
	}

	amenities := api.Group("/amenities")
	{
		amenities.GET("", amenityHandler.List)
		amenities.GET("/alerts/low-stock", amenityHandler.LowStock)
		amenities.GET("/summary/category", amenityHandler.CategorySummary)
		amenities.GET("/trainees/all", amenityHandler.AllTrainees)
		amenities.GET("/trainee/:traineeId", amenityHandler.TraineeAmenities)
		amenities.POST("/allocate", amenityHandler.Allocate)
		amenities.POST("/return", amenityHandler.Return)
		amenities.GET("/:id", amenityHandler.Get)
		amenities.POST("", setup, amenityHandler.Create)
		amenities.PUT("/:id", setup, amenityHandler.Update)
		amenities.DELETE("/:id", setup, amenityHandler.Delete)
		amenities.POST("/:id/restock", setup, amenityHandler.Restock)
		amenities.POST("/:id/dispose", setup, amenityHandler.Dispose)
	}

	reports := api.Group("/reports")
	{
		reports.GET("/dashboard", reportHandler.Dashboard)
		reports.GET("/occupancy", reportHandler.Occupancy)
		reports.GET("/upcoming", reportHandler.Upcoming)
		reports.GET("/export/allotments", reportHandler.ExportAllotments)
		reports.GET("/integrity", setup, reportHandler.Integrity)
	}

	return r, nil
}
