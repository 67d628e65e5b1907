package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostel-management-backend/internal/config"
	"hostel-management-backend/internal/database"
	"hostel-management-backend/internal/handler"
	"hostel-management-backend/internal/logger"
	"hostel-management-backend/internal/metrics"
	"hostel-management-backend/internal/repository"
	"hostel-management-backend/internal/service"
	"hostel-management-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg := config.LoadConfig()

	// 2. Build the logger
	zapLog, err := logger.New(cfg.Log.Level, cfg.Log.Format, "hostel-management-backend")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()

	// 3. Initialize JWT utilities with config
	utils.InitJWT(cfg.JWT.AccessSecret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)

	// 4. Open the store
	store, err := openStore(cfg, zapLog)
	if err != nil {
		zapLog.Fatal("Failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}

	// 5. Metrics
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// 6. Initialize services
	authService := service.NewAuthService(store, zapLog)
	services := handler.Services{
		Auth:       authService,
		Allocation: service.NewAllocationService(store, zapLog, m),
		Trainees:   service.NewTraineeService(store, zapLog),
		Rooms:      service.NewRoomService(store, zapLog),
		Inventory:  service.NewInventoryService(store, zapLog, m),
		Reports:    service.NewReportService(store, zapLog),
		Worker:     service.NewWorkerService(store, zapLog, m, cfg.Worker.Interval),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := authService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		zapLog.Fatal("Failed to create bootstrap administrator", zap.Error(err))
	}

	// 7. Start background worker in goroutine
	go services.Worker.Start(ctx)

	// 8. Setup Gin router
	gin.SetMode(cfg.Server.GinMode)
	r, err := handler.SetupRouter(cfg, zapLog, m, services)
	if err != nil {
		zapLog.Fatal("Failed to set up router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 9. Serve until interrupted
	go func() {
		zapLog.Info("Server starting", zap.String("port", cfg.Server.Port), zap.String("db_driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLog.Info("Shutting down server...")

	// Stop the worker before draining requests
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLog.Info("Server exited")
}

func openStore(cfg *config.Config, zapLog *zap.Logger) (repository.Store, error) {
	if cfg.Database.Driver == "memory" {
		zapLog.Warn("Using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), nil
	}

	db, err := database.Connect(cfg, zapLog)
	if err != nil {
		return nil, err
	}
	return repository.NewGormStore(db), nil
}
