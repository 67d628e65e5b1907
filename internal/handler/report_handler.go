package handler

import (
	"fmt"
	"net/http"
	"time"

	"hostel-management-backend/internal/service"
	"hostel-management-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	reportService *service.ReportService
	workerService *service.WorkerService
	log           *zap.Logger
}

func NewReportHandler(reportService *service.ReportService, workerService *service.WorkerService, log *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		workerService: workerService,
		log:           log,
	}
}

func (h *ReportHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.reportService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to build dashboard")
		return
	}
	utils.SuccessResponse(c, dashboard)
}

func (h *ReportHandler) Occupancy(c *gin.Context) {
	occupancy, err := h.reportService.Occupancy(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to build occupancy report")
		return
	}
	utils.SuccessResponse(c, occupancy)
}

// Upcoming lists trainees due to check out within ?days (default 7)
func (h *ReportHandler) Upcoming(c *gin.Context) {
	days, ok := optionalInt(c, "days")
	if !ok {
		return
	}
	window := 7
	if days != nil {
		window = *days
	}

	trainees, err := h.reportService.Upcoming(c.Request.Context(), window)
	if err != nil {
		respondError(c, h.log, err, "Failed to list upcoming checkouts")
		return
	}
	utils.SuccessResponse(c, trainees)
}

// ExportAllotments streams the current allotments as an xlsx workbook
func (h *ReportHandler) ExportAllotments(c *gin.Context) {
	block, ok := optionalBlock(c, c.Query("block"))
	if !ok {
		return
	}

	data, err := h.reportService.ExportAllotments(c.Request.Context(), block)
	if err != nil {
		respondError(c, h.log, err, "Failed to export allotments")
		return
	}

	filename := fmt.Sprintf("allotments-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Integrity runs the consistency scan on demand
func (h *ReportHandler) Integrity(c *gin.Context) {
	report, err := h.workerService.Scan(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to run integrity scan")
		return
	}
	utils.SuccessResponse(c, report)
}
