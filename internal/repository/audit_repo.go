package repository

import (
	"context"

	"hostel-management-backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// CreateAuditLog creates a new audit log entry
func (r *AuditRepo) CreateAuditLog(ctx context.Context, userID *uint, action, details string, metadata map[string]interface{}) error {
	log := &models.AuditLog{
		UserID:  userID,
		Action:  action,
		Details: details,
	}
	if len(metadata) > 0 {
		log.Metadata = datatypes.JSONMap(metadata)
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// Recent returns the newest audit entries first
func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
