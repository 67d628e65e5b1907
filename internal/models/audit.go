package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog represents the audit_logs table
// Every allocation operation leaves one entry, including partial amenity failures.
type AuditLog struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    *uint             `gorm:"index" json:"userId"`
	Action    string            `gorm:"size:100;not null;index" json:"action"`
	Details   string            `gorm:"type:text" json:"details"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// TableName specifies the table name for AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}
