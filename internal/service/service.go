package service

import (
	"context"

	"hostel-management-backend/internal/repository"

	"go.uber.org/zap"
)

// writeAudit appends an audit entry. Audit failures never fail the caller.
func writeAudit(ctx context.Context, store repository.Store, log *zap.Logger, userID uint, action, details string, metadata map[string]interface{}) {
	var uid *uint
	if userID != 0 {
		uid = &userID
	}
	if err := store.Audit().CreateAuditLog(ctx, uid, action, details, metadata); err != nil {
		log.Warn("Failed to write audit log",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
