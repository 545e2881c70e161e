package service

import (
	"context"

	"emergency-triage/internal/domain/entity"
	"emergency-triage/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuditEntry describes one mutation. Before is nil for creations.
type AuditEntry struct {
	StaffID  *uuid.UUID
	Action   string
	Entity   string
	EntityID string
	Before   interface{}
	After    interface{}
}

type AuditService interface {
	Record(ctx context.Context, tx *gorm.DB, entry AuditEntry) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

// Record writes the entry through tx so it commits or rolls back with the change.
func (s *auditService) Record(ctx context.Context, tx *gorm.DB, entry AuditEntry) error {
	auditLog := &entity.AuditLog{
		StaffID:  entry.StaffID,
		Action:   entry.Action,
		EntityID: entry.EntityID,
		Metadata: entity.JSON{
			"entity":    entry.Entity,
			"entity_id": entry.EntityID,
			"old_value": entry.Before,
			"new_value": entry.After,
		},
	}

	if err := s.auditRepo.Create(ctx, tx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log for %s %s: %+v", entry.Action, entry.EntityID, err)
		return err
	}
	return nil
}
