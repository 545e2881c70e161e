package repository

import (
	"context"
	"errors"

	"emergency-triage/internal/domain/entity"
	domainRepo "emergency-triage/internal/domain/repository"

	"gorm.io/gorm"
)

type auditLogRepository struct{}

func NewAuditLogRepository() domainRepo.AuditLogRepository {
	return &auditLogRepository{}
}

func (r *auditLogRepository) Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error {
	return db.WithContext(ctx).Create(log).Error
}

// FindPage lists the newest entries first along with the total match count.
// An empty entityID lists everything.
func (r *auditLogRepository) FindPage(ctx context.Context, db *gorm.DB, entityID string, offset, limit int) ([]entity.AuditLog, int64, error) {
	scoped := func() *gorm.DB {
		q := db.WithContext(ctx).Model(&entity.AuditLog{})
		if entityID != "" {
			q = q.Where("entity_id = ?", entityID)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []entity.AuditLog
	if err := scoped().Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *auditLogRepository) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.AuditLog, error) {
	var log entity.AuditLog
	err := db.WithContext(ctx).Where("id = ?", id).First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}
