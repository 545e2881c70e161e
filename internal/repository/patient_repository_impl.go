package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"emergency-triage/internal/domain/entity"
	domainRepo "emergency-triage/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type patientRepository struct{}

func NewPatientRepository() domainRepo.PatientRepository {
	return &patientRepository{}
}

func (r *patientRepository) Create(ctx context.Context, db *gorm.DB, patient *entity.Patient) error {
	return db.WithContext(ctx).Create(patient).Error
}

func (r *patientRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Patient, error) {
	var patient entity.Patient
	err := db.WithContext(ctx).Where("id = ?", id).First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) FindActiveByIdentityKey(ctx context.Context, db *gorm.DB, key string) (*entity.Patient, error) {
	var patient entity.Patient
	err := db.WithContext(ctx).
		Where("identity_key = ? AND status != ?", key, entity.PatientStatusDischarged).
		First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) FindWaiting(ctx context.Context, db *gorm.DB) ([]entity.Patient, error) {
	var patients []entity.Patient
	err := db.WithContext(ctx).
		Where("status = ?", entity.PatientStatusWaiting).
		Order("check_in_at ASC").
		Find(&patients).Error
	if err != nil {
		return nil, err
	}
	return patients, nil
}

// Search matches name or contact case-insensitively, newest check-in first.
func (r *patientRepository) Search(ctx context.Context, db *gorm.DB, query string, limit int) ([]entity.Patient, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	var patients []entity.Patient
	err := db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(contact) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("check_in_at DESC").
		Limit(limit).
		Find(&patients).Error
	if err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *patientRepository) MaxTokenNumber(ctx context.Context, db *gorm.DB) (int64, error) {
	var maxToken int64
	err := db.WithContext(ctx).Model(&entity.Patient{}).
		Select("COALESCE(MAX(token_number), 0)").
		Scan(&maxToken).Error
	return maxToken, err
}

// MarkAssigned moves a waiting patient into room. Returns affected rows:
// 1 = success, 0 = patient no longer waiting.
func (r *patientRepository) MarkAssigned(ctx context.Context, db *gorm.DB, id uuid.UUID, room *entity.Room) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Patient{}).
		Where("id = ? AND status = ?", id, entity.PatientStatusWaiting).
		Updates(map[string]interface{}{
			"status":              entity.PatientStatusAssigned,
			"assigned_room_id":    room.ID,
			"assigned_room_label": room.Label,
			"version":             gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

// MarkDischarged closes the record when it is still in status from. The
// identity key is released so the same person can be admitted again.
func (r *patientRepository) MarkDischarged(ctx context.Context, db *gorm.DB, id uuid.UUID, from entity.PatientStatus, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Patient{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":              entity.PatientStatusDischarged,
			"discharged_at":       at,
			"assigned_room_id":    nil,
			"assigned_room_label": "",
			"identity_key":        nil,
			"version":             gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
