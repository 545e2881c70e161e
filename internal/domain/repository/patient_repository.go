package repository

import (
	"context"
	"time"

	"emergency-triage/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository interface {
	Create(ctx context.Context, db *gorm.DB, patient *entity.Patient) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Patient, error)
	FindActiveByIdentityKey(ctx context.Context, db *gorm.DB, key string) (*entity.Patient, error)
	FindWaiting(ctx context.Context, db *gorm.DB) ([]entity.Patient, error)
	Search(ctx context.Context, db *gorm.DB, query string, limit int) ([]entity.Patient, error)
	MaxTokenNumber(ctx context.Context, db *gorm.DB) (int64, error)

	// Compare-and-write transitions. They return the affected row count;
	// 0 means the patient was not in the expected status.
	MarkAssigned(ctx context.Context, db *gorm.DB, id uuid.UUID, room *entity.Room) (int64, error)
	MarkDischarged(ctx context.Context, db *gorm.DB, id uuid.UUID, from entity.PatientStatus, at time.Time) (int64, error)
}
