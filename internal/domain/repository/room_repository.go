package repository

import (
	"context"

	"emergency-triage/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoomRepository interface {
	Create(ctx context.Context, db *gorm.DB, room *entity.Room) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Room, error)
	FindByLabel(ctx context.Context, db *gorm.DB, label string) (*entity.Room, error)
	FindByOccupant(ctx context.Context, db *gorm.DB, patientID uuid.UUID) (*entity.Room, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]entity.Room, error)
	FindAvailable(ctx context.Context, db *gorm.DB) ([]entity.Room, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)

	// Occupy only succeeds on an available room. Vacate only succeeds while
	// the room is still held by occupantID (nil matches an empty occupant).
	Occupy(ctx context.Context, db *gorm.DB, id uuid.UUID, patient *entity.Patient) (int64, error)
	Vacate(ctx context.Context, db *gorm.DB, id uuid.UUID, occupantID *uuid.UUID) (int64, error)
}
