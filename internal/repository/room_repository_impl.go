package repository

import (
	"context"
	"errors"

	"emergency-triage/internal/domain/entity"
	domainRepo "emergency-triage/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type roomRepository struct{}

func NewRoomRepository() domainRepo.RoomRepository {
	return &roomRepository{}
}

func (r *roomRepository) Create(ctx context.Context, db *gorm.DB, room *entity.Room) error {
	return db.WithContext(ctx).Create(room).Error
}

func (r *roomRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Room, error) {
	return r.first(ctx, db, "id = ?", id)
}

func (r *roomRepository) FindByLabel(ctx context.Context, db *gorm.DB, label string) (*entity.Room, error) {
	return r.first(ctx, db, "label = ?", label)
}

func (r *roomRepository) FindByOccupant(ctx context.Context, db *gorm.DB, patientID uuid.UUID) (*entity.Room, error) {
	return r.first(ctx, db, "occupant_id = ?", patientID)
}

func (r *roomRepository) FindAll(ctx context.Context, db *gorm.DB) ([]entity.Room, error) {
	var rooms []entity.Room
	if err := db.WithContext(ctx).Order("label ASC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) FindAvailable(ctx context.Context, db *gorm.DB) ([]entity.Room, error) {
	var rooms []entity.Room
	err := db.WithContext(ctx).
		Where("status = ?", entity.RoomStatusAvailable).
		Order("label ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.Room{}).Count(&count).Error
	return count, err
}

// Occupy atomically claims the room ONLY if it is available.
// Returns affected rows: 1 = success, 0 = taken by someone else (or missing).
func (r *roomRepository) Occupy(ctx context.Context, db *gorm.DB, id uuid.UUID, patient *entity.Patient) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Room{}).
		Where("id = ? AND status = ?", id, entity.RoomStatusAvailable).
		Updates(map[string]interface{}{
			"status":        entity.RoomStatusOccupied,
			"occupant_id":   patient.ID,
			"occupant_name": patient.Name,
			"version":       gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

// Vacate frees the room ONLY if it is occupied by occupantID, so a double
// release (or a release racing a re-assign) changes nothing.
func (r *roomRepository) Vacate(ctx context.Context, db *gorm.DB, id uuid.UUID, occupantID *uuid.UUID) (int64, error) {
	q := db.WithContext(ctx).Model(&entity.Room{}).
		Where("id = ? AND status = ?", id, entity.RoomStatusOccupied)
	if occupantID != nil {
		q = q.Where("occupant_id = ?", *occupantID)
	} else {
		q = q.Where("occupant_id IS NULL")
	}
	result := q.Updates(map[string]interface{}{
		"status":        entity.RoomStatusAvailable,
		"occupant_id":   nil,
		"occupant_name": "",
		"version":       gorm.Expr("version + 1"),
	})
	return result.RowsAffected, result.Error
}

func (r *roomRepository) first(ctx context.Context, db *gorm.DB, query string, args ...interface{}) (*entity.Room, error) {
	var room entity.Room
	err := db.WithContext(ctx).Where(query, args...).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}
