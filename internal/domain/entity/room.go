package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomStatus represents the occupancy of a treatment room
type RoomStatus string

const (
	RoomStatusAvailable RoomStatus = "available"
	RoomStatusOccupied  RoomStatus = "occupied"
)

// Room is an exclusive treatment resource. Only the room allocation
// usecase writes the occupant fields.
type Room struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Label        string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"label"`
	Status       RoomStatus `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	OccupantID   *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"occupant_id,omitempty"`
	OccupantName string     `gorm:"type:varchar(150)" json:"occupant_name,omitempty"`
	Version      int64      `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Room) TableName() string {
	return "rooms"
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsAvailable checks if the room can take a patient
func (r *Room) IsAvailable() bool {
	return r.Status == RoomStatusAvailable
}

// IsOccupied checks if the room is held by a patient
func (r *Room) IsOccupied() bool {
	return r.Status == RoomStatusOccupied
}
