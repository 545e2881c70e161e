package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateRoomRequest struct {
	Label string `json:"label" validate:"required,max=50"`
}

type AssignRoomRequest struct {
	PatientID uuid.UUID `json:"patient_id" validate:"required"`
}

// Response DTOs

type RoomResponse struct {
	ID           uuid.UUID  `json:"id"`
	Label        string     `json:"label"`
	Status       string     `json:"status"`
	OccupantID   *uuid.UUID `json:"occupant_id,omitempty"`
	OccupantName string     `json:"occupant_name,omitempty"`
	Version      int64      `json:"version"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type RoomListResponse struct {
	Rooms []RoomResponse `json:"rooms"`
	Total int            `json:"total"`
}

// AllocationResponse shows both sides of an assign or release
type AllocationResponse struct {
	Room    RoomResponse    `json:"room"`
	Patient PatientResponse `json:"patient"`
}
