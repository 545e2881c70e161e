package converter

import (
	"emergency-triage/internal/delivery/dto"
	"emergency-triage/internal/domain/entity"
)

// RoomToResponse converts a Room entity to RoomResponse DTO
func RoomToResponse(room *entity.Room) *dto.RoomResponse {
	if room == nil {
		return nil
	}

	return &dto.RoomResponse{
		ID:           room.ID,
		Label:        room.Label,
		Status:       string(room.Status),
		OccupantID:   room.OccupantID,
		OccupantName: room.OccupantName,
		Version:      room.Version,
		UpdatedAt:    room.UpdatedAt,
	}
}

func RoomsToResponses(rooms []entity.Room) []dto.RoomResponse {
	responses := make([]dto.RoomResponse, len(rooms))
	for i := range rooms {
		responses[i] = *RoomToResponse(&rooms[i])
	}
	return responses
}
