package converter

import (
	"emergency-triage/internal/delivery/dto"
	"emergency-triage/internal/domain/entity"
)

func StatisticsToResponse(s entity.Statistics) dto.StatisticsResponse {
	return dto.StatisticsResponse{
		Total:     s.Total,
		Critical:  s.Critical,
		Urgent:    s.Urgent,
		NonUrgent: s.NonUrgent,
	}
}

// BoardToResponse renders a snapshot; wait times are as of GeneratedAt.
func BoardToResponse(b *entity.BoardSnapshot) *dto.BoardResponse {
	if b == nil {
		return nil
	}

	return &dto.BoardResponse{
		Revision:    b.Revision,
		GeneratedAt: b.GeneratedAt,
		Queue:       QueueToResponses(b.Queue, b.GeneratedAt),
		Rooms:       RoomsToResponses(b.Rooms),
		Statistics:  StatisticsToResponse(b.Statistics),
	}
}
