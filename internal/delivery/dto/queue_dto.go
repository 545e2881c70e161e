package dto

import "time"

type StatisticsResponse struct {
	Total     int `json:"total"`
	Critical  int `json:"critical"`
	Urgent    int `json:"urgent"`
	NonUrgent int `json:"non_urgent"`
}

type QueueEntryResponse struct {
	Position int `json:"position"`
	PatientResponse
}

type QueueResponse struct {
	Queue       []QueueEntryResponse `json:"queue"`
	Statistics  StatisticsResponse   `json:"statistics"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// BoardResponse is what the stream pushes to stations
type BoardResponse struct {
	Revision    int64                `json:"revision"`
	GeneratedAt time.Time            `json:"generated_at"`
	Queue       []QueueEntryResponse `json:"queue"`
	Rooms       []RoomResponse       `json:"rooms"`
	Statistics  StatisticsResponse   `json:"statistics"`
}
