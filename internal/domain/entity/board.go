package entity

import "time"

// Statistics counts the waiting set per urgency tier
type Statistics struct {
	Total     int `json:"total"`
	Critical  int `json:"critical"`
	Urgent    int `json:"urgent"`
	NonUrgent int `json:"non_urgent"`
}

// BoardSnapshot is the full state pushed to staff stations
type BoardSnapshot struct {
	Revision    int64      `json:"revision"`
	GeneratedAt time.Time  `json:"generated_at"`
	Queue       []Patient  `json:"queue"`
	Rooms       []Room     `json:"rooms"`
	Statistics  Statistics `json:"statistics"`
}
