package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type VitalsRequest struct {
	BloodPressure string   `json:"blood_pressure" validate:"omitempty,max=20"`
	Pulse         *int     `json:"pulse" validate:"omitempty,gte=0,lte=400"`
	Temperature   *float64 `json:"temperature" validate:"omitempty,gte=0,lte=120"`
}

// AdvisoryInput is an analysis the station already obtained (the analyze
// preview), sent along so the server does not ask again.
type AdvisoryInput struct {
	Priority         string   `json:"priority" validate:"required"`
	Confidence       float64  `json:"confidence" validate:"gte=0,lte=1"`
	Reasoning        string   `json:"reasoning" validate:"max=1000"`
	DetectedSymptoms []string `json:"detected_symptoms"`
}

type RegisterPatientRequest struct {
	Name      string         `json:"name" validate:"required,max=150"`
	Age       int            `json:"age" validate:"required,gt=0,lte=150"`
	Contact   string         `json:"contact" validate:"required,max=50"`
	Complaint string         `json:"complaint" validate:"required,min=3"`
	Symptoms  []string       `json:"symptoms" validate:"max=20,dive,max=50"`
	Vitals    VitalsRequest  `json:"vitals"`
	Advisory  *AdvisoryInput `json:"advisory,omitempty"`
}

type UpdatePatientStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=waiting assigned discharged"`
}

// Response DTOs

type VitalsResponse struct {
	BloodPressure string   `json:"blood_pressure,omitempty"`
	Pulse         *int     `json:"pulse,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
}

type PatientResponse struct {
	ID                 uuid.UUID      `json:"id"`
	TokenNumber        int64          `json:"token_number"`
	Name               string         `json:"name"`
	Age                int            `json:"age"`
	Contact            string         `json:"contact"`
	Complaint          string         `json:"complaint"`
	Symptoms           []string       `json:"symptoms"`
	Vitals             VitalsResponse `json:"vitals"`
	Urgency            string         `json:"urgency"`
	UrgencyLabel       string         `json:"urgency_label"`
	Rationale          string         `json:"rationale"`
	UrgencySource      string         `json:"urgency_source"`
	AdvisoryConfidence *float64       `json:"advisory_confidence,omitempty"`
	DetectedSymptoms   []string       `json:"detected_symptoms,omitempty"`
	Status             string         `json:"status"`
	CheckInAt          time.Time      `json:"check_in_at"`
	WaitMinutes        int            `json:"wait_minutes"`
	AssignedRoomID     *uuid.UUID     `json:"assigned_room_id,omitempty"`
	AssignedRoomLabel  string         `json:"assigned_room_label,omitempty"`
	DischargedAt       *time.Time     `json:"discharged_at,omitempty"`
	Version            int64          `json:"version"`
}

type PatientListResponse struct {
	Patients []PatientResponse `json:"patients"`
	Total    int               `json:"total"`
}
