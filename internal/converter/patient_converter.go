package converter

import (
	"time"

	"emergency-triage/internal/delivery/dto"
	"emergency-triage/internal/domain/entity"
)

// PatientToResponse converts a Patient entity to PatientResponse DTO.
// Wait time is measured against now.
func PatientToResponse(p *entity.Patient, now time.Time) *dto.PatientResponse {
	if p == nil {
		return nil
	}

	return &dto.PatientResponse{
		ID:          p.ID,
		TokenNumber: p.TokenNumber,
		Name:        p.Name,
		Age:         p.Age,
		Contact:     p.Contact,
		Complaint:   p.Complaint,
		Symptoms:    nonNil(p.Symptoms),
		Vitals: dto.VitalsResponse{
			BloodPressure: p.Vitals.BloodPressure,
			Pulse:         p.Vitals.Pulse,
			Temperature:   p.Vitals.Temperature,
		},
		Urgency:            string(p.Urgency),
		UrgencyLabel:       p.Urgency.Label(),
		Rationale:          p.Rationale,
		UrgencySource:      string(p.UrgencySource),
		AdvisoryConfidence: p.AdvisoryConfidence,
		DetectedSymptoms:   p.DetectedSymptoms,
		Status:             string(p.Status),
		CheckInAt:          p.CheckInAt,
		WaitMinutes:        int(p.WaitDuration(now) / time.Minute),
		AssignedRoomID:     p.AssignedRoomID,
		AssignedRoomLabel:  p.AssignedRoomLabel,
		DischargedAt:       p.DischargedAt,
		Version:            p.Version,
	}
}

// PatientsToResponses converts a slice of Patient entities to slice of PatientResponse DTOs
func PatientsToResponses(patients []entity.Patient, now time.Time) []dto.PatientResponse {
	responses := make([]dto.PatientResponse, len(patients))
	for i := range patients {
		responses[i] = *PatientToResponse(&patients[i], now)
	}
	return responses
}

// QueueToResponses numbers an already ordered queue from 1
func QueueToResponses(queue []entity.Patient, now time.Time) []dto.QueueEntryResponse {
	entries := make([]dto.QueueEntryResponse, len(queue))
	for i := range queue {
		entries[i] = dto.QueueEntryResponse{
			Position:        i + 1,
			PatientResponse: *PatientToResponse(&queue[i], now),
		}
	}
	return entries
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
