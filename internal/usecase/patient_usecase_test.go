package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"emergency-triage/internal/delivery/dto"
	"emergency-triage/internal/delivery/http/middleware"
	"emergency-triage/internal/domain/entity"
	"emergency-triage/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerReq(name, contact string, symptoms ...string) *dto.RegisterPatientRequest {
	return &dto.RegisterPatientRequest{
		Name:      name,
		Age:       40,
		Contact:   contact,
		Complaint: "feeling unwell since morning",
		Symptoms:  symptoms,
	}
}

func TestPatientUsecase_RegisterClassifiesManually(t *testing.T) {
	env := setupEnv(t)
	staff := uuid.New()
	ctx := middleware.WithStaff(context.Background(), staff, string(entity.RoleNurse))

	resp, err := env.patients.Register(ctx, registerReq(" Jane Doe ", "555-1111", "Chest_Pain", "fever"))
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", resp.Name)
	assert.Equal(t, string(entity.UrgencyCritical), resp.Urgency)
	assert.Equal(t, "CRITICAL", resp.UrgencyLabel)
	assert.Equal(t, string(entity.UrgencySourceManual), resp.UrgencySource)
	assert.Equal(t, string(entity.PatientStatusWaiting), resp.Status)
	assert.EqualValues(t, 1, resp.TokenNumber)
	assert.Equal(t, []string{"chest_pain", "fever"}, resp.Symptoms)
	assert.Contains(t, resp.Rationale, "chest_pain")
	assert.Equal(t, []string{service.ChangePatientRegistered}, env.publisher.kinds())

	logs, err := env.audits.GetAuditLogs(context.Background(), resp.ID.String(), 0, 0)
	require.NoError(t, err)
	require.Len(t, logs.Logs, 1)
	assert.Equal(t, entity.AuditActionPatientRegister, logs.Logs[0].Action)
	require.NotNil(t, logs.Logs[0].StaffID)
	assert.Equal(t, staff, *logs.Logs[0].StaffID)

	second, err := env.patients.Register(ctx, registerReq("John Roe", "555-2222"))
	require.NoError(t, err)
	assert.Equal(t, string(entity.UrgencyNonUrgent), second.Urgency)
	assert.EqualValues(t, 2, second.TokenNumber)
}

func TestPatientUsecase_RegisterUsesAdvisory(t *testing.T) {
	env := setupEnv(t)
	env.advisor.healthy = true
	env.advisor.reply = &service.AdvisoryResponse{
		Priority:         "yellow",
		Confidence:       0.82,
		Reasoning:        "Fever with persistent cough",
		DetectedSymptoms: []string{"fever", "cough"},
	}

	resp, err := env.patients.Register(context.Background(), registerReq("Jane Doe", "555-1111", "chest_pain"))
	require.NoError(t, err)

	assert.Equal(t, string(entity.UrgencyUrgent), resp.Urgency)
	assert.Equal(t, string(entity.UrgencySourceAdvisory), resp.UrgencySource)
	require.NotNil(t, resp.AdvisoryConfidence)
	assert.InDelta(t, 0.82, *resp.AdvisoryConfidence, 1e-9)
	assert.Equal(t, []string{"cough", "fever"}, resp.DetectedSymptoms)
	assert.EqualValues(t, 1, env.advisor.calls.Load())
}

func TestPatientUsecase_RegisterPrefersStationAdvisory(t *testing.T) {
	env := setupEnv(t)
	env.advisor.healthy = true

	req := registerReq("Jane Doe", "555-1111")
	req.Advisory = &dto.AdvisoryInput{Priority: "critical", Confidence: 0.9, Reasoning: "Stroke signs"}

	resp, err := env.patients.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, string(entity.UrgencyCritical), resp.Urgency)
	assert.Equal(t, string(entity.UrgencySourceAdvisory), resp.UrgencySource)
	assert.Zero(t, env.advisor.calls.Load())
}

func TestPatientUsecase_RegisterFallsBackWhenAdvisorFails(t *testing.T) {
	env := setupEnv(t)
	env.advisor.healthy = true
	env.advisor.err = service.ErrAdvisoryUnavailable

	resp, err := env.patients.Register(context.Background(), registerReq("Jane Doe", "555-1111", "fracture"))
	require.NoError(t, err)
	assert.Equal(t, string(entity.UrgencyUrgent), resp.Urgency)
	assert.Equal(t, string(entity.UrgencySourceManual), resp.UrgencySource)
}

func TestPatientUsecase_RegisterBoundsHangingProbe(t *testing.T) {
	env := setupEnv(t)
	env.advisor.healthy = true
	env.advisor.probeDelay = 10 * time.Second

	start := time.Now()
	resp, err := env.patients.Register(context.Background(), registerReq("Jane Doe", "555-1111", "fracture"))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, string(entity.UrgencySourceManual), resp.UrgencySource)
	assert.Zero(t, env.advisor.calls.Load())
}

func TestPatientUsecase_RegisterRejectsInvalid(t *testing.T) {
	env := setupEnv(t)
	negative := -1

	tests := []struct {
		name   string
		mutate func(r *dto.RegisterPatientRequest)
	}{
		{"blank name", func(r *dto.RegisterPatientRequest) { r.Name = "   " }},
		{"blank contact", func(r *dto.RegisterPatientRequest) { r.Contact = "" }},
		{"zero age", func(r *dto.RegisterPatientRequest) { r.Age = 0 }},
		{"short complaint", func(r *dto.RegisterPatientRequest) { r.Complaint = " ab " }},
		{"negative pulse", func(r *dto.RegisterPatientRequest) { r.Vitals.Pulse = &negative }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := registerReq("Jane Doe", "555-1111")
			tt.mutate(req)
			_, err := env.patients.Register(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidPatient)
		})
	}
	assert.Empty(t, env.publisher.kinds())
}

func TestPatientUsecase_DuplicateUntilDischarged(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	first, err := env.patients.Register(ctx, registerReq("Jane Doe", "555-1111"))
	require.NoError(t, err)

	_, err = env.patients.Register(ctx, registerReq("JANE   doe", "(555) 1111"))
	var dup *DuplicatePatientError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, first.ID, dup.Existing.ID)
	assert.Contains(t, err.Error(), first.ID.String())

	discharged, err := env.patients.Discharge(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.PatientStatusDischarged), discharged.Status)
	assert.NotNil(t, discharged.DischargedAt)

	again, err := env.patients.Register(ctx, registerReq("Jane Doe", "555-1111"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
	assert.EqualValues(t, 2, again.TokenNumber)
}

func TestPatientUsecase_SetStatus(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	p, err := env.patients.Register(ctx, registerReq("Jane Doe", "555-1111"))
	require.NoError(t, err)

	_, err = env.patients.SetStatus(ctx, p.ID, entity.PatientStatusAssigned)
	assert.ErrorIs(t, err, ErrRoomRequired)

	_, err = env.patients.SetStatus(ctx, p.ID, entity.PatientStatusWaiting)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	out, err := env.patients.SetStatus(ctx, p.ID, entity.PatientStatusDischarged)
	require.NoError(t, err)
	assert.Equal(t, string(entity.PatientStatusDischarged), out.Status)

	_, err = env.patients.SetStatus(ctx, p.ID, entity.PatientStatusWaiting)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	_, err = env.patients.Discharge(ctx, p.ID)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	_, err = env.patients.SetStatus(ctx, uuid.New(), entity.PatientStatusDischarged)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestPatientUsecase_DischargeAssignedFreesRoom(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	roomID := env.createRoom(t, "ER-1")
	p, err := env.patients.Register(ctx, registerReq("Jane Doe", "555-1111"))
	require.NoError(t, err)
	_, err = env.rooms.Assign(ctx, roomID, p.ID)
	require.NoError(t, err)

	out, err := env.patients.Discharge(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.PatientStatusDischarged), out.Status)
	assert.Empty(t, out.AssignedRoomLabel)

	available, err := env.rooms.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available.Rooms, 1)
	assert.Equal(t, roomID, available.Rooms[0].ID)
}

func TestPatientUsecase_GetAndSearch(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	jane, err := env.patients.Register(ctx, registerReq("Jane Doe", "555-1111"))
	require.NoError(t, err)
	_, err = env.patients.Register(ctx, registerReq("John Smith", "555-2222"))
	require.NoError(t, err)

	got, err := env.patients.Get(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, jane.ID, got.ID)

	_, err = env.patients.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrPatientNotFound)

	found, err := env.patients.Search(ctx, "JAN")
	require.NoError(t, err)
	require.Equal(t, 1, found.Total)
	assert.Equal(t, jane.ID, found.Patients[0].ID)

	found, err = env.patients.Search(ctx, "555")
	require.NoError(t, err)
	assert.Equal(t, 2, found.Total)

	_, err = env.patients.Search(ctx, " j ")
	assert.ErrorIs(t, err, ErrSearchQueryTooShort)
}

func TestPatientUsecase_AnalyzePreview(t *testing.T) {
	env := setupEnv(t)
	pulse := 130

	resp, err := env.patients.Analyze(context.Background(), &dto.AnalyzeRequest{
		Complaint: "racing heart",
		Vitals:    dto.VitalsRequest{Pulse: &pulse},
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.UrgencyCritical), resp.Urgency)
	assert.Equal(t, string(entity.UrgencySourceManual), resp.Source)
	assert.False(t, resp.AdvisoryAvailable)
	assert.NotEmpty(t, resp.Indicators)

	env.advisor.healthy = true
	env.advisor.reply = &service.AdvisoryResponse{
		Priority:          "green",
		Confidence:        0.6,
		SuggestedSymptoms: []string{"anxiety"},
	}
	resp, err = env.patients.Analyze(context.Background(), &dto.AnalyzeRequest{Complaint: "racing heart"})
	require.NoError(t, err)
	assert.Equal(t, string(entity.UrgencyNonUrgent), resp.Urgency)
	assert.True(t, resp.AdvisoryAvailable)
	assert.Equal(t, []string{"anxiety"}, resp.SuggestedSymptoms)

	_, err = env.patients.Analyze(context.Background(), &dto.AnalyzeRequest{Complaint: "no"})
	assert.ErrorIs(t, err, ErrInvalidPatient)
}
