package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"emergency-triage/internal/converter"
	"emergency-triage/internal/delivery/dto"
	"emergency-triage/internal/domain/entity"
	"emergency-triage/internal/usecase"
	"emergency-triage/pkg/response"
	"emergency-triage/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type PatientHandler struct {
	patientUsecase usecase.PatientUsecase
	validator      *validator.CustomValidator
}

func NewPatientHandler(patientUsecase usecase.PatientUsecase, validator *validator.CustomValidator) *PatientHandler {
	return &PatientHandler{
		patientUsecase: patientUsecase,
		validator:      validator,
	}
}

func (h *PatientHandler) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	patient, err := h.patientUsecase.Register(r.Context(), &req)
	if err != nil {
		writePatientError(w, err, "Failed to register patient")
		return
	}

	response.Success(w, http.StatusCreated, "Patient registered successfully", patient)
}

func (h *PatientHandler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patientUsecase.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writePatientError(w, err, "Failed to search patients")
		return
	}

	response.Success(w, http.StatusOK, "Patients retrieved successfully", patients)
}

func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patientID, ok := parseID(w, r, "Invalid patient ID")
	if !ok {
		return
	}

	patient, err := h.patientUsecase.Get(r.Context(), patientID)
	if err != nil {
		writePatientError(w, err, "Failed to get patient")
		return
	}

	response.Success(w, http.StatusOK, "Patient retrieved successfully", patient)
}

func (h *PatientHandler) DischargePatient(w http.ResponseWriter, r *http.Request) {
	patientID, ok := parseID(w, r, "Invalid patient ID")
	if !ok {
		return
	}

	patient, err := h.patientUsecase.Discharge(r.Context(), patientID)
	if err != nil {
		writePatientError(w, err, "Failed to discharge patient")
		return
	}

	response.Success(w, http.StatusOK, "Patient discharged successfully", patient)
}

func (h *PatientHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	patientID, ok := parseID(w, r, "Invalid patient ID")
	if !ok {
		return
	}

	var req dto.UpdatePatientStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	patient, err := h.patientUsecase.SetStatus(r.Context(), patientID, entity.PatientStatus(req.Status))
	if err != nil {
		writePatientError(w, err, "Failed to update patient status")
		return
	}

	response.Success(w, http.StatusOK, "Patient status updated successfully", patient)
}

func (h *PatientHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req dto.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	analysis, err := h.patientUsecase.Analyze(r.Context(), &req)
	if err != nil {
		writePatientError(w, err, "Failed to analyze symptoms")
		return
	}

	response.Success(w, http.StatusOK, "Analysis completed", analysis)
}

func writePatientError(w http.ResponseWriter, err error, fallback string) {
	var dup *usecase.DuplicatePatientError
	switch {
	case errors.As(err, &dup):
		response.Conflict(w, "Patient is already active", converter.PatientToResponse(dup.Existing, time.Now()))
	case errors.Is(err, usecase.ErrPatientNotFound):
		response.NotFound(w, "Patient not found")
	case errors.Is(err, usecase.ErrInvalidPatient),
		errors.Is(err, usecase.ErrSearchQueryTooShort),
		errors.Is(err, usecase.ErrRoomRequired):
		response.Error(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, usecase.ErrRoomNotOccupied):
		response.Conflict(w, err.Error(), nil)
	default:
		response.InternalServerError(w, fallback)
	}
}

func parseID(w http.ResponseWriter, r *http.Request, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, message, nil)
		return uuid.Nil, false
	}
	return id, true
}
