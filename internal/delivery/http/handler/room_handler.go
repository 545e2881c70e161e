package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"emergency-triage/internal/delivery/dto"
	"emergency-triage/internal/usecase"
	"emergency-triage/pkg/response"
	"emergency-triage/pkg/validator"
)

type RoomHandler struct {
	roomUsecase usecase.RoomUsecase
	validator   *validator.CustomValidator
}

func NewRoomHandler(roomUsecase usecase.RoomUsecase, validator *validator.CustomValidator) *RoomHandler {
	return &RoomHandler{
		roomUsecase: roomUsecase,
		validator:   validator,
	}
}

func (h *RoomHandler) GetAllRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomUsecase.ListRooms(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get rooms")
		return
	}

	response.Success(w, http.StatusOK, "Rooms retrieved successfully", rooms)
}

func (h *RoomHandler) GetAvailableRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomUsecase.ListAvailable(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get available rooms")
		return
	}

	response.Success(w, http.StatusOK, "Available rooms retrieved successfully", rooms)
}

func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	room, err := h.roomUsecase.CreateRoom(r.Context(), &req)
	if err != nil {
		writeRoomError(w, err, "Failed to create room")
		return
	}

	response.Success(w, http.StatusCreated, "Room created successfully", room)
}

func (h *RoomHandler) AssignRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := parseID(w, r, "Invalid room ID")
	if !ok {
		return
	}

	var req dto.AssignRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	allocation, err := h.roomUsecase.Assign(r.Context(), roomID, req.PatientID)
	if err != nil {
		writeRoomError(w, err, "Failed to assign room")
		return
	}

	response.Success(w, http.StatusOK, "Room assigned successfully", allocation)
}

func (h *RoomHandler) ReleaseRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := parseID(w, r, "Invalid room ID")
	if !ok {
		return
	}

	allocation, err := h.roomUsecase.Release(r.Context(), roomID)
	if err != nil {
		writeRoomError(w, err, "Failed to release room")
		return
	}

	response.Success(w, http.StatusOK, "Room released successfully", allocation)
}

func writeRoomError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrRoomNotFound):
		response.NotFound(w, "Room not found")
	case errors.Is(err, usecase.ErrPatientNotFound):
		response.NotFound(w, "Patient not found")
	case errors.Is(err, usecase.ErrInvalidRoomLabel):
		response.Error(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, usecase.ErrRoomAlreadyOccupied),
		errors.Is(err, usecase.ErrRoomNotOccupied),
		errors.Is(err, usecase.ErrInvalidPatientState),
		errors.Is(err, usecase.ErrRoomLabelExists):
		response.Conflict(w, err.Error(), nil)
	default:
		response.InternalServerError(w, fallback)
	}
}
