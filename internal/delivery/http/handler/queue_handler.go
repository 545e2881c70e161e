package handler

import (
	"net/http"

	"emergency-triage/internal/converter"
	"emergency-triage/internal/domain/entity"
	"emergency-triage/internal/usecase"
	"emergency-triage/pkg/response"
)

// BoardSource serves the latest fanned-out board, nil before the first load
type BoardSource interface {
	Latest() *entity.BoardSnapshot
}

type QueueHandler struct {
	queueUsecase usecase.QueueUsecase
	boards       BoardSource
}

func NewQueueHandler(queueUsecase usecase.QueueUsecase, boards BoardSource) *QueueHandler {
	return &QueueHandler{
		queueUsecase: queueUsecase,
		boards:       boards,
	}
}

func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.queueUsecase.GetQueue(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get queue")
		return
	}

	response.Success(w, http.StatusOK, "Queue retrieved successfully", queue)
}

func (h *QueueHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queueUsecase.GetStatistics(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get statistics")
		return
	}

	response.Success(w, http.StatusOK, "Statistics retrieved successfully", stats)
}

// GetBoard answers from the hub when it has a board, else loads one.
func (h *QueueHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	var board *entity.BoardSnapshot
	if h.boards != nil {
		board = h.boards.Latest()
	}
	if board == nil {
		loaded, err := h.queueUsecase.Board(r.Context())
		if err != nil {
			response.InternalServerError(w, "Failed to get board")
			return
		}
		board = loaded
	}

	response.Success(w, http.StatusOK, "Board retrieved successfully", converter.BoardToResponse(board))
}
