package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"rally-backend/internal/middleware"
	"rally-backend/internal/models"
)

type timerService interface {
	Start(ctx context.Context, userID uuid.UUID, req models.StartTimerRequest) (*models.TimerStartResult, error)
	Pause(ctx context.Context, userID uuid.UUID, mode string) (*models.TimerPauseResult, error)
	Heartbeat(ctx context.Context, userID uuid.UUID) (*models.TimerHeartbeatResult, error)
	Status(ctx context.Context, userID uuid.UUID, mode string) (*models.TimerStatus, error)
}

type TimerHandler struct {
	timer timerService
}

func NewTimerHandler(timer timerService) *TimerHandler {
	return &TimerHandler{timer: timer}
}

func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.StartTimerRequest
	if err := decodeJSON(r, &req, true); err != nil {
		badBody(w, r)
		return
	}

	result, err := h.timer.Start(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *TimerHandler) Pause(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.ModeRequest
	if err := decodeJSON(r, &req, true); err != nil {
		badBody(w, r)
		return
	}

	result, err := h.timer.Pause(r.Context(), userID, req.Mode)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *TimerHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	result, err := h.timer.Heartbeat(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *TimerHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.timer.Status(r.Context(), middleware.GetUserID(r.Context()), r.URL.Query().Get("mode"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
