package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rally-backend/internal/middleware"
	"rally-backend/internal/models"
)

type leaderboardService interface {
	School(ctx context.Context, viewer uuid.UUID, cursor string) (*models.SchoolLeaderboard, error)
	Location(ctx context.Context, viewer, locationID uuid.UUID) (*models.LocationLeaderboard, error)
}

type LeaderboardHandler struct {
	boards leaderboardService
}

func NewLeaderboardHandler(boards leaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{boards: boards}
}

func (h *LeaderboardHandler) School(w http.ResponseWriter, r *http.Request) {
	board, err := h.boards.School(r.Context(), middleware.GetUserID(r.Context()), r.URL.Query().Get("cursor"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *LeaderboardHandler) Location(w http.ResponseWriter, r *http.Request) {
	locationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_ID", "Invalid location ID", r))
		return
	}

	board, err := h.boards.Location(r.Context(), middleware.GetUserID(r.Context()), locationID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}
