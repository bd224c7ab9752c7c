package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"rally-backend/internal/middleware"
	"rally-backend/internal/models"
)

type locationService interface {
	List(ctx context.Context) ([]models.Location, error)
	Current(ctx context.Context, userID uuid.UUID) (*models.UserLocation, error)
	Set(ctx context.Context, userID uuid.UUID, req models.SetLocationRequest) (*models.UserLocation, error)
}

type LocationHandler struct {
	locations locationService
}

func NewLocationHandler(locations locationService) *LocationHandler {
	return &LocationHandler{locations: locations}
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locations.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"locations": locations})
}

func (h *LocationHandler) Current(w http.ResponseWriter, r *http.Request) {
	current, err := h.locations.Current(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"userLocation": current})
}

func (h *LocationHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req models.SetLocationRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	current, err := h.locations.Set(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"userLocation": current})
}
