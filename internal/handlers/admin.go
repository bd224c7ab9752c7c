package handlers

import (
	"context"
	"net/http"

	"rally-backend/internal/models"
)

type adminService interface {
	Stats(ctx context.Context) (*models.AdminStats, error)
	CreateClasses(ctx context.Context, inputs []models.BulkClassInput) *models.BulkResult
	CreateLocations(ctx context.Context, inputs []models.BulkLocationInput) *models.BulkResult
}

type AdminHandler struct {
	admin adminService
}

func NewAdminHandler(admin adminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// CreateClasses takes a bare JSON array of classes.
func (h *AdminHandler) CreateClasses(w http.ResponseWriter, r *http.Request) {
	var inputs []models.BulkClassInput
	if err := decodeJSON(r, &inputs, false); err != nil {
		badBody(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.admin.CreateClasses(r.Context(), inputs))
}

func (h *AdminHandler) CreateLocations(w http.ResponseWriter, r *http.Request) {
	var inputs []models.BulkLocationInput
	if err := decodeJSON(r, &inputs, false); err != nil {
		badBody(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.admin.CreateLocations(r.Context(), inputs))
}
