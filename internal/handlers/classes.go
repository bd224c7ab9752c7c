package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"rally-backend/internal/middleware"
	"rally-backend/internal/models"
)

type classService interface {
	List(ctx context.Context, viewer uuid.UUID, f models.ClassFilter) (*models.ClassList, error)
	Join(ctx context.Context, userID uuid.UUID, req models.ClassMembershipRequest) (*models.JoinClassResult, error)
	Leave(ctx context.Context, userID uuid.UUID, req models.ClassMembershipRequest) error
	ForUser(ctx context.Context, userID uuid.UUID) ([]models.Class, error)
}

type ClassHandler struct {
	classes classService
}

func NewClassHandler(classes classService) *ClassHandler {
	return &ClassHandler{classes: classes}
}

func (h *ClassHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ClassFilter{
		Search:     q.Get("search"),
		Semester:   q.Get("semester"),
		JoinedOnly: q.Get("joined") == "true",
	}
	// Unparseable numbers fall back to the service defaults.
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	list, err := h.classes.List(r.Context(), middleware.GetUserID(r.Context()), filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ClassHandler) Mine(w http.ResponseWriter, r *http.Request) {
	classes, err := h.classes.ForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"classes": classes})
}

func (h *ClassHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req models.ClassMembershipRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	result, err := h.classes.Join(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ClassHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req models.ClassMembershipRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	if err := h.classes.Leave(r.Context(), middleware.GetUserID(r.Context()), req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
