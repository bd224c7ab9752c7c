package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rally-backend/internal/middleware"
	"rally-backend/internal/models"
)

type friendService interface {
	SendRequest(ctx context.Context, requester uuid.UUID, req models.SendFriendRequest) (*models.Friendship, error)
	Respond(ctx context.Context, userID, friendshipID uuid.UUID, req models.RespondFriendRequest) (*models.Friendship, error)
	Remove(ctx context.Context, userID, friendshipID uuid.UUID) error
	Pending(ctx context.Context, userID uuid.UUID, incoming bool) ([]models.FriendRequestView, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.FriendView, error)
}

type FriendHandler struct {
	friends friendService
}

func NewFriendHandler(friends friendService) *FriendHandler {
	return &FriendHandler{friends: friends}
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	friends, err := h.friends.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"friends": friends})
}

func (h *FriendHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.SendFriendRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	friendship, err := h.friends.SendRequest(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"friendship": friendship})
}

func (h *FriendHandler) Respond(w http.ResponseWriter, r *http.Request) {
	friendshipID, ok := friendshipParam(w, r)
	if !ok {
		return
	}

	var req models.RespondFriendRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	friendship, err := h.friends.Respond(r.Context(), middleware.GetUserID(r.Context()), friendshipID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"friendship": friendship})
}

func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	friendshipID, ok := friendshipParam(w, r)
	if !ok {
		return
	}

	if err := h.friends.Remove(r.Context(), middleware.GetUserID(r.Context()), friendshipID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Requests lists pending requests. type=sent returns the caller's outgoing
// requests under "sent"; anything else returns incoming ones under "requests".
func (h *FriendHandler) Requests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if r.URL.Query().Get("type") == "sent" {
		sent, err := h.friends.Pending(r.Context(), userID, false)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sent": sent})
		return
	}

	requests, err := h.friends.Pending(r.Context(), userID, true)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

func friendshipParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_ID", "Invalid friendship ID", r))
		return uuid.Nil, false
	}
	return id, true
}
