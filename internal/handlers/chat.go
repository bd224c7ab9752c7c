package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"rally-backend/internal/middleware"
	"rally-backend/internal/models"
)

type chatService interface {
	ListRooms(ctx context.Context, userID uuid.UUID) (*models.ChatRoomList, error)
	OpenDM(ctx context.Context, userID uuid.UUID, req models.CreateRoomRequest) (*models.ChatRoom, bool, error)
	Messages(ctx context.Context, userID uuid.UUID, rawRoomID, rawCursor string) (*models.MessagePage, error)
	Send(ctx context.Context, userID uuid.UUID, req models.SendMessageRequest) (*models.Message, error)
}

type ChatHandler struct {
	chat chatService
}

func NewChatHandler(chat chatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Rooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.chat.ListRooms(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// CreateRoom returns 201 for a new DM and 200 when the pair already had one.
func (h *ChatHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoomRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	room, created, err := h.chat.OpenDM(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{"room": room})
}

func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.chat.Messages(r.Context(), middleware.GetUserID(r.Context()), q.Get("roomId"), q.Get("cursor"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	msg, err := h.chat.Send(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": msg})
}
