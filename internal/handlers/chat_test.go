package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"rally-backend/internal/models"
	"rally-backend/internal/services"
)

type stubChatService struct {
	created     bool
	roomQuery   string
	cursorQuery string
	sendErr     error
}

func (s *stubChatService) ListRooms(ctx context.Context, userID uuid.UUID) (*models.ChatRoomList, error) {
	return &models.ChatRoomList{Rooms: []models.ChatRoomView{}}, nil
}

func (s *stubChatService) OpenDM(ctx context.Context, userID uuid.UUID, req models.CreateRoomRequest) (*models.ChatRoom, bool, error) {
	return &models.ChatRoom{ID: uuid.New(), Type: models.RoomTypeDM}, s.created, nil
}

func (s *stubChatService) Messages(ctx context.Context, userID uuid.UUID, rawRoomID, rawCursor string) (*models.MessagePage, error) {
	s.roomQuery, s.cursorQuery = rawRoomID, rawCursor
	return &models.MessagePage{Messages: []models.Message{}}, nil
}

func (s *stubChatService) Send(ctx context.Context, userID uuid.UUID, req models.SendMessageRequest) (*models.Message, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &models.Message{ID: uuid.New(), SenderID: userID, Content: req.Content}, nil
}

func TestChatHandler_CreateRoom_Status(t *testing.T) {
	tests := []struct {
		name    string
		created bool
		status  int
	}{
		{"new room", true, http.StatusCreated},
		{"existing room", false, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewChatHandler(&stubChatService{created: tc.created})

			rr := httptest.NewRecorder()
			h.CreateRoom(rr, newRequest(http.MethodPost, "/api/chat/rooms", `{"type":"DM","userId":"`+uuid.New().String()+`"}`, uuid.New()))

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
		})
	}
}

func TestChatHandler_Messages_ForwardsQuery(t *testing.T) {
	svc := &stubChatService{}
	h := NewChatHandler(svc)

	rr := httptest.NewRecorder()
	h.Messages(rr, newRequest(http.MethodGet, "/api/chat/messages?roomId=r1&cursor=c1", "", uuid.New()))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if svc.roomQuery != "r1" || svc.cursorQuery != "c1" {
		t.Fatalf("unexpected query forwarding: %q %q", svc.roomQuery, svc.cursorQuery)
	}
}

func TestChatHandler_Send_NotMember(t *testing.T) {
	h := NewChatHandler(&stubChatService{sendErr: &services.ForbiddenError{Message: "Not a member of this chat room"}})

	rr := httptest.NewRecorder()
	h.Send(rr, newRequest(http.MethodPost, "/api/chat/messages", `{"roomId":"x","content":"hi"}`, uuid.New()))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}
}
