package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"rally-backend/internal/logging"
	"rally-backend/internal/models"
)

const (
	messagePageSize = 50

	// EventChatMessage is pushed to room members when a message is sent.
	EventChatMessage = "chat.message"
)

type ChatService struct {
	chat     ChatStore
	users    UserStore
	notifier Notifier
	now      func() time.Time
}

func NewChatService(chat ChatStore, users UserStore, notifier Notifier) *ChatService {
	return &ChatService{chat: chat, users: users, notifier: notifier, now: time.Now}
}

// ListRooms returns the user's rooms, also split by type for the client tabs.
func (s *ChatService) ListRooms(ctx context.Context, userID uuid.UUID) (*models.ChatRoomList, error) {
	rooms, err := s.chat.ListRoomsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	out := &models.ChatRoomList{
		Rooms:      []models.ChatRoomView{},
		ClassRooms: []models.ChatRoomView{},
		DMRooms:    []models.ChatRoomView{},
	}
	for _, room := range rooms {
		out.Rooms = append(out.Rooms, room)
		if room.Type == models.RoomTypeClass {
			out.ClassRooms = append(out.ClassRooms, room)
		} else {
			out.DMRooms = append(out.DMRooms, room)
		}
	}
	return out, nil
}

// OpenDM returns the direct-message room between the two users, creating it
// on first contact. created reports whether a new room was made.
func (s *ChatService) OpenDM(ctx context.Context, userID uuid.UUID, req models.CreateRoomRequest) (room *models.ChatRoom, created bool, err error) {
	if req.Type != "" && req.Type != models.RoomTypeDM {
		return nil, false, invalid("type", "Only DM rooms can be created")
	}
	otherID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		return nil, false, invalid("userId", "A valid user id is required")
	}
	if otherID == userID {
		return nil, false, invalid("userId", "Cannot create a chat with yourself")
	}

	exists, err := s.users.Exists(ctx, otherID)
	if err != nil {
		return nil, false, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, false, &NotFoundError{Message: "User not found"}
	}

	room, err = s.chat.FindDM(ctx, userID, otherID)
	if err == nil {
		return room, false, nil
	}
	if !isNotFound(err) {
		return nil, false, fmt.Errorf("find dm: %w", err)
	}

	room, err = s.chat.CreateDM(ctx, userID, otherID)
	if err != nil {
		if isNotFound(err) {
			return nil, false, &NotFoundError{Message: "User not found"}
		}
		return nil, false, fmt.Errorf("create dm: %w", err)
	}
	return room, true, nil
}

func (s *ChatService) requireMember(ctx context.Context, roomID, userID uuid.UUID) error {
	ok, err := s.chat.IsMember(ctx, roomID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return &ForbiddenError{Message: "Not a member of this chat room"}
	}
	return nil
}

// Messages returns one page of history, oldest first. The cursor is the id of
// the oldest message the client already has.
func (s *ChatService) Messages(ctx context.Context, userID uuid.UUID, rawRoomID, rawCursor string) (*models.MessagePage, error) {
	roomID, err := uuid.Parse(strings.TrimSpace(rawRoomID))
	if err != nil {
		return nil, invalid("roomId", "A valid room id is required")
	}
	var cursor *uuid.UUID
	if rawCursor != "" {
		c, err := uuid.Parse(rawCursor)
		if err != nil {
			return nil, invalid("cursor", "Invalid cursor")
		}
		cursor = &c
	}

	if err := s.requireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}

	messages, err := s.chat.ListMessages(ctx, roomID, cursor, messagePageSize+1)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	page := &models.MessagePage{}
	if len(messages) > messagePageSize {
		page.HasMore = true
		messages = messages[:messagePageSize]
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	if messages == nil {
		messages = []models.Message{}
	}
	page.Messages = messages
	if page.HasMore {
		next := messages[0].ID.String()
		page.NextCursor = &next
	}

	if err := s.chat.MarkRead(ctx, roomID, userID, s.now().UTC()); err != nil {
		logging.FromContext(ctx).Warn("failed to mark room read", "room_id", roomID, "error", err)
	}
	return page, nil
}

// Send stores a message and pushes it to every member's open connections.
func (s *ChatService) Send(ctx context.Context, userID uuid.UUID, req models.SendMessageRequest) (*models.Message, error) {
	roomID, err := uuid.Parse(strings.TrimSpace(req.RoomID))
	if err != nil {
		return nil, invalid("roomId", "A valid room id is required")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, invalid("content", "Message cannot be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return nil, invalid("content", fmt.Sprintf("Message must be at most %d characters", models.MaxMessageLength))
	}

	if err := s.requireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}

	msg := &models.Message{RoomID: roomID, SenderID: userID, Content: content}
	if err := s.chat.CreateMessage(ctx, msg); err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Message: "Chat room not found"}
		}
		return nil, fmt.Errorf("create message: %w", err)
	}

	if err := s.chat.MarkRead(ctx, roomID, userID, msg.CreatedAt); err != nil {
		logging.FromContext(ctx).Warn("failed to mark room read", "room_id", roomID, "error", err)
	}

	if s.notifier != nil {
		members, err := s.chat.MemberIDs(ctx, roomID)
		if err != nil {
			logging.FromContext(ctx).Warn("failed to load room members", "room_id", roomID, "error", err)
		}
		for _, member := range members {
			s.notifier.SendToUser(ctx, member, EventChatMessage, msg)
		}
	}
	return msg, nil
}
