package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoomTypeDM    = "DM"
	RoomTypeClass = "CLASS"

	MaxMessageLength = 2000
)

type ChatRoom struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	ClassID   *uuid.UUID `json:"classId"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Message struct {
	ID        uuid.UUID    `json:"id"`
	RoomID    uuid.UUID    `json:"roomId"`
	SenderID  uuid.UUID    `json:"senderId"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"createdAt"`
	Sender    *UserSummary `json:"sender,omitempty"`
}

// ChatRoomView is a room as listed for one member.
type ChatRoomView struct {
	ID          uuid.UUID    `json:"id"`
	Type        string       `json:"type"`
	Name        string       `json:"name"`
	ClassID     *uuid.UUID   `json:"classId,omitempty"`
	OtherUser   *UserSummary `json:"otherUser,omitempty"`
	LastMessage *Message     `json:"lastMessage"`
	UnreadCount int          `json:"unreadCount"`
	LastReadAt  *time.Time   `json:"lastReadAt"`
}

type ChatRoomList struct {
	Rooms      []ChatRoomView `json:"rooms"`
	ClassRooms []ChatRoomView `json:"classRooms"`
	DMRooms    []ChatRoomView `json:"dmRooms"`
}

type CreateRoomRequest struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type SendMessageRequest struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

type MessagePage struct {
	Messages   []Message `json:"messages"`
	HasMore    bool      `json:"hasMore"`
	NextCursor *string   `json:"nextCursor"`
}

// WSMessage is the frame pushed to websocket clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
