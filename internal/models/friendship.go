package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	FriendshipPending  = "PENDING"
	FriendshipAccepted = "ACCEPTED"
	FriendshipRejected = "REJECTED"
	FriendshipBlocked  = "BLOCKED"
)

type Friendship struct {
	ID          uuid.UUID `json:"id"`
	RequesterID uuid.UUID `json:"requesterId"`
	AddresseeID uuid.UUID `json:"addresseeId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Involves reports whether userID is either side of the friendship.
func (f *Friendship) Involves(userID uuid.UUID) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// Other returns the participant that is not userID.
func (f *Friendship) Other(userID uuid.UUID) uuid.UUID {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

type SendFriendRequest struct {
	UserID string `json:"userId"`
}

type RespondFriendRequest struct {
	Status string `json:"status"`
}

// FriendRequestView is a pending request with the other party attached.
type FriendRequestView struct {
	ID        uuid.UUID   `json:"id"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	User      UserSummary `json:"user"`
}

// FriendRow is what the store returns for one accepted friendship.
type FriendRow struct {
	FriendshipID     uuid.UUID
	Since            time.Time
	User             UserSummary
	IsTimerPublic    bool
	IsLocationPublic bool
}

type FriendView struct {
	FriendshipID  uuid.UUID        `json:"friendshipId"`
	User          UserSummary      `json:"user"`
	Since         time.Time        `json:"since"`
	Rank          int              `json:"rank"`
	TotalSeconds  int              `json:"totalSeconds"`
	LiveSeconds   int              `json:"liveSeconds"`
	IsActive      bool             `json:"isActive"`
	IsTimerPublic bool             `json:"isTimerPublic"`
	Session       *SessionSnapshot `json:"session"`
	Location      *LocationRef     `json:"location"`
}
