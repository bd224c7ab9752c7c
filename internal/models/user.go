package models

import (
	"time"

	"github.com/google/uuid"
)

const MaxUsernameChanges = 2

type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	DisplayName      *string   `json:"displayName"`
	Bio              *string   `json:"bio"`
	AvatarURL        *string   `json:"avatarUrl"`
	IsTimerPublic    bool      `json:"isTimerPublic"`
	IsLocationPublic bool      `json:"isLocationPublic"`
	IsClassesPublic  bool      `json:"isClassesPublic"`
	UsernameChanges  int       `json:"usernameChanges"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// UserSummary is the slice of a profile embedded in other resources.
type UserSummary struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"displayName"`
	AvatarURL   *string   `json:"avatarUrl"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

type CreateProfileRequest struct {
	Username    string  `json:"username"`
	DisplayName *string `json:"displayName"`
}

// UpdateProfileRequest carries only the fields present in the body.
// Username is decoded so it can be rejected explicitly.
type UpdateProfileRequest struct {
	DisplayName      *string `json:"displayName"`
	Bio              *string `json:"bio"`
	AvatarURL        *string `json:"avatarUrl"`
	IsTimerPublic    *bool   `json:"isTimerPublic"`
	IsLocationPublic *bool   `json:"isLocationPublic"`
	IsClassesPublic  *bool   `json:"isClassesPublic"`
	Username         *string `json:"username"`
}

type ChangeUsernameRequest struct {
	Username string `json:"username"`
}

type UserStats struct {
	TotalHours       int  `json:"totalHours"`
	TotalMinutes     int  `json:"totalMinutes"`
	TotalSeconds     int  `json:"totalSeconds"`
	TotalSessions    int  `json:"totalSessions"`
	CurrentStreak    int  `json:"currentStreak"`
	TodaySeconds     int  `json:"todaySeconds"`
	HasActiveSession bool `json:"hasActiveSession"`
}

// PublicProfile is another user's profile as seen by the viewer, with each
// section gated by that user's visibility flags.
type PublicProfile struct {
	UserSummary
	Bio              *string          `json:"bio"`
	IsTimerPublic    bool             `json:"isTimerPublic"`
	IsLocationPublic bool             `json:"isLocationPublic"`
	IsClassesPublic  bool             `json:"isClassesPublic"`
	IsFriend         bool             `json:"isFriend"`
	IsCurrentUser    bool             `json:"isCurrentUser"`
	TotalSeconds     int              `json:"totalSeconds"`
	LiveSeconds      int              `json:"liveSeconds"`
	CurrentDuration  *int             `json:"currentDuration,omitempty"`
	Session          *SessionSnapshot `json:"session"`
	Location         *LocationRef     `json:"location"`
	Classes          []Class          `json:"classes"`
	CreatedAt        time.Time        `json:"createdAt"`
}

type UserSearchResult struct {
	Users      []UserSummary `json:"users"`
	HasMore    bool          `json:"hasMore"`
	NextCursor *string       `json:"nextCursor"`
}
