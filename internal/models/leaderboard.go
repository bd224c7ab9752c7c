package models

import (
	"time"

	"github.com/google/uuid"
)

// LeaderboardRow is one user's standing as read from the daily aggregate,
// before the live projection is applied.
type LeaderboardRow struct {
	User             UserSummary
	IsTimerPublic    bool
	IsLocationPublic bool
	TotalSeconds     int
	StatIsPublic     bool
	Session          *StudySession
	Location         *LocationRef
}

type LeaderboardEntry struct {
	Rank          int              `json:"rank"`
	UserID        uuid.UUID        `json:"userId"`
	Username      string           `json:"username"`
	DisplayName   *string          `json:"displayName"`
	AvatarURL     *string          `json:"avatarUrl"`
	TotalSeconds  int              `json:"totalSeconds"`
	LiveSeconds   int              `json:"liveSeconds"`
	IsTimerPublic bool             `json:"isTimerPublic"`
	IsActiveNow   bool             `json:"isActiveNow"`
	Session       *SessionSnapshot `json:"session"`
	Location      *LocationRef     `json:"location"`
	IsCurrentUser bool             `json:"isCurrentUser"`
}

type SchoolLeaderboard struct {
	Leaderboard      []LeaderboardEntry `json:"leaderboard"`
	CurrentUserEntry *LeaderboardEntry  `json:"currentUserEntry"`
	Date             string             `json:"date"`
	HasMore          bool               `json:"hasMore"`
	NextCursor       *string            `json:"nextCursor"`
	GeneratedAt      time.Time          `json:"generatedAt"`
}

type LocationLeaderboard struct {
	Location         LocationRef        `json:"location"`
	Leaderboard      []LeaderboardEntry `json:"leaderboard"`
	CurrentUserEntry *LeaderboardEntry  `json:"currentUserEntry"`
	Date             string             `json:"date"`
	GeneratedAt      time.Time          `json:"generatedAt"`
}
