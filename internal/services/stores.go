package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"rally-backend/internal/metrics"
	"rally-backend/internal/models"
)

// The store interfaces below are satisfied by the repository package and by
// the testify mocks in internal/mocks.

type SessionStore interface {
	Create(ctx context.Context, s *models.StudySession) error
	FindActive(ctx context.Context, userID uuid.UUID, mode string) (*models.StudySession, error)
	LastFinished(ctx context.Context, userID uuid.UUID, mode string) (*models.StudySession, error)
	Heartbeat(ctx context.Context, userID uuid.UUID, at time.Time) (uuid.UUID, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]models.StudySession, error)
	ListActive(ctx context.Context) ([]models.StudySession, error)
	Finalize(ctx context.Context, sessions []models.StudySession, endedAt, day time.Time) ([]models.FinalizedSession, error)
	LatestForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.StudySession, error)
	Totals(ctx context.Context, userID uuid.UUID) (totalSeconds, totalSessions int, err error)
}

type DailyStatStore interface {
	TotalForDay(ctx context.Context, userID uuid.UUID, day time.Time) (int, error)
	ForUsers(ctx context.Context, userIDs []uuid.UUID, day time.Time) (map[uuid.UUID]models.DailyStat, error)
	PublicForDay(ctx context.Context, day time.Time, limit, offset int) ([]models.LeaderboardRow, error)
	LeaderboardRowFor(ctx context.Context, userID uuid.UUID, day time.Time) (models.LeaderboardRow, error)
	CountPublicAbove(ctx context.Context, day time.Time, total int) (int, error)
	StudyDates(ctx context.Context, userID uuid.UUID) ([]time.Time, error)
	SetVisibility(ctx context.Context, userID uuid.UUID, day time.Time, isPublic bool) error
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	UsernameTaken(ctx context.Context, username string, except uuid.UUID) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *models.User) error
	SetAvatar(ctx context.Context, userID uuid.UUID, url string) error
	ChangeUsername(ctx context.Context, userID uuid.UUID, username string, maxChanges int) (*models.User, error)
	Search(ctx context.Context, q string, exclude uuid.UUID, limit, offset int) ([]models.UserSummary, error)
}

type FriendshipStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error)
	FindBetween(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error)
	CreateRequest(ctx context.Context, f *models.Friendship, replaceID *uuid.UUID) error
	Respond(ctx context.Context, id uuid.UUID, status string) (*models.Friendship, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)
	ListAccepted(ctx context.Context, userID uuid.UUID) ([]models.FriendRow, error)
	ListPending(ctx context.Context, userID uuid.UUID, incoming bool) ([]models.FriendRequestView, error)
}

type ClassStore interface {
	List(ctx context.Context, viewer uuid.UUID, f models.ClassFilter) ([]models.ClassListItem, int, error)
	GetActive(ctx context.Context, id uuid.UUID) (*models.Class, error)
	IsMember(ctx context.Context, userID, classID uuid.UUID) (bool, error)
	ForUser(ctx context.Context, userID uuid.UUID) ([]models.Class, error)
	Join(ctx context.Context, userID, classID uuid.UUID) (uuid.UUID, error)
	Leave(ctx context.Context, userID, classID uuid.UUID) error
	Create(ctx context.Context, in models.BulkClassInput) (uuid.UUID, error)
}

type LocationStore interface {
	ListActive(ctx context.Context) ([]models.Location, error)
	GetActiveRef(ctx context.Context, id uuid.UUID) (*models.LocationRef, error)
	SetUserLocation(ctx context.Context, userID, locationID uuid.UUID) (time.Time, error)
	GetUserLocation(ctx context.Context, userID uuid.UUID) (*models.UserLocation, error)
	SetVisibility(ctx context.Context, userID uuid.UUID, isPublic bool) error
	RefsForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.LocationRef, error)
	MembersOf(ctx context.Context, locationID uuid.UUID, day time.Time) ([]models.LeaderboardRow, error)
	Create(ctx context.Context, in models.BulkLocationInput) (uuid.UUID, error)
}

type ChatStore interface {
	ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatRoomView, error)
	FindDM(ctx context.Context, a, b uuid.UUID) (*models.ChatRoom, error)
	CreateDM(ctx context.Context, a, b uuid.UUID) (*models.ChatRoom, error)
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	MemberIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error)
	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, roomID uuid.UUID, cursor *uuid.UUID, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, roomID, userID uuid.UUID, at time.Time) error
}

type AdminStore interface {
	Stats(ctx context.Context, dayStart, day time.Time, top int) (*models.AdminStats, error)
}

// RateLimiter admits at most one call per key per interval.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// EventEmitter publishes domain events; failures never reach the caller.
type EventEmitter interface {
	Emit(ctx context.Context, eventType string, userID uuid.UUID, payload any)
}

// Notifier pushes a realtime event to every open connection of a user.
type Notifier interface {
	SendToUser(ctx context.Context, userID uuid.UUID, event string, payload any)
}

// AvatarStorage stores an uploaded image and returns its public URL.
type AvatarStorage interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

func allow(ctx context.Context, limiter RateLimiter, scope string, userID uuid.UUID) error {
	if limiter == nil {
		return nil
	}
	if !limiter.Allow(ctx, scope+":"+userID.String()) {
		metrics.IncRateLimited(scope)
		return &RateLimitError{Message: "Rate limit exceeded. Please wait before trying again."}
	}
	return nil
}
