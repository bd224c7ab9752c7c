package mocks

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"rally-backend/internal/models"
)

type SessionStoreMock struct {
	mock.Mock
}

func (m *SessionStoreMock) Create(ctx context.Context, s *models.StudySession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *SessionStoreMock) FindActive(ctx context.Context, userID uuid.UUID, mode string) (*models.StudySession, error) {
	args := m.Called(ctx, userID, mode)
	var out *models.StudySession
	if val := args.Get(0); val != nil {
		out = val.(*models.StudySession)
	}
	return out, args.Error(1)
}

func (m *SessionStoreMock) LastFinished(ctx context.Context, userID uuid.UUID, mode string) (*models.StudySession, error) {
	args := m.Called(ctx, userID, mode)
	var out *models.StudySession
	if val := args.Get(0); val != nil {
		out = val.(*models.StudySession)
	}
	return out, args.Error(1)
}

func (m *SessionStoreMock) Heartbeat(ctx context.Context, userID uuid.UUID, at time.Time) (uuid.UUID, error) {
	args := m.Called(ctx, userID, at)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *SessionStoreMock) ListStale(ctx context.Context, cutoff time.Time) ([]models.StudySession, error) {
	args := m.Called(ctx, cutoff)
	var out []models.StudySession
	if val := args.Get(0); val != nil {
		out = val.([]models.StudySession)
	}
	return out, args.Error(1)
}

func (m *SessionStoreMock) ListActive(ctx context.Context) ([]models.StudySession, error) {
	args := m.Called(ctx)
	var out []models.StudySession
	if val := args.Get(0); val != nil {
		out = val.([]models.StudySession)
	}
	return out, args.Error(1)
}

func (m *SessionStoreMock) Finalize(ctx context.Context, sessions []models.StudySession, endedAt time.Time, day time.Time) ([]models.FinalizedSession, error) {
	args := m.Called(ctx, sessions, endedAt, day)
	var out []models.FinalizedSession
	if val := args.Get(0); val != nil {
		out = val.([]models.FinalizedSession)
	}
	return out, args.Error(1)
}

func (m *SessionStoreMock) LatestForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.StudySession, error) {
	args := m.Called(ctx, userIDs)
	var out map[uuid.UUID]*models.StudySession
	if val := args.Get(0); val != nil {
		out = val.(map[uuid.UUID]*models.StudySession)
	}
	return out, args.Error(1)
}

func (m *SessionStoreMock) Totals(ctx context.Context, userID uuid.UUID) (int, int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Int(1), args.Error(2)
}

type DailyStatStoreMock struct {
	mock.Mock
}

func (m *DailyStatStoreMock) TotalForDay(ctx context.Context, userID uuid.UUID, day time.Time) (int, error) {
	args := m.Called(ctx, userID, day)
	return args.Int(0), args.Error(1)
}

func (m *DailyStatStoreMock) ForUsers(ctx context.Context, userIDs []uuid.UUID, day time.Time) (map[uuid.UUID]models.DailyStat, error) {
	args := m.Called(ctx, userIDs, day)
	var out map[uuid.UUID]models.DailyStat
	if val := args.Get(0); val != nil {
		out = val.(map[uuid.UUID]models.DailyStat)
	}
	return out, args.Error(1)
}

func (m *DailyStatStoreMock) PublicForDay(ctx context.Context, day time.Time, limit int, offset int) ([]models.LeaderboardRow, error) {
	args := m.Called(ctx, day, limit, offset)
	var out []models.LeaderboardRow
	if val := args.Get(0); val != nil {
		out = val.([]models.LeaderboardRow)
	}
	return out, args.Error(1)
}

func (m *DailyStatStoreMock) LeaderboardRowFor(ctx context.Context, userID uuid.UUID, day time.Time) (models.LeaderboardRow, error) {
	args := m.Called(ctx, userID, day)
	return args.Get(0).(models.LeaderboardRow), args.Error(1)
}

func (m *DailyStatStoreMock) CountPublicAbove(ctx context.Context, day time.Time, total int) (int, error) {
	args := m.Called(ctx, day, total)
	return args.Int(0), args.Error(1)
}

func (m *DailyStatStoreMock) StudyDates(ctx context.Context, userID uuid.UUID) ([]time.Time, error) {
	args := m.Called(ctx, userID)
	var out []time.Time
	if val := args.Get(0); val != nil {
		out = val.([]time.Time)
	}
	return out, args.Error(1)
}

func (m *DailyStatStoreMock) SetVisibility(ctx context.Context, userID uuid.UUID, day time.Time, isPublic bool) error {
	args := m.Called(ctx, userID, day, isPublic)
	return args.Error(0)
}

type UserStoreMock struct {
	mock.Mock
}

func (m *UserStoreMock) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserStoreMock) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	var out *models.User
	if val := args.Get(0); val != nil {
		out = val.(*models.User)
	}
	return out, args.Error(1)
}

func (m *UserStoreMock) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *UserStoreMock) UsernameTaken(ctx context.Context, username string, except uuid.UUID) (bool, error) {
	args := m.Called(ctx, username, except)
	return args.Bool(0), args.Error(1)
}

func (m *UserStoreMock) EmailTaken(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *UserStoreMock) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserStoreMock) SetAvatar(ctx context.Context, userID uuid.UUID, url string) error {
	args := m.Called(ctx, userID, url)
	return args.Error(0)
}

func (m *UserStoreMock) ChangeUsername(ctx context.Context, userID uuid.UUID, username string, maxChanges int) (*models.User, error) {
	args := m.Called(ctx, userID, username, maxChanges)
	var out *models.User
	if val := args.Get(0); val != nil {
		out = val.(*models.User)
	}
	return out, args.Error(1)
}

func (m *UserStoreMock) Search(ctx context.Context, q string, exclude uuid.UUID, limit int, offset int) ([]models.UserSummary, error) {
	args := m.Called(ctx, q, exclude, limit, offset)
	var out []models.UserSummary
	if val := args.Get(0); val != nil {
		out = val.([]models.UserSummary)
	}
	return out, args.Error(1)
}

type FriendshipStoreMock struct {
	mock.Mock
}

func (m *FriendshipStoreMock) GetByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	args := m.Called(ctx, id)
	var out *models.Friendship
	if val := args.Get(0); val != nil {
		out = val.(*models.Friendship)
	}
	return out, args.Error(1)
}

func (m *FriendshipStoreMock) FindBetween(ctx context.Context, a uuid.UUID, b uuid.UUID) (*models.Friendship, error) {
	args := m.Called(ctx, a, b)
	var out *models.Friendship
	if val := args.Get(0); val != nil {
		out = val.(*models.Friendship)
	}
	return out, args.Error(1)
}

func (m *FriendshipStoreMock) CreateRequest(ctx context.Context, f *models.Friendship, replaceID *uuid.UUID) error {
	args := m.Called(ctx, f, replaceID)
	return args.Error(0)
}

func (m *FriendshipStoreMock) Respond(ctx context.Context, id uuid.UUID, status string) (*models.Friendship, error) {
	args := m.Called(ctx, id, status)
	var out *models.Friendship
	if val := args.Get(0); val != nil {
		out = val.(*models.Friendship)
	}
	return out, args.Error(1)
}

func (m *FriendshipStoreMock) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *FriendshipStoreMock) AreFriends(ctx context.Context, a uuid.UUID, b uuid.UUID) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

func (m *FriendshipStoreMock) ListAccepted(ctx context.Context, userID uuid.UUID) ([]models.FriendRow, error) {
	args := m.Called(ctx, userID)
	var out []models.FriendRow
	if val := args.Get(0); val != nil {
		out = val.([]models.FriendRow)
	}
	return out, args.Error(1)
}

func (m *FriendshipStoreMock) ListPending(ctx context.Context, userID uuid.UUID, incoming bool) ([]models.FriendRequestView, error) {
	args := m.Called(ctx, userID, incoming)
	var out []models.FriendRequestView
	if val := args.Get(0); val != nil {
		out = val.([]models.FriendRequestView)
	}
	return out, args.Error(1)
}

type ClassStoreMock struct {
	mock.Mock
}

func (m *ClassStoreMock) List(ctx context.Context, viewer uuid.UUID, f models.ClassFilter) ([]models.ClassListItem, int, error) {
	args := m.Called(ctx, viewer, f)
	var out []models.ClassListItem
	if val := args.Get(0); val != nil {
		out = val.([]models.ClassListItem)
	}
	return out, args.Int(1), args.Error(2)
}

func (m *ClassStoreMock) GetActive(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	args := m.Called(ctx, id)
	var out *models.Class
	if val := args.Get(0); val != nil {
		out = val.(*models.Class)
	}
	return out, args.Error(1)
}

func (m *ClassStoreMock) IsMember(ctx context.Context, userID uuid.UUID, classID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, classID)
	return args.Bool(0), args.Error(1)
}

func (m *ClassStoreMock) ForUser(ctx context.Context, userID uuid.UUID) ([]models.Class, error) {
	args := m.Called(ctx, userID)
	var out []models.Class
	if val := args.Get(0); val != nil {
		out = val.([]models.Class)
	}
	return out, args.Error(1)
}

func (m *ClassStoreMock) Join(ctx context.Context, userID uuid.UUID, classID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, userID, classID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *ClassStoreMock) Leave(ctx context.Context, userID uuid.UUID, classID uuid.UUID) error {
	args := m.Called(ctx, userID, classID)
	return args.Error(0)
}

func (m *ClassStoreMock) Create(ctx context.Context, in models.BulkClassInput) (uuid.UUID, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type LocationStoreMock struct {
	mock.Mock
}

func (m *LocationStoreMock) ListActive(ctx context.Context) ([]models.Location, error) {
	args := m.Called(ctx)
	var out []models.Location
	if val := args.Get(0); val != nil {
		out = val.([]models.Location)
	}
	return out, args.Error(1)
}

func (m *LocationStoreMock) GetActiveRef(ctx context.Context, id uuid.UUID) (*models.LocationRef, error) {
	args := m.Called(ctx, id)
	var out *models.LocationRef
	if val := args.Get(0); val != nil {
		out = val.(*models.LocationRef)
	}
	return out, args.Error(1)
}

func (m *LocationStoreMock) SetUserLocation(ctx context.Context, userID uuid.UUID, locationID uuid.UUID) (time.Time, error) {
	args := m.Called(ctx, userID, locationID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *LocationStoreMock) GetUserLocation(ctx context.Context, userID uuid.UUID) (*models.UserLocation, error) {
	args := m.Called(ctx, userID)
	var out *models.UserLocation
	if val := args.Get(0); val != nil {
		out = val.(*models.UserLocation)
	}
	return out, args.Error(1)
}

func (m *LocationStoreMock) SetVisibility(ctx context.Context, userID uuid.UUID, isPublic bool) error {
	args := m.Called(ctx, userID, isPublic)
	return args.Error(0)
}

func (m *LocationStoreMock) RefsForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.LocationRef, error) {
	args := m.Called(ctx, userIDs)
	var out map[uuid.UUID]models.LocationRef
	if val := args.Get(0); val != nil {
		out = val.(map[uuid.UUID]models.LocationRef)
	}
	return out, args.Error(1)
}

func (m *LocationStoreMock) MembersOf(ctx context.Context, locationID uuid.UUID, day time.Time) ([]models.LeaderboardRow, error) {
	args := m.Called(ctx, locationID, day)
	var out []models.LeaderboardRow
	if val := args.Get(0); val != nil {
		out = val.([]models.LeaderboardRow)
	}
	return out, args.Error(1)
}

func (m *LocationStoreMock) Create(ctx context.Context, in models.BulkLocationInput) (uuid.UUID, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type ChatStoreMock struct {
	mock.Mock
}

func (m *ChatStoreMock) ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatRoomView, error) {
	args := m.Called(ctx, userID)
	var out []models.ChatRoomView
	if val := args.Get(0); val != nil {
		out = val.([]models.ChatRoomView)
	}
	return out, args.Error(1)
}

func (m *ChatStoreMock) FindDM(ctx context.Context, a uuid.UUID, b uuid.UUID) (*models.ChatRoom, error) {
	args := m.Called(ctx, a, b)
	var out *models.ChatRoom
	if val := args.Get(0); val != nil {
		out = val.(*models.ChatRoom)
	}
	return out, args.Error(1)
}

func (m *ChatStoreMock) CreateDM(ctx context.Context, a uuid.UUID, b uuid.UUID) (*models.ChatRoom, error) {
	args := m.Called(ctx, a, b)
	var out *models.ChatRoom
	if val := args.Get(0); val != nil {
		out = val.(*models.ChatRoom)
	}
	return out, args.Error(1)
}

func (m *ChatStoreMock) IsMember(ctx context.Context, roomID uuid.UUID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatStoreMock) MemberIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, roomID)
	var out []uuid.UUID
	if val := args.Get(0); val != nil {
		out = val.([]uuid.UUID)
	}
	return out, args.Error(1)
}

func (m *ChatStoreMock) CreateMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *ChatStoreMock) ListMessages(ctx context.Context, roomID uuid.UUID, cursor *uuid.UUID, limit int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, cursor, limit)
	var out []models.Message
	if val := args.Get(0); val != nil {
		out = val.([]models.Message)
	}
	return out, args.Error(1)
}

func (m *ChatStoreMock) MarkRead(ctx context.Context, roomID uuid.UUID, userID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, roomID, userID, at)
	return args.Error(0)
}

type AdminStoreMock struct {
	mock.Mock
}

func (m *AdminStoreMock) Stats(ctx context.Context, dayStart time.Time, day time.Time, top int) (*models.AdminStats, error) {
	args := m.Called(ctx, dayStart, day, top)
	var out *models.AdminStats
	if val := args.Get(0); val != nil {
		out = val.(*models.AdminStats)
	}
	return out, args.Error(1)
}

type RateLimiterMock struct {
	mock.Mock
}

func (m *RateLimiterMock) Allow(ctx context.Context, key string) bool {
	args := m.Called(ctx, key)
	return args.Bool(0)
}

type EmitterMock struct {
	mock.Mock
}

func (m *EmitterMock) Emit(ctx context.Context, eventType string, userID uuid.UUID, payload any) {
	m.Called(ctx, eventType, userID, payload)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) SendToUser(ctx context.Context, userID uuid.UUID, event string, payload any) {
	m.Called(ctx, userID, event, payload)
}

type AvatarStorageMock struct {
	mock.Mock
}

func (m *AvatarStorageMock) Save(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	args := m.Called(ctx, key, contentType, r)
	return args.String(0), args.Error(1)
}
