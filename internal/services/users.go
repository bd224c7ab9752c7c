package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"rally-backend/internal/logging"
	"rally-backend/internal/models"
	"rally-backend/internal/studytime"
)

const (
	searchPageSize    = 20
	minSearchQuery    = 2
	maxDisplayName    = 50
	maxBio            = 500
	maxAvatarURL      = 500
	MaxAvatarBytes    = 5 << 20
	minUsernameLength = 3
	maxUsernameLength = 20
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

type UserService struct {
	users         UserStore
	stats         DailyStatStore
	sessions      SessionStore
	friendships   FriendshipStore
	classes       ClassStore
	locations     LocationStore
	avatars       AvatarStorage
	limiter       RateLimiter
	allowedDomain string
	now           func() time.Time
}

type UserServiceDeps struct {
	Users         UserStore
	Stats         DailyStatStore
	Sessions      SessionStore
	Friendships   FriendshipStore
	Classes       ClassStore
	Locations     LocationStore
	Avatars       AvatarStorage
	Limiter       RateLimiter
	AllowedDomain string
}

func NewUserService(deps UserServiceDeps) *UserService {
	return &UserService{
		users:         deps.Users,
		stats:         deps.Stats,
		sessions:      deps.Sessions,
		friendships:   deps.Friendships,
		classes:       deps.Classes,
		locations:     deps.Locations,
		avatars:       deps.Avatars,
		limiter:       deps.Limiter,
		allowedDomain: strings.ToLower(deps.AllowedDomain),
		now:           time.Now,
	}
}

func validateUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return "", invalid("username", "Username must be between 3 and 20 characters")
	}
	if !usernamePattern.MatchString(username) {
		return "", invalid("username", "Username can only contain letters, numbers, and underscores")
	}
	return username, nil
}

// Provision creates the profile row for an identity that signed up with the
// auth provider.
func (s *UserService) Provision(ctx context.Context, userID uuid.UUID, email string, req models.CreateProfileRequest) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.HasSuffix(email, "@"+s.allowedDomain) {
		return nil, invalid("email", fmt.Sprintf("Only %s email addresses are allowed", s.allowedDomain))
	}

	username, err := validateUsername(req.Username)
	if err != nil {
		return nil, err
	}
	fields := map[string]string{}
	if req.DisplayName != nil && utf8.RuneCountInString(*req.DisplayName) > maxDisplayName {
		fields["displayName"] = "Display name must be at most 50 characters"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	taken, err := s.users.UsernameTaken(ctx, username, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, &ConflictError{Message: "Username is already taken"}
	}
	taken, err = s.users.EmailTaken(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, &ConflictError{Message: "An account with this email already exists"}
	}

	user := &models.User{ID: userID, Email: email, Username: username, DisplayName: req.DisplayName}
	if err := s.users.Create(ctx, user); err != nil {
		if isConflict(err) {
			return nil, &ConflictError{Message: "An account with this email already exists"}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logging.FromContext(ctx).Info("user provisioned", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Message: "User not found"}
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func validateProfile(req models.UpdateProfileRequest) error {
	fields := map[string]string{}
	if req.DisplayName != nil && utf8.RuneCountInString(*req.DisplayName) > maxDisplayName {
		fields["displayName"] = "Display name must be at most 50 characters"
	}
	if req.Bio != nil && utf8.RuneCountInString(*req.Bio) > maxBio {
		fields["bio"] = "Bio must be at most 500 characters"
	}
	if req.AvatarURL != nil && *req.AvatarURL != "" {
		u, err := url.Parse(*req.AvatarURL)
		switch {
		case len(*req.AvatarURL) > maxAvatarURL:
			fields["avatarUrl"] = "Avatar URL must be at most 500 characters"
		case err != nil || u.Scheme == "" || u.Host == "":
			fields["avatarUrl"] = "Avatar URL must be a valid URL"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Update applies the fields present in req. Visibility changes are copied
// onto today's stat row and the user's location row.
func (s *UserService) Update(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error) {
	if err := allow(ctx, s.limiter, "users.update", userID); err != nil {
		return nil, err
	}
	if req.Username != nil {
		return nil, invalid("username", "Username cannot be changed")
	}
	if err := validateProfile(req); err != nil {
		return nil, err
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	timerWas, locationWas := user.IsTimerPublic, user.IsLocationPublic

	if req.DisplayName != nil {
		user.DisplayName = req.DisplayName
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if req.AvatarURL != nil {
		if *req.AvatarURL == "" {
			user.AvatarURL = nil
		} else {
			user.AvatarURL = req.AvatarURL
		}
	}
	if req.IsTimerPublic != nil {
		user.IsTimerPublic = *req.IsTimerPublic
	}
	if req.IsLocationPublic != nil {
		user.IsLocationPublic = *req.IsLocationPublic
	}
	if req.IsClassesPublic != nil {
		user.IsClassesPublic = *req.IsClassesPublic
	}

	if err := s.users.Update(ctx, user); err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Message: "User not found"}
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	if user.IsTimerPublic != timerWas {
		day := studytime.Day(s.now(), 0)
		if err := s.stats.SetVisibility(ctx, userID, day, user.IsTimerPublic); err != nil {
			return nil, fmt.Errorf("sync stat visibility: %w", err)
		}
	}
	if user.IsLocationPublic != locationWas {
		if err := s.locations.SetVisibility(ctx, userID, user.IsLocationPublic); err != nil {
			return nil, fmt.Errorf("sync location visibility: %w", err)
		}
	}
	return user, nil
}

// ChangeUsername renames the user while they have changes left.
func (s *UserService) ChangeUsername(ctx context.Context, userID uuid.UUID, req models.ChangeUsernameRequest) (*models.User, error) {
	username, err := validateUsername(req.Username)
	if err != nil {
		return nil, err
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.UsernameChanges >= models.MaxUsernameChanges {
		return nil, &ConflictError{Message: "Username can only be changed twice"}
	}
	if user.Username == username {
		return user, nil
	}

	taken, err := s.users.UsernameTaken(ctx, username, userID)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, &ConflictError{Message: "Username is already taken"}
	}

	updated, err := s.users.ChangeUsername(ctx, userID, username, models.MaxUsernameChanges)
	if err != nil {
		if isConflict(err) {
			return nil, &ConflictError{Message: "Username could not be changed"}
		}
		return nil, fmt.Errorf("change username: %w", err)
	}
	return updated, nil
}

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadAvatar stores the image in object storage and points the profile at
// it. size is the declared upload size in bytes.
func (s *UserService) UploadAvatar(ctx context.Context, userID uuid.UUID, filename, contentType string, size int64, r io.Reader) (string, error) {
	if s.avatars == nil {
		return "", &UnavailableError{Message: "Avatar uploads are not configured"}
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", invalid("avatar", "Avatar must be an image")
	}
	if size <= 0 || size > MaxAvatarBytes {
		return "", invalid("avatar", "Avatar must be at most 5 MB")
	}

	ext, ok := avatarExtensions[contentType]
	if !ok {
		ext = strings.ToLower(path.Ext(filename))
	}
	key := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), ext)

	avatarURL, err := s.avatars.Save(ctx, key, contentType, io.LimitReader(r, MaxAvatarBytes))
	if err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}
	if err := s.users.SetAvatar(ctx, userID, avatarURL); err != nil {
		if isNotFound(err) {
			return "", &NotFoundError{Message: "User not found"}
		}
		return "", fmt.Errorf("set avatar: %w", err)
	}
	return avatarURL, nil
}

func encodeOffset(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeOffset(cursor string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, invalid("cursor", "Invalid cursor")
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0, invalid("cursor", "Invalid cursor")
	}
	return offset, nil
}

// Search matches other users by username or display name.
func (s *UserService) Search(ctx context.Context, userID uuid.UUID, q, cursor string) (*models.UserSearchResult, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < minSearchQuery {
		return nil, invalid("q", "Query must be at least 2 characters")
	}
	offset := 0
	if cursor != "" {
		var err error
		if offset, err = decodeOffset(cursor); err != nil {
			return nil, err
		}
	}

	users, err := s.users.Search(ctx, q, userID, searchPageSize+1, offset)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	result := &models.UserSearchResult{}
	if len(users) > searchPageSize {
		result.HasMore = true
		users = users[:searchPageSize]
		next := encodeOffset(offset + searchPageSize)
		result.NextCursor = &next
	}
	if users == nil {
		users = []models.UserSummary{}
	}
	result.Users = users
	return result, nil
}

// Stats summarises all-time and today's study for the user.
func (s *UserService) Stats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	now := s.now()
	today := studytime.Day(now, 0)

	totalSeconds, totalSessions, err := s.sessions.Totals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("session totals: %w", err)
	}
	dates, err := s.stats.StudyDates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("study dates: %w", err)
	}
	todaySeconds, err := s.stats.TotalForDay(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("today total: %w", err)
	}

	active := false
	if _, err := s.sessions.FindActive(ctx, userID, ""); err == nil {
		active = true
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("active session: %w", err)
	}

	return &models.UserStats{
		TotalHours:       totalSeconds / 3600,
		TotalMinutes:     (totalSeconds % 3600) / 60,
		TotalSeconds:     totalSeconds,
		TotalSessions:    totalSessions,
		CurrentStreak:    studytime.CurrentStreak(dates, today),
		TodaySeconds:     todaySeconds,
		HasActiveSession: active,
	}, nil
}

// Profile returns another user's profile as the viewer may see it.
func (s *UserService) Profile(ctx context.Context, viewer, id uuid.UUID) (*models.PublicProfile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Message: "User not found"}
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	own := viewer == user.ID
	p := &models.PublicProfile{
		UserSummary:      user.Summary(),
		Bio:              user.Bio,
		IsTimerPublic:    user.IsTimerPublic,
		IsLocationPublic: user.IsLocationPublic,
		IsClassesPublic:  user.IsClassesPublic,
		IsCurrentUser:    own,
		CreatedAt:        user.CreatedAt,
	}

	if !own {
		friends, err := s.friendships.AreFriends(ctx, viewer, user.ID)
		if err != nil {
			return nil, fmt.Errorf("check friendship: %w", err)
		}
		p.IsFriend = friends
	}

	if own || user.IsTimerPublic {
		now := s.now()
		total, err := s.stats.TotalForDay(ctx, user.ID, studytime.Day(now, 0))
		if err != nil {
			return nil, fmt.Errorf("today total: %w", err)
		}
		latest, err := s.sessions.LatestForUsers(ctx, []uuid.UUID{user.ID})
		if err != nil {
			return nil, fmt.Errorf("latest session: %w", err)
		}
		p.TotalSeconds = total
		p.LiveSeconds = total
		if session := latest[user.ID]; session != nil {
			p.Session = session.Snapshot()
			if session.IsActive {
				current := studytime.Elapsed(session.StartedAt, now)
				p.CurrentDuration = &current
				p.LiveSeconds = total + current
			}
		}
	}

	if own || user.IsClassesPublic {
		classes, err := s.classes.ForUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("user classes: %w", err)
		}
		if classes == nil {
			classes = []models.Class{}
		}
		p.Classes = classes
	}

	if own || user.IsLocationPublic {
		refs, err := s.locations.RefsForUsers(ctx, []uuid.UUID{user.ID})
		if err != nil {
			return nil, fmt.Errorf("user location: %w", err)
		}
		if loc, ok := refs[user.ID]; ok {
			p.Location = &loc
		}
	}
	return p, nil
}
