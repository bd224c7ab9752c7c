package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rally-backend/internal/events"
	"rally-backend/internal/models"
	"rally-backend/internal/studytime"
)

type FriendService struct {
	friendships FriendshipStore
	users       UserStore
	stats       DailyStatStore
	sessions    SessionStore
	locations   LocationStore
	limiter     RateLimiter
	events      EventEmitter
	now         func() time.Time
}

func NewFriendService(friendships FriendshipStore, users UserStore, stats DailyStatStore, sessions SessionStore, locations LocationStore, limiter RateLimiter, emitter EventEmitter) *FriendService {
	return &FriendService{
		friendships: friendships,
		users:       users,
		stats:       stats,
		sessions:    sessions,
		locations:   locations,
		limiter:     limiter,
		events:      emitter,
		now:         time.Now,
	}
}

// SendRequest creates a PENDING request from requester to the user named in
// req. A previously rejected pair may be asked again.
func (s *FriendService) SendRequest(ctx context.Context, requester uuid.UUID, req models.SendFriendRequest) (*models.Friendship, error) {
	if err := allow(ctx, s.limiter, "friends.request", requester); err != nil {
		return nil, err
	}

	addressee, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, invalid("userId", "A valid user id is required")
	}
	if addressee == requester {
		return nil, invalid("userId", "Cannot send friend request to yourself")
	}

	exists, err := s.users.Exists(ctx, addressee)
	if err != nil {
		return nil, fmt.Errorf("check addressee: %w", err)
	}
	if !exists {
		return nil, &NotFoundError{Message: "User not found"}
	}

	var replace *uuid.UUID
	existing, err := s.friendships.FindBetween(ctx, requester, addressee)
	switch {
	case err == nil:
		switch existing.Status {
		case models.FriendshipAccepted:
			return nil, &ConflictError{Message: "Already friends with this user"}
		case models.FriendshipPending:
			return nil, &ConflictError{Message: "Friend request already pending"}
		case models.FriendshipBlocked:
			return nil, &ConflictError{Message: "Cannot send friend request to this user"}
		default:
			replace = &existing.ID
		}
	case !isNotFound(err):
		return nil, fmt.Errorf("find friendship: %w", err)
	}

	f := &models.Friendship{RequesterID: requester, AddresseeID: addressee}
	if err := s.friendships.CreateRequest(ctx, f, replace); err != nil {
		switch {
		case isConflict(err):
			return nil, &ConflictError{Message: "Friend request already pending"}
		case isNotFound(err):
			return nil, &NotFoundError{Message: "User not found"}
		}
		return nil, fmt.Errorf("create friend request: %w", err)
	}

	s.events.Emit(ctx, events.FriendshipRequested, requester, map[string]any{
		"friendshipId": f.ID,
		"addresseeId":  addressee,
	})
	return f, nil
}

// Respond lets the addressee accept or reject a pending request.
func (s *FriendService) Respond(ctx context.Context, userID, friendshipID uuid.UUID, req models.RespondFriendRequest) (*models.Friendship, error) {
	if req.Status != models.FriendshipAccepted && req.Status != models.FriendshipRejected {
		return nil, invalid("status", "Status must be ACCEPTED or REJECTED")
	}

	f, err := s.friendships.GetByID(ctx, friendshipID)
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Message: "Friend request not found"}
		}
		return nil, fmt.Errorf("load friendship: %w", err)
	}
	if f.AddresseeID != userID {
		return nil, &ForbiddenError{Message: "Not authorized to respond to this request"}
	}
	if f.Status != models.FriendshipPending {
		return nil, &ConflictError{Message: "Friend request is no longer pending"}
	}

	updated, err := s.friendships.Respond(ctx, friendshipID, req.Status)
	if err != nil {
		if isConflict(err) {
			return nil, &ConflictError{Message: "Friend request is no longer pending"}
		}
		return nil, fmt.Errorf("respond to friendship: %w", err)
	}

	eventType := events.FriendshipAccepted
	if req.Status == models.FriendshipRejected {
		eventType = events.FriendshipRejected
	}
	s.events.Emit(ctx, eventType, userID, map[string]any{
		"friendshipId": updated.ID,
		"requesterId":  updated.RequesterID,
	})
	return updated, nil
}

// Remove deletes a friendship of any status. Only participants may.
func (s *FriendService) Remove(ctx context.Context, userID, friendshipID uuid.UUID) error {
	f, err := s.friendships.GetByID(ctx, friendshipID)
	if err != nil {
		if isNotFound(err) {
			return &NotFoundError{Message: "Friendship not found"}
		}
		return fmt.Errorf("load friendship: %w", err)
	}
	if !f.Involves(userID) {
		return &ForbiddenError{Message: "Not authorized to remove this friendship"}
	}
	if err := s.friendships.Delete(ctx, friendshipID); err != nil {
		if isNotFound(err) {
			return &NotFoundError{Message: "Friendship not found"}
		}
		return fmt.Errorf("delete friendship: %w", err)
	}
	return nil
}

// Pending lists requests sent to the user (incoming) or by the user.
func (s *FriendService) Pending(ctx context.Context, userID uuid.UUID, incoming bool) ([]models.FriendRequestView, error) {
	requests, err := s.friendships.ListPending(ctx, userID, incoming)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	if requests == nil {
		requests = []models.FriendRequestView{}
	}
	return requests, nil
}

// List returns accepted friends ranked by today's live seconds. A friend's
// timer and location are only shown when they made them public.
func (s *FriendService) List(ctx context.Context, userID uuid.UUID) ([]models.FriendView, error) {
	rows, err := s.friendships.ListAccepted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	if len(rows) == 0 {
		return []models.FriendView{}, nil
	}

	now := s.now().UTC()
	day := studytime.Day(now, 0)
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.User.ID
	}

	stats, err := s.stats.ForUsers(ctx, ids, day)
	if err != nil {
		return nil, fmt.Errorf("friend stats: %w", err)
	}
	latest, err := s.sessions.LatestForUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("friend sessions: %w", err)
	}
	locs, err := s.locations.RefsForUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("friend locations: %w", err)
	}

	views := make([]models.FriendView, len(rows))
	snaps := make(map[uuid.UUID]studytime.Snapshot, len(rows))
	for i, row := range rows {
		v := models.FriendView{
			FriendshipID:  row.FriendshipID,
			User:          row.User,
			Since:         row.Since,
			IsTimerPublic: row.IsTimerPublic,
		}
		snap := studytime.Snapshot{}
		if row.IsTimerPublic {
			v.TotalSeconds = stats[row.User.ID].TotalSeconds
			snap.Base = v.TotalSeconds
			if session := latest[row.User.ID]; session != nil {
				v.Session = session.Snapshot()
				v.IsActive = session.IsActive
				started := session.StartedAt
				snap.StartedAt = &started
				snap.IsActive = session.IsActive
			}
		}
		if row.IsLocationPublic {
			if loc, ok := locs[row.User.ID]; ok {
				v.Location = &loc
			}
		}
		views[i] = v
		snaps[row.User.ID] = snap
	}

	ranked := studytime.Rank(views, now, 0, func(v models.FriendView) studytime.Snapshot {
		return snaps[v.User.ID]
	})
	out := make([]models.FriendView, len(ranked))
	for i, r := range ranked {
		r.Item.Rank = r.Rank
		r.Item.LiveSeconds = r.Live
		out[i] = r.Item
	}
	return out, nil
}
