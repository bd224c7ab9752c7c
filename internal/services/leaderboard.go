package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"rally-backend/internal/models"
	"rally-backend/internal/studytime"
)

const leaderboardPageSize = 100

type LeaderboardService struct {
	stats     DailyStatStore
	sessions  SessionStore
	locations LocationStore
	now       func() time.Time
}

func NewLeaderboardService(stats DailyStatStore, sessions SessionStore, locations LocationStore) *LeaderboardService {
	return &LeaderboardService{stats: stats, sessions: sessions, locations: locations, now: time.Now}
}

// encodeCursor packs the last user on a page and the offset of the next page.
func encodeCursor(lastUserID uuid.UUID, offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(lastUserID.String() + ":" + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, invalid("cursor", "Invalid cursor")
	}
	_, offsetPart, ok := strings.Cut(string(raw), ":")
	if !ok {
		return 0, invalid("cursor", "Invalid cursor")
	}
	offset, err := strconv.Atoi(offsetPart)
	if err != nil || offset < 0 {
		return 0, invalid("cursor", "Invalid cursor")
	}
	return offset, nil
}

// snapshotFor is the projection input for one row. Another user's running
// session only counts when their timer is public.
func snapshotFor(row models.LeaderboardRow, viewer uuid.UUID) studytime.Snapshot {
	snap := studytime.Snapshot{Base: row.TotalSeconds}
	if row.Session != nil && (row.IsTimerPublic || row.User.ID == viewer) {
		started := row.Session.StartedAt
		snap.StartedAt = &started
		snap.IsActive = row.Session.IsActive
	}
	return snap
}

func entryFor(r studytime.Ranked[models.LeaderboardRow], viewer uuid.UUID) models.LeaderboardEntry {
	row := r.Item
	entry := models.LeaderboardEntry{
		Rank:          r.Rank,
		UserID:        row.User.ID,
		Username:      row.User.Username,
		DisplayName:   row.User.DisplayName,
		AvatarURL:     row.User.AvatarURL,
		TotalSeconds:  row.TotalSeconds,
		LiveSeconds:   r.Live,
		IsTimerPublic: row.IsTimerPublic,
		IsCurrentUser: row.User.ID == viewer,
	}
	if row.Session != nil {
		entry.IsActiveNow = row.Session.IsActive
		if row.IsTimerPublic || entry.IsCurrentUser {
			entry.Session = row.Session.Snapshot()
		}
	}
	if row.IsLocationPublic {
		entry.Location = row.Location
	}
	return entry
}

// attach loads the latest session and location of every row.
func (s *LeaderboardService) attach(ctx context.Context, rows []models.LeaderboardRow) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.User.ID
	}

	latest, err := s.sessions.LatestForUsers(ctx, ids)
	if err != nil {
		return fmt.Errorf("latest sessions: %w", err)
	}
	locs, err := s.locations.RefsForUsers(ctx, ids)
	if err != nil {
		return fmt.Errorf("user locations: %w", err)
	}

	for i := range rows {
		rows[i].Session = latest[rows[i].User.ID]
		if loc, ok := locs[rows[i].User.ID]; ok {
			rows[i].Location = &loc
		}
	}
	return nil
}

// School returns one page of today's public totals. The viewer's own entry is
// included on the first page when their stat is public.
func (s *LeaderboardService) School(ctx context.Context, viewer uuid.UUID, cursor string) (*models.SchoolLeaderboard, error) {
	offset, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	day := studytime.Day(now, 0)

	rows, err := s.stats.PublicForDay(ctx, day, leaderboardPageSize+1, offset)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	hasMore := len(rows) > leaderboardPageSize
	if hasMore {
		rows = rows[:leaderboardPageSize]
	}

	var self *models.LeaderboardRow
	if cursor == "" {
		row, err := s.stats.LeaderboardRowFor(ctx, viewer, day)
		if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("load viewer standing: %w", err)
		}
		if err == nil && row.StatIsPublic {
			self = &row
		}
	}

	all := rows
	if self != nil {
		all = append(append([]models.LeaderboardRow{}, rows...), *self)
	}
	if err := s.attach(ctx, all); err != nil {
		return nil, err
	}
	if self != nil {
		*self = all[len(all)-1]
		all = all[:len(all)-1]
	}

	ranked := studytime.Rank(all, now, offset, func(r models.LeaderboardRow) studytime.Snapshot {
		return snapshotFor(r, viewer)
	})

	board := &models.SchoolLeaderboard{
		Leaderboard: make([]models.LeaderboardEntry, 0, len(ranked)),
		Date:        studytime.FormatDay(day),
		HasMore:     hasMore,
		GeneratedAt: now,
	}
	for _, r := range ranked {
		board.Leaderboard = append(board.Leaderboard, entryFor(r, viewer))
	}

	if hasMore {
		next := encodeCursor(all[len(all)-1].User.ID, offset+leaderboardPageSize)
		board.NextCursor = &next
	}

	// On the page the viewer takes the rank shown there.
	for i := range board.Leaderboard {
		if board.Leaderboard[i].UserID == viewer {
			entry := board.Leaderboard[i]
			board.CurrentUserEntry = &entry
			return board, nil
		}
	}

	if self != nil {
		above, err := s.stats.CountPublicAbove(ctx, day, self.TotalSeconds)
		if err != nil {
			return nil, fmt.Errorf("rank viewer: %w", err)
		}
		snap := snapshotFor(*self, viewer)
		entry := entryFor(studytime.Ranked[models.LeaderboardRow]{Item: *self, Rank: above + 1, Live: snap.Live(now)}, viewer)
		board.CurrentUserEntry = &entry
	}

	return board, nil
}

// Location ranks everyone publicly checked in at locationID by live seconds.
func (s *LeaderboardService) Location(ctx context.Context, viewer, locationID uuid.UUID) (*models.LocationLeaderboard, error) {
	loc, err := s.locations.GetActiveRef(ctx, locationID)
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Message: "Location not found"}
		}
		return nil, fmt.Errorf("load location: %w", err)
	}

	now := s.now().UTC()
	day := studytime.Day(now, 0)

	rows, err := s.locations.MembersOf(ctx, locationID, day)
	if err != nil {
		return nil, fmt.Errorf("load location members: %w", err)
	}
	if err := s.attach(ctx, rows); err != nil {
		return nil, err
	}
	for i := range rows {
		if !rows[i].StatIsPublic && rows[i].User.ID != viewer {
			rows[i].TotalSeconds = 0
		}
		rows[i].Location = loc
	}

	ranked := studytime.Rank(rows, now, 0, func(r models.LeaderboardRow) studytime.Snapshot {
		return snapshotFor(r, viewer)
	})

	board := &models.LocationLeaderboard{
		Location:    *loc,
		Leaderboard: make([]models.LeaderboardEntry, 0, len(ranked)),
		Date:        studytime.FormatDay(day),
		GeneratedAt: now,
	}
	for _, r := range ranked {
		entry := entryFor(r, viewer)
		board.Leaderboard = append(board.Leaderboard, entry)
		if entry.IsCurrentUser {
			self := entry
			board.CurrentUserEntry = &self
		}
	}
	return board, nil
}
