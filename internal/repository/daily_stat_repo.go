package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rally-backend/internal/models"
)

type DailyStatRepo struct {
	pool *pgxpool.Pool
}

func NewDailyStatRepo(pool *pgxpool.Pool) *DailyStatRepo {
	return &DailyStatRepo{pool: pool}
}

// Get returns the user's stat for day, or ErrNotFound when nothing was banked.
func (r *DailyStatRepo) Get(ctx context.Context, userID uuid.UUID, day time.Time) (*models.DailyStat, error) {
	stat := &models.DailyStat{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, date, total_seconds, is_public
		FROM daily_stats
		WHERE user_id = $1 AND date = $2`, userID, day).Scan(
		&stat.ID, &stat.UserID, &stat.Date, &stat.TotalSeconds, &stat.IsPublic,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get daily stat: %w", err)
	}
	return stat, nil
}

// TotalForDay is Get collapsed to the banked seconds.
func (r *DailyStatRepo) TotalForDay(ctx context.Context, userID uuid.UUID, day time.Time) (int, error) {
	stat, err := r.Get(ctx, userID, day)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return stat.TotalSeconds, nil
}

func (r *DailyStatRepo) ForUsers(ctx context.Context, userIDs []uuid.UUID, day time.Time) (map[uuid.UUID]models.DailyStat, error) {
	out := make(map[uuid.UUID]models.DailyStat, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, date, total_seconds, is_public
		FROM daily_stats
		WHERE date = $1 AND user_id = ANY($2::uuid[])`, day, uuidStrings(userIDs))
	if err != nil {
		return nil, fmt.Errorf("daily stats for users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stat models.DailyStat
		if err := rows.Scan(&stat.ID, &stat.UserID, &stat.Date, &stat.TotalSeconds, &stat.IsPublic); err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		out[stat.UserID] = stat
	}
	return out, rows.Err()
}

const leaderboardUserColumns = `u.id, u.username, u.display_name, u.avatar_url, u.is_timer_public, u.is_location_public`

func scanLeaderboardRow(row pgx.Row) (models.LeaderboardRow, error) {
	var lr models.LeaderboardRow
	err := row.Scan(
		&lr.User.ID, &lr.User.Username, &lr.User.DisplayName, &lr.User.AvatarURL,
		&lr.IsTimerPublic, &lr.IsLocationPublic, &lr.TotalSeconds, &lr.StatIsPublic,
	)
	return lr, err
}

// PublicForDay pages through the day's public, non-zero totals, highest first.
func (r *DailyStatRepo) PublicForDay(ctx context.Context, day time.Time, limit, offset int) ([]models.LeaderboardRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leaderboardUserColumns+`, ds.total_seconds, ds.is_public
		FROM daily_stats ds
		JOIN users u ON u.id = ds.user_id
		WHERE ds.date = $1 AND ds.is_public AND ds.total_seconds > 0
		ORDER BY ds.total_seconds DESC, ds.id
		LIMIT $2 OFFSET $3`, day, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("public daily stats: %w", err)
	}
	defer rows.Close()

	var out []models.LeaderboardRow
	for rows.Next() {
		lr, err := scanLeaderboardRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

// LeaderboardRowFor loads one user's standing for day even when nothing is
// banked yet.
func (r *DailyStatRepo) LeaderboardRowFor(ctx context.Context, userID uuid.UUID, day time.Time) (models.LeaderboardRow, error) {
	lr, err := scanLeaderboardRow(r.pool.QueryRow(ctx, `
		SELECT `+leaderboardUserColumns+`, COALESCE(ds.total_seconds, 0), COALESCE(ds.is_public, FALSE)
		FROM users u
		LEFT JOIN daily_stats ds ON ds.user_id = u.id AND ds.date = $2
		WHERE u.id = $1`, userID, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return lr, ErrNotFound
		}
		return lr, fmt.Errorf("leaderboard row: %w", err)
	}
	return lr, nil
}

// CountPublicAbove counts public totals for day strictly greater than total.
func (r *DailyStatRepo) CountPublicAbove(ctx context.Context, day time.Time, total int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM daily_stats
		WHERE date = $1 AND is_public AND total_seconds > $2`, day, total).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count public above: %w", err)
	}
	return n, nil
}

// StudyDates lists the days the user banked any time, newest first.
func (r *DailyStatRepo) StudyDates(ctx context.Context, userID uuid.UUID) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date FROM daily_stats
		WHERE user_id = $1 AND total_seconds > 0
		ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("study dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan study date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// SetVisibility copies the user's timer visibility onto an existing stat row.
func (r *DailyStatRepo) SetVisibility(ctx context.Context, userID uuid.UUID, day time.Time, isPublic bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE daily_stats SET is_public = $3
		WHERE user_id = $1 AND date = $2`, userID, day, isPublic)
	if err != nil {
		return fmt.Errorf("set daily stat visibility: %w", err)
	}
	return nil
}
