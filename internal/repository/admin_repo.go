package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rally-backend/internal/models"
)

type AdminRepo struct {
	pool *pgxpool.Pool
}

func NewAdminRepo(pool *pgxpool.Pool) *AdminRepo {
	return &AdminRepo{pool: pool}
}

// Stats gathers the dashboard counters. dayStart is the instant the current
// day began; day is its daily_stats key.
func (r *AdminRepo) Stats(ctx context.Context, dayStart, day time.Time, top int) (*models.AdminStats, error) {
	stats := &models.AdminStats{}
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(DISTINCT user_id) FROM study_sessions WHERE started_at >= $1),
			(SELECT COUNT(*) FROM study_sessions),
			(SELECT COUNT(*) FROM study_sessions WHERE is_active),
			(SELECT COUNT(*) FROM classes),
			(SELECT COUNT(*) FROM locations),
			(SELECT COUNT(*) FROM messages),
			(SELECT COALESCE(SUM(total_seconds), 0) FROM daily_stats WHERE date = $2)`,
		dayStart, day,
	).Scan(
		&stats.TotalUsers, &stats.ActiveUsersToday, &stats.TotalStudySessions, &stats.ActiveTimers,
		&stats.TotalClasses, &stats.TotalLocations, &stats.TotalMessages, &stats.TodaysTotalStudyTime,
	)
	if err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.display_name, u.avatar_url, ds.total_seconds
		FROM daily_stats ds
		JOIN users u ON u.id = ds.user_id
		WHERE ds.date = $1 AND ds.total_seconds > 0
		ORDER BY ds.total_seconds DESC
		LIMIT $2`, day, top)
	if err != nil {
		return nil, fmt.Errorf("top studiers: %w", err)
	}
	defer rows.Close()

	stats.TopStudiers = []models.TopStudier{}
	for rows.Next() {
		var t models.TopStudier
		if err := rows.Scan(&t.User.ID, &t.User.Username, &t.User.DisplayName, &t.User.AvatarURL, &t.TotalSeconds); err != nil {
			return nil, fmt.Errorf("scan top studier: %w", err)
		}
		stats.TopStudiers = append(stats.TopStudiers, t)
	}
	return stats, rows.Err()
}
