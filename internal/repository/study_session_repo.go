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
	"rally-backend/internal/studytime"
)

const sessionColumns = `id, user_id, class_id, mode, started_at, ended_at, duration_seconds, is_active, last_heartbeat_at, created_at`

type StudySessionRepo struct {
	pool *pgxpool.Pool
}

func NewStudySessionRepo(pool *pgxpool.Pool) *StudySessionRepo {
	return &StudySessionRepo{pool: pool}
}

func scanSession(row pgx.Row) (*models.StudySession, error) {
	s := &models.StudySession{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.ClassID, &s.Mode, &s.StartedAt, &s.EndedAt,
		&s.DurationSeconds, &s.IsActive, &s.LastHeartbeatAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func collectSessions(rows pgx.Rows) ([]models.StudySession, error) {
	defer rows.Close()
	var sessions []models.StudySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// Create inserts a new active session. A concurrent start that lost the race
// for the (user, mode) active slot comes back as ErrConflict.
func (r *StudySessionRepo) Create(ctx context.Context, s *models.StudySession) error {
	query := `
		INSERT INTO study_sessions (id, user_id, class_id, mode, started_at, is_active, last_heartbeat_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $5)
		RETURNING created_at`

	s.ID = uuid.New()
	s.IsActive = true
	s.LastHeartbeatAt = &s.StartedAt

	err := r.pool.QueryRow(ctx, query, s.ID, s.UserID, s.ClassID, s.Mode, s.StartedAt).Scan(&s.CreatedAt)
	if err != nil {
		if mapped := mapError(err); mapped == ErrConflict {
			return ErrConflict
		}
		return fmt.Errorf("insert study session: %w", err)
	}
	return nil
}

// FindActive returns the active session for (user, mode), or for any mode
// when mode is empty.
func (r *StudySessionRepo) FindActive(ctx context.Context, userID uuid.UUID, mode string) (*models.StudySession, error) {
	query := `SELECT ` + sessionColumns + ` FROM study_sessions
		WHERE user_id = $1 AND is_active AND ($2 = '' OR mode = $2)
		ORDER BY started_at DESC
		LIMIT 1`

	s, err := scanSession(r.pool.QueryRow(ctx, query, userID, mode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find active session: %w", err)
	}
	return s, nil
}

// LastFinished returns the most recently ended session for (user, mode).
func (r *StudySessionRepo) LastFinished(ctx context.Context, userID uuid.UUID, mode string) (*models.StudySession, error) {
	query := `SELECT ` + sessionColumns + ` FROM study_sessions
		WHERE user_id = $1 AND NOT is_active AND ended_at IS NOT NULL AND ($2 = '' OR mode = $2)
		ORDER BY ended_at DESC
		LIMIT 1`

	s, err := scanSession(r.pool.QueryRow(ctx, query, userID, mode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find last finished session: %w", err)
	}
	return s, nil
}

// Heartbeat bumps every active session of the user and returns the most
// recently started one.
func (r *StudySessionRepo) Heartbeat(ctx context.Context, userID uuid.UUID, at time.Time) (uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE study_sessions
		SET last_heartbeat_at = $2
		WHERE user_id = $1 AND is_active
		RETURNING id, started_at`, userID, at)
	if err != nil {
		return uuid.Nil, fmt.Errorf("heartbeat: %w", err)
	}
	defer rows.Close()

	var latestID uuid.UUID
	var latestStart time.Time
	for rows.Next() {
		var id uuid.UUID
		var startedAt time.Time
		if err := rows.Scan(&id, &startedAt); err != nil {
			return uuid.Nil, fmt.Errorf("scan heartbeat: %w", err)
		}
		if latestID == uuid.Nil || startedAt.After(latestStart) {
			latestID, latestStart = id, startedAt
		}
	}
	if err := rows.Err(); err != nil {
		return uuid.Nil, fmt.Errorf("heartbeat: %w", err)
	}
	if latestID == uuid.Nil {
		return uuid.Nil, ErrNotFound
	}
	return latestID, nil
}

// ListStale returns active sessions whose last heartbeat is missing or older
// than cutoff.
func (r *StudySessionRepo) ListStale(ctx context.Context, cutoff time.Time) ([]models.StudySession, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM study_sessions
		WHERE is_active AND (last_heartbeat_at IS NULL OR last_heartbeat_at < $1)
		ORDER BY started_at`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale sessions: %w", err)
	}
	return collectSessions(rows)
}

func (r *StudySessionRepo) ListActive(ctx context.Context) ([]models.StudySession, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM study_sessions
		WHERE is_active
		ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return collectSessions(rows)
}

// Finalize closes the given sessions at endedAt and credits each duration to
// day, all in one transaction. A session another writer already closed is
// skipped, so each session is credited exactly once.
func (r *StudySessionRepo) Finalize(ctx context.Context, sessions []models.StudySession, endedAt, day time.Time) ([]models.FinalizedSession, error) {
	if len(sessions) == 0 {
		return nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback(ctx)

	var finalized []models.FinalizedSession
	for _, s := range sessions {
		duration := studytime.Elapsed(s.StartedAt, endedAt)

		tag, err := tx.Exec(ctx, `
			UPDATE study_sessions
			SET ended_at = $2, duration_seconds = $3, is_active = FALSE
			WHERE id = $1 AND is_active`, s.ID, endedAt, duration)
		if err != nil {
			return nil, fmt.Errorf("finalize session %s: %w", s.ID, err)
		}
		if tag.RowsAffected() != 1 {
			continue
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO daily_stats (id, user_id, date, total_seconds, is_public)
			SELECT $1, u.id, $3, $4, u.is_timer_public FROM users u WHERE u.id = $2
			ON CONFLICT (user_id, date)
			DO UPDATE SET total_seconds = daily_stats.total_seconds + EXCLUDED.total_seconds`,
			uuid.New(), s.UserID, day, duration)
		if err != nil {
			return nil, fmt.Errorf("credit daily stat for session %s: %w", s.ID, err)
		}

		finalized = append(finalized, models.FinalizedSession{
			SessionID:       s.ID,
			UserID:          s.UserID,
			Mode:            s.Mode,
			StartedAt:       s.StartedAt,
			EndedAt:         endedAt,
			DurationSeconds: duration,
			Day:             day,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit finalize: %w", err)
	}
	return finalized, nil
}

// LatestForUsers returns each user's most recently started session.
func (r *StudySessionRepo) LatestForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*models.StudySession, error) {
	out := make(map[uuid.UUID]*models.StudySession, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT DISTINCT ON (user_id) `+sessionColumns+` FROM study_sessions
		WHERE user_id = ANY($1::uuid[])
		ORDER BY user_id, started_at DESC`, uuidStrings(userIDs))
	if err != nil {
		return nil, fmt.Errorf("latest sessions: %w", err)
	}
	sessions, err := collectSessions(rows)
	if err != nil {
		return nil, fmt.Errorf("latest sessions: %w", err)
	}
	for i := range sessions {
		out[sessions[i].UserID] = &sessions[i]
	}
	return out, nil
}

// Totals sums finished sessions for the profile stats card.
func (r *StudySessionRepo) Totals(ctx context.Context, userID uuid.UUID) (totalSeconds, totalSessions int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(duration_seconds) FILTER (WHERE duration_seconds > 0), 0),
			COUNT(*)
		FROM study_sessions
		WHERE user_id = $1 AND ended_at IS NOT NULL`, userID).Scan(&totalSeconds, &totalSessions)
	if err != nil {
		return 0, 0, fmt.Errorf("session totals: %w", err)
	}
	return totalSeconds, totalSessions, nil
}
