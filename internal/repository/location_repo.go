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

type LocationRepo struct {
	pool *pgxpool.Pool
}

func NewLocationRepo(pool *pgxpool.Pool) *LocationRepo {
	return &LocationRepo{pool: pool}
}

const locationRefColumns = `l.id, l.name, l.slug, p.id, p.name, p.slug`

// scanLocationRef reads a location plus its optional parent (three nullable
// parent columns).
func scanLocationRef(row pgx.Row, extra ...any) (*models.LocationRef, error) {
	ref := &models.LocationRef{}
	var parentID *uuid.UUID
	var parentName, parentSlug *string
	dest := append([]any{&ref.ID, &ref.Name, &ref.Slug, &parentID, &parentName, &parentSlug}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if parentID != nil && parentName != nil && parentSlug != nil {
		ref.Parent = &models.LocationRef{ID: *parentID, Name: *parentName, Slug: *parentSlug}
	}
	return ref, nil
}

func (r *LocationRepo) ListActive(ctx context.Context) ([]models.Location, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, slug, description, parent_id, sort_order, is_active, created_at
		FROM locations
		WHERE is_active
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	out := []models.Location{}
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Slug, &l.Description, &l.ParentID, &l.SortOrder, &l.IsActive, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetActiveRef returns an active location with its parent.
func (r *LocationRepo) GetActiveRef(ctx context.Context, id uuid.UUID) (*models.LocationRef, error) {
	ref, err := scanLocationRef(r.pool.QueryRow(ctx, `
		SELECT `+locationRefColumns+`
		FROM locations l
		LEFT JOIN locations p ON p.id = l.parent_id
		WHERE l.id = $1 AND l.is_active`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return ref, err
}

// SetUserLocation upserts the user's single current location.
func (r *LocationRepo) SetUserLocation(ctx context.Context, userID, locationID uuid.UUID) (time.Time, error) {
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_locations (user_id, location_id, is_public, updated_at)
		SELECT $1, $2, u.is_location_public, NOW() FROM users u WHERE u.id = $1
		ON CONFLICT (user_id)
		DO UPDATE SET location_id = EXCLUDED.location_id, updated_at = NOW()
		RETURNING updated_at`, userID, locationID).Scan(&updatedAt)
	if err != nil {
		if mapped := mapError(err); mapped == ErrNotFound {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("set user location: %w", err)
	}
	return updatedAt, nil
}

func (r *LocationRepo) GetUserLocation(ctx context.Context, userID uuid.UUID) (*models.UserLocation, error) {
	ul := &models.UserLocation{UserID: userID}
	ref, err := scanLocationRef(r.pool.QueryRow(ctx, `
		SELECT `+locationRefColumns+`, ul.is_public, ul.updated_at
		FROM user_locations ul
		JOIN locations l ON l.id = ul.location_id
		LEFT JOIN locations p ON p.id = l.parent_id
		WHERE ul.user_id = $1`, userID), &ul.IsPublic, &ul.UpdatedAt)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user location: %w", err)
	}
	ul.Location = *ref
	return ul, nil
}

// SetVisibility mirrors the profile's location visibility onto the user's
// current location row.
func (r *LocationRepo) SetVisibility(ctx context.Context, userID uuid.UUID, isPublic bool) error {
	if _, err := r.pool.Exec(ctx, `UPDATE user_locations SET is_public = $2 WHERE user_id = $1`, userID, isPublic); err != nil {
		return fmt.Errorf("set location visibility: %w", err)
	}
	return nil
}

// RefsForUsers returns the current location of each user that has one.
func (r *LocationRepo) RefsForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.LocationRef, error) {
	out := make(map[uuid.UUID]models.LocationRef, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+locationRefColumns+`, ul.user_id
		FROM user_locations ul
		JOIN locations l ON l.id = ul.location_id
		LEFT JOIN locations p ON p.id = l.parent_id
		WHERE ul.user_id = ANY($1::uuid[])`, uuidStrings(userIDs))
	if err != nil {
		return nil, fmt.Errorf("locations for users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID uuid.UUID
		ref, err := scanLocationRef(rows, &userID)
		if err != nil {
			return nil, fmt.Errorf("scan user location: %w", err)
		}
		out[userID] = *ref
	}
	return out, rows.Err()
}

// MembersOf returns everyone publicly checked in at the location with their
// stat for day (zero when nothing is banked).
func (r *LocationRepo) MembersOf(ctx context.Context, locationID uuid.UUID, day time.Time) ([]models.LeaderboardRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leaderboardUserColumns+`, COALESCE(ds.total_seconds, 0), COALESCE(ds.is_public, FALSE)
		FROM user_locations ul
		JOIN users u ON u.id = ul.user_id
		LEFT JOIN daily_stats ds ON ds.user_id = u.id AND ds.date = $2
		WHERE ul.location_id = $1 AND ul.is_public
		ORDER BY COALESCE(ds.total_seconds, 0) DESC, u.username`, locationID, day)
	if err != nil {
		return nil, fmt.Errorf("location members: %w", err)
	}
	defer rows.Close()

	var out []models.LeaderboardRow
	for rows.Next() {
		lr, err := scanLeaderboardRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location member: %w", err)
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

// Create inserts a location for the admin bulk import. ErrConflict means the
// slug is taken.
func (r *LocationRepo) Create(ctx context.Context, in models.BulkLocationInput) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO locations (id, name, slug, description)
		VALUES ($1, $2, $3, $4)`, id, in.Name, in.Slug, in.Description)
	if err != nil {
		if mapError(err) == ErrConflict {
			return uuid.Nil, ErrConflict
		}
		return uuid.Nil, fmt.Errorf("insert location: %w", err)
	}
	return id, nil
}
