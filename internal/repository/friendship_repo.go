package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rally-backend/internal/models"
)

const friendshipColumns = `id, requester_id, addressee_id, status, created_at, updated_at`

type FriendshipRepo struct {
	pool *pgxpool.Pool
}

func NewFriendshipRepo(pool *pgxpool.Pool) *FriendshipRepo {
	return &FriendshipRepo{pool: pool}
}

func scanFriendship(row pgx.Row) (*models.Friendship, error) {
	f := &models.Friendship{}
	err := row.Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (r *FriendshipRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	f, err := scanFriendship(r.pool.QueryRow(ctx, `SELECT `+friendshipColumns+` FROM friendships WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get friendship: %w", err)
	}
	return f, err
}

// FindBetween looks up the row for the unordered pair.
func (r *FriendshipRepo) FindBetween(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error) {
	f, err := scanFriendship(r.pool.QueryRow(ctx, `SELECT `+friendshipColumns+` FROM friendships
		WHERE (requester_id = $1 AND addressee_id = $2) OR (requester_id = $2 AND addressee_id = $1)`, a, b))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find friendship: %w", err)
	}
	return f, err
}

// CreateRequest inserts a PENDING request. When replaceID is set, that row
// (a previously rejected request for the same pair) is removed in the same
// transaction.
func (r *FriendshipRepo) CreateRequest(ctx context.Context, f *models.Friendship, replaceID *uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin friend request: %w", err)
	}
	defer tx.Rollback(ctx)

	if replaceID != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM friendships WHERE id = $1 AND status = $2`, *replaceID, models.FriendshipRejected); err != nil {
			return fmt.Errorf("remove rejected friendship: %w", err)
		}
	}

	f.ID = uuid.New()
	f.Status = models.FriendshipPending
	err = tx.QueryRow(ctx, `
		INSERT INTO friendships (id, requester_id, addressee_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`, f.ID, f.RequesterID, f.AddresseeID, f.Status).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if mapped := mapError(err); mapped == ErrConflict || mapped == ErrNotFound {
			return mapped
		}
		return fmt.Errorf("insert friendship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit friend request: %w", err)
	}
	return nil
}

// Respond moves a PENDING row to status. ErrConflict means it was no longer
// pending.
func (r *FriendshipRepo) Respond(ctx context.Context, id uuid.UUID, status string) (*models.Friendship, error) {
	f, err := scanFriendship(r.pool.QueryRow(ctx, `
		UPDATE friendships SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING `+friendshipColumns, id, status, models.FriendshipPending))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("respond to friendship: %w", err)
	}
	return f, nil
}

func (r *FriendshipRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM friendships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *FriendshipRepo) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM friendships
			WHERE status = $3
			  AND ((requester_id = $1 AND addressee_id = $2) OR (requester_id = $2 AND addressee_id = $1)))`,
		a, b, models.FriendshipAccepted).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("are friends: %w", err)
	}
	return ok, nil
}

// ListAccepted returns the user's friends with the other party's profile.
func (r *FriendshipRepo) ListAccepted(ctx context.Context, userID uuid.UUID) ([]models.FriendRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT f.id, f.updated_at, u.id, u.username, u.display_name, u.avatar_url,
			u.is_timer_public, u.is_location_public
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.addressee_id ELSE f.requester_id END
		WHERE f.status = $2 AND (f.requester_id = $1 OR f.addressee_id = $1)
		ORDER BY f.updated_at`, userID, models.FriendshipAccepted)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var out []models.FriendRow
	for rows.Next() {
		var fr models.FriendRow
		if err := rows.Scan(
			&fr.FriendshipID, &fr.Since, &fr.User.ID, &fr.User.Username, &fr.User.DisplayName,
			&fr.User.AvatarURL, &fr.IsTimerPublic, &fr.IsLocationPublic,
		); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}

// ListPending returns pending requests addressed to the user (incoming) or
// sent by the user, newest first.
func (r *FriendshipRepo) ListPending(ctx context.Context, userID uuid.UUID, incoming bool) ([]models.FriendRequestView, error) {
	query := `
		SELECT f.id, f.status, f.created_at, u.id, u.username, u.display_name, u.avatar_url
		FROM friendships f
		JOIN users u ON u.id = f.requester_id
		WHERE f.addressee_id = $1 AND f.status = $2
		ORDER BY f.created_at DESC`
	if !incoming {
		query = `
		SELECT f.id, f.status, f.created_at, u.id, u.username, u.display_name, u.avatar_url
		FROM friendships f
		JOIN users u ON u.id = f.addressee_id
		WHERE f.requester_id = $1 AND f.status = $2
		ORDER BY f.created_at DESC`
	}

	rows, err := r.pool.Query(ctx, query, userID, models.FriendshipPending)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	var out []models.FriendRequestView
	for rows.Next() {
		var v models.FriendRequestView
		if err := rows.Scan(&v.ID, &v.Status, &v.CreatedAt, &v.User.ID, &v.User.Username, &v.User.DisplayName, &v.User.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
