package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rally-backend/internal/models"
)

const userColumns = `id, email, username, display_name, bio, avatar_url, is_timer_public,
	is_location_public, is_classes_public, username_changes, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.Username, &user.DisplayName, &user.Bio, &user.AvatarURL,
		&user.IsTimerPublic, &user.IsLocationPublic, &user.IsClassesPublic,
		&user.UsernameChanges, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// Create stores a profile keyed by the identity provider's user id.
func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, username, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING is_timer_public, is_location_public, is_classes_public, username_changes, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, user.ID, user.Email, user.Username, user.DisplayName).Scan(
		&user.IsTimerPublic, &user.IsLocationPublic, &user.IsClassesPublic,
		&user.UsernameChanges, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if mapError(err) == ErrConflict {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, err
}

func (r *UserRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

// UsernameTaken compares case-insensitively and ignores the given user.
func (r *UserRepo) UsernameTaken(ctx context.Context, username string, except uuid.UUID) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1) AND id <> $2)`,
		username, except).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("username taken: %w", err)
	}
	return taken, nil
}

func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("email taken: %w", err)
	}
	return taken, nil
}

// Update writes the editable profile fields.
func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET display_name = $2, bio = $3, avatar_url = $4,
			is_timer_public = $5, is_location_public = $6, is_classes_public = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		user.ID, user.DisplayName, user.Bio, user.AvatarURL,
		user.IsTimerPublic, user.IsLocationPublic, user.IsClassesPublic,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *UserRepo) SetAvatar(ctx context.Context, userID uuid.UUID, url string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET avatar_url = $2, updated_at = NOW() WHERE id = $1`, userID, url)
	if err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ChangeUsername renames the user while the change allowance lasts. It
// returns ErrConflict when the allowance is used up or the name is taken.
func (r *UserRepo) ChangeUsername(ctx context.Context, userID uuid.UUID, username string, maxChanges int) (*models.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET username = $2, username_changes = username_changes + 1, updated_at = NOW()
		WHERE id = $1 AND username_changes < $3
		RETURNING `+userColumns, userID, username, maxChanges))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrConflict
		}
		if mapError(err) == ErrConflict {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("change username: %w", err)
	}
	return user, nil
}

// Search matches username or display name by substring, excluding one user.
func (r *UserRepo) Search(ctx context.Context, q string, exclude uuid.UUID, limit, offset int) ([]models.UserSummary, error) {
	pattern := "%" + escapeLike(q) + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT id, username, display_name, avatar_url
		FROM users
		WHERE id <> $1 AND (username ILIKE $2 OR display_name ILIKE $2)
		ORDER BY username, id
		LIMIT $3 OFFSET $4`, exclude, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var out []models.UserSummary
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan user summary: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
