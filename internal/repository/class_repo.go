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

const classColumns = `c.id, c.name, c.code, c.section, c.semester, c.is_active, c.created_at`

type ClassRepo struct {
	pool *pgxpool.Pool
}

func NewClassRepo(pool *pgxpool.Pool) *ClassRepo {
	return &ClassRepo{pool: pool}
}

func scanClass(row pgx.Row, extra ...any) (*models.Class, error) {
	c := &models.Class{}
	dest := append([]any{&c.ID, &c.Name, &c.Code, &c.Section, &c.Semester, &c.IsActive, &c.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List pages through active classes matching the filter, annotated for the
// viewer.
func (r *ClassRepo) List(ctx context.Context, viewer uuid.UUID, f models.ClassFilter) ([]models.ClassListItem, int, error) {
	pattern := ""
	if f.Search != "" {
		pattern = "%" + escapeLike(f.Search) + "%"
	}

	where := `
		WHERE c.is_active
		  AND ($2 = '' OR c.name ILIKE $2 OR c.code ILIKE $2)
		  AND ($3 = '' OR c.semester = $3)
		  AND (NOT $4::BOOLEAN OR EXISTS(SELECT 1 FROM user_classes j WHERE j.class_id = c.id AND j.user_id = $1))`

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM classes c`+where, viewer, pattern, f.Semester, f.JoinedOnly).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+classColumns+`,
			(SELECT COUNT(*) FROM user_classes m WHERE m.class_id = c.id),
			EXISTS(SELECT 1 FROM user_classes j WHERE j.class_id = c.id AND j.user_id = $1),
			cr.id
		FROM classes c
		LEFT JOIN chat_rooms cr ON cr.class_id = c.id`+where+`
		ORDER BY c.code, c.section, c.id
		LIMIT $5 OFFSET $6`,
		viewer, pattern, f.Semester, f.JoinedOnly, f.Limit, (f.Page-1)*f.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	var out []models.ClassListItem
	for rows.Next() {
		var item models.ClassListItem
		c, err := scanClass(rows, &item.MemberCount, &item.IsJoined, &item.ChatRoomID)
		if err != nil {
			return nil, 0, fmt.Errorf("scan class: %w", err)
		}
		item.Class = *c
		out = append(out, item)
	}
	return out, total, rows.Err()
}

// GetActive returns the class unless it is missing or deactivated.
func (r *ClassRepo) GetActive(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	c, err := scanClass(r.pool.QueryRow(ctx, `SELECT `+classColumns+` FROM classes c WHERE c.id = $1 AND c.is_active`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get class: %w", err)
	}
	return c, err
}

func (r *ClassRepo) IsMember(ctx context.Context, userID, classID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM user_classes WHERE user_id = $1 AND class_id = $2)`, userID, classID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("class membership: %w", err)
	}
	return ok, nil
}

// ForUser lists the user's classes by code.
func (r *ClassRepo) ForUser(ctx context.Context, userID uuid.UUID) ([]models.Class, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+classColumns+`
		FROM classes c
		JOIN user_classes uc ON uc.class_id = c.id
		WHERE uc.user_id = $1
		ORDER BY c.code, c.section`, userID)
	if err != nil {
		return nil, fmt.Errorf("classes for user: %w", err)
	}
	defer rows.Close()

	out := []models.Class{}
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Join adds the membership, creates the class chat room on first use and
// puts the user in it. ErrConflict means the user already belongs.
func (r *ClassRepo) Join(ctx context.Context, userID, classID uuid.UUID) (uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin join class: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO user_classes (user_id, class_id) VALUES ($1, $2)`, userID, classID); err != nil {
		if mapped := mapError(err); mapped == ErrConflict || mapped == ErrNotFound {
			return uuid.Nil, mapped
		}
		return uuid.Nil, fmt.Errorf("insert class membership: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO chat_rooms (id, type, class_id) VALUES ($1, $2, $3)
		ON CONFLICT (class_id) DO NOTHING`, uuid.New(), models.RoomTypeClass, classID); err != nil {
		return uuid.Nil, fmt.Errorf("ensure class room: %w", err)
	}

	var roomID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM chat_rooms WHERE class_id = $1`, classID).Scan(&roomID); err != nil {
		return uuid.Nil, fmt.Errorf("load class room: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO chat_room_users (room_id, user_id) VALUES ($1, $2)
		ON CONFLICT (room_id, user_id) DO NOTHING`, roomID, userID); err != nil {
		return uuid.Nil, fmt.Errorf("join class room: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit join class: %w", err)
	}
	return roomID, nil
}

// Leave removes the membership and the class room seat. ErrNotFound means
// the user was not a member.
func (r *ClassRepo) Leave(ctx context.Context, userID, classID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin leave class: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM user_classes WHERE user_id = $1 AND class_id = $2`, userID, classID)
	if err != nil {
		return fmt.Errorf("delete class membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM chat_room_users
		WHERE user_id = $1 AND room_id IN (SELECT id FROM chat_rooms WHERE class_id = $2)`, userID, classID); err != nil {
		return fmt.Errorf("leave class room: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit leave class: %w", err)
	}
	return nil
}

// Create inserts a class for the admin bulk import. ErrConflict means the
// (code, section, semester) triple already exists.
func (r *ClassRepo) Create(ctx context.Context, in models.BulkClassInput) (uuid.UUID, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM classes
			WHERE code = $1 AND COALESCE(section, '') = COALESCE($2, '') AND semester = $3)`,
		in.Code, in.Section, in.Semester).Scan(&exists)
	if err != nil {
		return uuid.Nil, fmt.Errorf("check class: %w", err)
	}
	if exists {
		return uuid.Nil, ErrConflict
	}

	id := uuid.New()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO classes (id, name, code, section, semester)
		VALUES ($1, $2, $3, $4, $5)`, id, in.Name, in.Code, in.Section, in.Semester)
	if err != nil {
		if mapError(err) == ErrConflict {
			return uuid.Nil, ErrConflict
		}
		return uuid.Nil, fmt.Errorf("insert class: %w", err)
	}
	return id, nil
}
