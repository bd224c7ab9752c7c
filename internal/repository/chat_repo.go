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

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

// ListRoomsForUser returns every room the user sits in with its display name
// and latest message, most recently read first.
func (r *ChatRepo) ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatRoomView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT cr.id, cr.type, cr.class_id, c.name, c.code,
			ou.id, ou.username, ou.display_name, ou.avatar_url,
			me.last_read_at,
			lm.id, lm.sender_id, lm.content, lm.created_at
		FROM chat_room_users me
		JOIN chat_rooms cr ON cr.id = me.room_id
		LEFT JOIN classes c ON c.id = cr.class_id
		LEFT JOIN LATERAL (
			SELECT u.id, u.username, u.display_name, u.avatar_url
			FROM chat_room_users o
			JOIN users u ON u.id = o.user_id
			WHERE cr.type = 'DM' AND o.room_id = cr.id AND o.user_id <> $1
			LIMIT 1
		) ou ON TRUE
		LEFT JOIN LATERAL (
			SELECT m.id, m.sender_id, m.content, m.created_at
			FROM messages m
			WHERE m.room_id = cr.id
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT 1
		) lm ON TRUE
		WHERE me.user_id = $1
		ORDER BY me.last_read_at DESC NULLS LAST, cr.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []models.ChatRoomView
	for rows.Next() {
		var (
			v                    models.ChatRoomView
			className, classCode *string
			otherID              *uuid.UUID
			otherUsername        *string
			otherName, otherAvtr *string
			lastID, lastSender   *uuid.UUID
			lastContent          *string
			lastAt               *time.Time
		)
		if err := rows.Scan(
			&v.ID, &v.Type, &v.ClassID, &className, &classCode,
			&otherID, &otherUsername, &otherName, &otherAvtr,
			&v.LastReadAt,
			&lastID, &lastSender, &lastContent, &lastAt,
		); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}

		switch {
		case v.Type == models.RoomTypeClass && className != nil:
			v.Name = *className
			if classCode != nil && *classCode != "" {
				v.Name = *classCode + " · " + *className
			}
		case otherID != nil && otherUsername != nil:
			v.OtherUser = &models.UserSummary{ID: *otherID, Username: *otherUsername, DisplayName: otherName, AvatarURL: otherAvtr}
			v.Name = *otherUsername
			if otherName != nil && *otherName != "" {
				v.Name = *otherName
			}
		default:
			v.Name = "Chat"
		}

		if lastID != nil && lastSender != nil && lastContent != nil && lastAt != nil {
			v.LastMessage = &models.Message{ID: *lastID, RoomID: v.ID, SenderID: *lastSender, Content: *lastContent, CreatedAt: *lastAt}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// FindDM returns the direct-message room shared by exactly a and b.
func (r *ChatRepo) FindDM(ctx context.Context, a, b uuid.UUID) (*models.ChatRoom, error) {
	room := &models.ChatRoom{}
	err := r.pool.QueryRow(ctx, `
		SELECT cr.id, cr.type, cr.class_id, cr.created_at
		FROM chat_rooms cr
		WHERE cr.type = 'DM'
		  AND EXISTS(SELECT 1 FROM chat_room_users x WHERE x.room_id = cr.id AND x.user_id = $1)
		  AND EXISTS(SELECT 1 FROM chat_room_users y WHERE y.room_id = cr.id AND y.user_id = $2)
		ORDER BY cr.created_at
		LIMIT 1`, a, b).Scan(&room.ID, &room.Type, &room.ClassID, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find dm: %w", err)
	}
	return room, nil
}

// CreateDM creates a direct-message room with both members.
func (r *ChatRepo) CreateDM(ctx context.Context, a, b uuid.UUID) (*models.ChatRoom, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create dm: %w", err)
	}
	defer tx.Rollback(ctx)

	room := &models.ChatRoom{ID: uuid.New(), Type: models.RoomTypeDM}
	if err := tx.QueryRow(ctx, `INSERT INTO chat_rooms (id, type) VALUES ($1, $2) RETURNING created_at`,
		room.ID, room.Type).Scan(&room.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert dm room: %w", err)
	}

	for _, member := range []uuid.UUID{a, b} {
		if _, err := tx.Exec(ctx, `INSERT INTO chat_room_users (room_id, user_id) VALUES ($1, $2)`, room.ID, member); err != nil {
			if mapError(err) == ErrNotFound {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("insert dm member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create dm: %w", err)
	}
	return room, nil
}

func (r *ChatRepo) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM chat_room_users WHERE room_id = $1 AND user_id = $2)`, roomID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("room membership: %w", err)
	}
	return ok, nil
}

func (r *ChatRepo) MemberIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM chat_room_users WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, fmt.Errorf("room members: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan room member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateMessage stores the message and returns it with the sender attached.
func (r *ChatRepo) CreateMessage(ctx context.Context, m *models.Message) error {
	m.ID = uuid.New()
	sender := &models.UserSummary{}
	err := r.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO messages (id, room_id, sender_id, content)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at, sender_id
		)
		SELECT i.created_at, u.id, u.username, u.display_name, u.avatar_url
		FROM inserted i JOIN users u ON u.id = i.sender_id`,
		m.ID, m.RoomID, m.SenderID, m.Content,
	).Scan(&m.CreatedAt, &sender.ID, &sender.Username, &sender.DisplayName, &sender.AvatarURL)
	if err != nil {
		if mapError(err) == ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("insert message: %w", err)
	}
	m.Sender = sender
	return nil
}

// ListMessages returns up to limit messages older than the cursor message,
// newest first.
func (r *ChatRepo) ListMessages(ctx context.Context, roomID uuid.UUID, cursor *uuid.UUID, limit int) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.room_id, m.sender_id, m.content, m.created_at,
			u.id, u.username, u.display_name, u.avatar_url
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.room_id = $1
		  AND ($2::uuid IS NULL OR (m.created_at, m.id) < (SELECT c.created_at, c.id FROM messages c WHERE c.id = $2))
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $3`, roomID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		sender := &models.UserSummary{}
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.CreatedAt,
			&sender.ID, &sender.Username, &sender.DisplayName, &sender.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Sender = sender
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ChatRepo) MarkRead(ctx context.Context, roomID, userID uuid.UUID, at time.Time) error {
	if _, err := r.pool.Exec(ctx, `UPDATE chat_room_users SET last_read_at = $3 WHERE room_id = $1 AND user_id = $2`, roomID, userID, at); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}
