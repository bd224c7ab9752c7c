package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rally-backend/internal/events"
	"rally-backend/internal/logging"
	"rally-backend/internal/models"
)

const (
	defaultClassPageSize = 32
	maxClassPageSize     = 100
)

type ClassService struct {
	classes ClassStore
	events  EventEmitter
}

func NewClassService(classes ClassStore, emitter EventEmitter) *ClassService {
	return &ClassService{classes: classes, events: emitter}
}

// List pages through active classes. Out of range page and limit values are
// clamped rather than rejected.
func (s *ClassService) List(ctx context.Context, viewer uuid.UUID, f models.ClassFilter) (*models.ClassList, error) {
	f.Search = strings.TrimSpace(f.Search)
	f.Semester = strings.TrimSpace(f.Semester)
	if f.Limit <= 0 {
		f.Limit = defaultClassPageSize
	}
	if f.Limit > maxClassPageSize {
		f.Limit = maxClassPageSize
	}
	if f.Page < 1 {
		f.Page = 1
	}

	items, total, err := s.classes.List(ctx, viewer, f)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	if items == nil {
		items = []models.ClassListItem{}
	}

	return &models.ClassList{
		Classes: items,
		Pagination: models.Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: (total + f.Limit - 1) / f.Limit,
		},
	}, nil
}

func parseClassID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, invalid("classId", "A valid class id is required")
	}
	return id, nil
}

// Join enrolls the user and seats them in the class chat room.
func (s *ClassService) Join(ctx context.Context, userID uuid.UUID, req models.ClassMembershipRequest) (*models.JoinClassResult, error) {
	classID, err := parseClassID(req.ClassID)
	if err != nil {
		return nil, err
	}

	if _, err := s.classes.GetActive(ctx, classID); err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Message: "Class not found"}
		}
		return nil, fmt.Errorf("load class: %w", err)
	}

	roomID, err := s.classes.Join(ctx, userID, classID)
	if err != nil {
		switch {
		case isConflict(err):
			return nil, &ConflictError{Message: "Already joined this class"}
		case isNotFound(err):
			return nil, &NotFoundError{Message: "Class not found"}
		}
		return nil, fmt.Errorf("join class: %w", err)
	}

	s.events.Emit(ctx, events.ClassJoined, userID, map[string]any{
		"classId":    classID,
		"chatRoomId": roomID,
	})
	logging.FromContext(ctx).Info("class joined", "user_id", userID, "class_id", classID)

	return &models.JoinClassResult{Success: true, ClassID: classID, ChatRoomID: roomID}, nil
}

func (s *ClassService) Leave(ctx context.Context, userID uuid.UUID, req models.ClassMembershipRequest) error {
	classID, err := parseClassID(req.ClassID)
	if err != nil {
		return err
	}

	if err := s.classes.Leave(ctx, userID, classID); err != nil {
		if isNotFound(err) {
			return &ConflictError{Message: "Not a member of this class"}
		}
		return fmt.Errorf("leave class: %w", err)
	}
	return nil
}

// ForUser lists the classes the user has joined.
func (s *ClassService) ForUser(ctx context.Context, userID uuid.UUID) ([]models.Class, error) {
	classes, err := s.classes.ForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("classes for user: %w", err)
	}
	if classes == nil {
		classes = []models.Class{}
	}
	return classes, nil
}
