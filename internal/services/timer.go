package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rally-backend/internal/events"
	"rally-backend/internal/logging"
	"rally-backend/internal/metrics"
	"rally-backend/internal/models"
	"rally-backend/internal/studytime"
)

// ClassMembership answers whether a user belongs to a class.
type ClassMembership interface {
	IsMember(ctx context.Context, userID, classID uuid.UUID) (bool, error)
}

type TimerService struct {
	sessions SessionStore
	stats    DailyStatStore
	classes  ClassMembership
	limiter  RateLimiter
	events   EventEmitter
	now      func() time.Time
}

func NewTimerService(sessions SessionStore, stats DailyStatStore, classes ClassMembership, limiter RateLimiter, emitter EventEmitter) *TimerService {
	return &TimerService{
		sessions: sessions,
		stats:    stats,
		classes:  classes,
		limiter:  limiter,
		events:   emitter,
		now:      time.Now,
	}
}

func normalizeMode(mode string, fallback string) (string, error) {
	if mode == "" {
		return fallback, nil
	}
	if !models.ValidMode(mode) {
		return "", invalid("mode", "Mode must be CLASSIC or FOCUS")
	}
	return mode, nil
}

func alreadyRunning(sessionID uuid.UUID) error {
	return &ConflictError{
		Message: "Timer is already running",
		Details: map[string]string{"sessionId": sessionID.String()},
	}
}

func (s *TimerService) Start(ctx context.Context, userID uuid.UUID, req models.StartTimerRequest) (*models.TimerStartResult, error) {
	mode, err := normalizeMode(req.Mode, models.ModeClassic)
	if err != nil {
		return nil, err
	}
	if err := allow(ctx, s.limiter, "timer.start", userID); err != nil {
		return nil, err
	}

	existing, err := s.sessions.FindActive(ctx, userID, mode)
	if err == nil {
		return nil, alreadyRunning(existing.ID)
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("check active session: %w", err)
	}

	session := &models.StudySession{
		UserID:    userID,
		ClassID:   s.resolveClass(ctx, userID, req.ClassID),
		Mode:      mode,
		StartedAt: s.now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		if !isConflict(err) {
			return nil, fmt.Errorf("create session: %w", err)
		}
		// A concurrent start won the active slot.
		if winner, ferr := s.sessions.FindActive(ctx, userID, mode); ferr == nil {
			return nil, alreadyRunning(winner.ID)
		}
		return nil, &ConflictError{Message: "Timer is already running"}
	}

	metrics.IncTimerTransition("start", mode)
	s.events.Emit(ctx, events.TimerStarted, userID, map[string]any{
		"sessionId": session.ID,
		"mode":      mode,
		"classId":   session.ClassID,
		"startedAt": session.StartedAt,
	})
	logging.FromContext(ctx).Info("timer started",
		slog.String("session_id", session.ID.String()),
		slog.String("mode", mode),
	)

	return &models.TimerStartResult{
		Success:   true,
		SessionID: session.ID,
		StartedAt: session.StartedAt,
		ClassID:   session.ClassID,
		Mode:      mode,
	}, nil
}

// resolveClass keeps classID only when it names one of the user's classes.
func (s *TimerService) resolveClass(ctx context.Context, userID uuid.UUID, raw *string) *uuid.UUID {
	if raw == nil || *raw == "" || s.classes == nil {
		return nil
	}
	classID, err := uuid.Parse(*raw)
	if err != nil {
		return nil
	}
	ok, err := s.classes.IsMember(ctx, userID, classID)
	if err != nil {
		logging.FromContext(ctx).Warn("class membership lookup failed", slog.Any("error", err))
		return nil
	}
	if !ok {
		return nil
	}
	return &classID
}

// Pause finalizes the running session for mode, CLASSIC when omitted.
func (s *TimerService) Pause(ctx context.Context, userID uuid.UUID, mode string) (*models.TimerPauseResult, error) {
	mode, err := normalizeMode(mode, models.ModeClassic)
	if err != nil {
		return nil, err
	}
	if err := allow(ctx, s.limiter, "timer.pause", userID); err != nil {
		return nil, err
	}

	active, err := s.sessions.FindActive(ctx, userID, mode)
	if err != nil {
		if isNotFound(err) {
			return nil, &ConflictError{Message: "No active timer to pause"}
		}
		return nil, fmt.Errorf("find active session: %w", err)
	}

	now := s.now().UTC()
	day := studytime.Day(now, 0)
	finalized, err := s.sessions.Finalize(ctx, []models.StudySession{*active}, now, day)
	if err != nil {
		return nil, fmt.Errorf("finalize session: %w", err)
	}
	if len(finalized) == 0 {
		return nil, &ConflictError{Message: "No active timer to pause"}
	}
	done := finalized[0]

	total, err := s.stats.TotalForDay(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("read daily total: %w", err)
	}

	metrics.IncTimerTransition("pause", done.Mode)
	metrics.SessionFinalized("pause", done.DurationSeconds)
	s.events.Emit(ctx, events.TimerFinalized, userID, finalizedPayload(done, "pause"))

	return &models.TimerPauseResult{
		Success:         true,
		TotalDuration:   total,
		SessionDuration: done.DurationSeconds,
	}, nil
}

func (s *TimerService) Heartbeat(ctx context.Context, userID uuid.UUID) (*models.TimerHeartbeatResult, error) {
	now := s.now().UTC()
	sessionID, err := s.sessions.Heartbeat(ctx, userID, now)
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Message: "No active timer"}
		}
		return nil, fmt.Errorf("heartbeat: %w", err)
	}
	return &models.TimerHeartbeatResult{Success: true, Timestamp: now, SessionID: sessionID}, nil
}

// Status reports the running session for mode (any mode when empty) and
// today's banked total.
func (s *TimerService) Status(ctx context.Context, userID uuid.UUID, mode string) (*models.TimerStatus, error) {
	mode, err := normalizeMode(mode, "")
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	total, err := s.stats.TotalForDay(ctx, userID, studytime.Day(now, 0))
	if err != nil {
		return nil, fmt.Errorf("read daily total: %w", err)
	}
	status := &models.TimerStatus{TotalSecondsToday: total}

	active, err := s.sessions.FindActive(ctx, userID, mode)
	switch {
	case err == nil:
		current := studytime.Elapsed(active.StartedAt, now)
		startedAt := active.StartedAt
		status.IsActive = true
		status.SessionID = &active.ID
		status.Mode = active.Mode
		status.ClassID = active.ClassID
		status.StartedAt = &startedAt
		status.CurrentDuration = &current
		return status, nil
	case !isNotFound(err):
		return nil, fmt.Errorf("find active session: %w", err)
	}

	last, err := s.sessions.LastFinished(ctx, userID, mode)
	if err != nil {
		if isNotFound(err) {
			return status, nil
		}
		return nil, fmt.Errorf("find last session: %w", err)
	}
	status.LastSessionDuration = last.DurationSeconds
	return status, nil
}

func finalizedPayload(f models.FinalizedSession, reason string) map[string]any {
	return map[string]any{
		"sessionId":       f.SessionID,
		"mode":            f.Mode,
		"startedAt":       f.StartedAt,
		"endedAt":         f.EndedAt,
		"durationSeconds": f.DurationSeconds,
		"day":             studytime.FormatDay(f.Day),
		"reason":          reason,
	}
}
