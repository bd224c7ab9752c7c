package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rally-backend/internal/events"
	"rally-backend/internal/logging"
	"rally-backend/internal/metrics"
	"rally-backend/internal/models"
	"rally-backend/internal/studytime"
)

// Reconciler finalizes sessions nobody paused: abandoned ones (no heartbeat
// within staleAfter) and everything still running when the New York day ends.
type Reconciler struct {
	sessions   SessionStore
	events     EventEmitter
	staleAfter time.Duration
}

func NewReconciler(sessions SessionStore, emitter EventEmitter, staleAfter time.Duration) *Reconciler {
	return &Reconciler{sessions: sessions, events: emitter, staleAfter: staleAfter}
}

// SweepStale credits abandoned sessions to the day containing now.
func (r *Reconciler) SweepStale(ctx context.Context, now time.Time) (result *models.StaleSweepResult, err error) {
	ctx, span := logging.StartSpan(ctx, "reconcile.stale")
	defer func() { span.End(err) }()

	stale, err := r.sessions.ListStale(ctx, now.Add(-r.staleAfter))
	if err != nil {
		return nil, fmt.Errorf("list stale sessions: %w", err)
	}
	if len(stale) == 0 {
		return &models.StaleSweepResult{Success: true, Message: "No stale sessions found", Timestamp: now}, nil
	}

	finalized, err := r.sessions.Finalize(ctx, stale, now, studytime.Day(now, 0))
	if err != nil {
		return nil, fmt.Errorf("finalize stale sessions: %w", err)
	}
	r.record(ctx, "stale", finalized)

	return &models.StaleSweepResult{
		Success:   true,
		Message:   fmt.Sprintf("Cleaned up %d stale sessions", len(finalized)),
		CleanedUp: len(finalized),
		Timestamp: now,
	}, nil
}

// SweepMidnight credits every running session to the day that just ended.
// It is meant to run just after New York midnight.
func (r *Reconciler) SweepMidnight(ctx context.Context, now time.Time) (result *models.MidnightSweepResult, err error) {
	ctx, span := logging.StartSpan(ctx, "reconcile.midnight")
	defer func() { span.End(err) }()

	active, err := r.sessions.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	if len(active) == 0 {
		return &models.MidnightSweepResult{Success: true, Message: "No active sessions to finalize", Timestamp: now}, nil
	}

	finalized, err := r.sessions.Finalize(ctx, active, now, studytime.Day(now, -1))
	if err != nil {
		return nil, fmt.Errorf("finalize active sessions: %w", err)
	}
	r.record(ctx, "midnight", finalized)

	return &models.MidnightSweepResult{
		Success:        true,
		Message:        fmt.Sprintf("Finalized %d active sessions", len(finalized)),
		FinalizedCount: len(finalized),
		Timestamp:      now,
	}, nil
}

func (r *Reconciler) record(ctx context.Context, reason string, finalized []models.FinalizedSession) {
	for _, f := range finalized {
		metrics.SessionFinalized(reason, f.DurationSeconds)
		r.events.Emit(ctx, events.TimerFinalized, f.UserID, finalizedPayload(f, reason))
	}
	logging.FromContext(ctx).Info("sessions finalized",
		slog.String("reason", reason),
		slog.Int("count", len(finalized)),
	)
}
