package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"rally-backend/internal/models"
)

type stubSweeper struct {
	staleAt    time.Time
	midnightAt time.Time
}

func (s *stubSweeper) SweepStale(ctx context.Context, now time.Time) (*models.StaleSweepResult, error) {
	s.staleAt = now
	return &models.StaleSweepResult{Success: true, CleanedUp: 3, Timestamp: now}, nil
}

func (s *stubSweeper) SweepMidnight(ctx context.Context, now time.Time) (*models.MidnightSweepResult, error) {
	s.midnightAt = now
	return &models.MidnightSweepResult{Success: true, FinalizedCount: 2, Timestamp: now}, nil
}

func TestCronHandler_Sweeps(t *testing.T) {
	fixed := time.Date(2026, 3, 11, 4, 0, 5, 0, time.UTC)
	sweeps := &stubSweeper{}
	h := NewCronHandler(sweeps)
	h.now = func() time.Time { return fixed }

	rr := httptest.NewRecorder()
	h.CleanupStaleTimers(rr, httptest.NewRequest(http.MethodGet, "/api/cron/cleanup-stale-timers", nil))
	var stale models.StaleSweepResult
	decodeBody(t, rr, &stale)
	if stale.CleanedUp != 3 || !sweeps.staleAt.Equal(fixed) {
		t.Fatalf("unexpected stale sweep: %+v at %v", stale, sweeps.staleAt)
	}

	rr = httptest.NewRecorder()
	h.MidnightReset(rr, httptest.NewRequest(http.MethodGet, "/api/cron/midnight-reset", nil))
	var midnight models.MidnightSweepResult
	decodeBody(t, rr, &midnight)
	if midnight.FinalizedCount != 2 || !sweeps.midnightAt.Equal(fixed) {
		t.Fatalf("unexpected midnight sweep: %+v at %v", midnight, sweeps.midnightAt)
	}
}

func TestCronHandler_UserCleanup(t *testing.T) {
	h := NewCronHandler(&stubSweeper{})

	rr := httptest.NewRecorder()
	h.UserCleanup(rr, newRequest(http.MethodPost, "/api/timer/cleanup", "", uuid.New()))

	var body struct {
		Success   bool `json:"success"`
		CleanedUp int  `json:"cleanedUp"`
	}
	decodeBody(t, rr, &body)
	if !body.Success || body.CleanedUp != 3 {
		t.Fatalf("unexpected body: %+v", body)
	}
}
