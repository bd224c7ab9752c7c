package handlers

import (
	"context"
	"net/http"
	"time"

	"rally-backend/internal/models"
)

type sweeper interface {
	SweepStale(ctx context.Context, now time.Time) (*models.StaleSweepResult, error)
	SweepMidnight(ctx context.Context, now time.Time) (*models.MidnightSweepResult, error)
}

// CronHandler exposes the reconciliation sweeps to an external scheduler.
type CronHandler struct {
	sweeps sweeper
	now    func() time.Time
}

func NewCronHandler(sweeps sweeper) *CronHandler {
	return &CronHandler{sweeps: sweeps, now: time.Now}
}

func (h *CronHandler) CleanupStaleTimers(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeps.SweepStale(r.Context(), h.now())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CronHandler) MidnightReset(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeps.SweepMidnight(r.Context(), h.now())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// UserCleanup lets a signed-in client trigger the stale sweep, as the app
// does on launch.
func (h *CronHandler) UserCleanup(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeps.SweepStale(r.Context(), h.now())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"cleanedUp": result.CleanedUp,
	})
}
