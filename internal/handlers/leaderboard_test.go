package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"rally-backend/internal/models"
	"rally-backend/internal/services"
)

type stubLeaderboardService struct {
	cursor string
}

func (s *stubLeaderboardService) School(ctx context.Context, viewer uuid.UUID, cursor string) (*models.SchoolLeaderboard, error) {
	s.cursor = cursor
	return &models.SchoolLeaderboard{Leaderboard: []models.LeaderboardEntry{}}, nil
}

func (s *stubLeaderboardService) Location(ctx context.Context, viewer, locationID uuid.UUID) (*models.LocationLeaderboard, error) {
	return nil, &services.NotFoundError{Message: "Location not found"}
}

func TestLeaderboardHandler_School_PassesCursor(t *testing.T) {
	svc := &stubLeaderboardService{}
	h := NewLeaderboardHandler(svc)

	rr := httptest.NewRecorder()
	h.School(rr, newRequest(http.MethodGet, "/api/leaderboards/school?cursor=MTAw", "", uuid.New()))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if svc.cursor != "MTAw" {
		t.Fatalf("expected cursor MTAw, got %q", svc.cursor)
	}
}

func TestLeaderboardHandler_Location(t *testing.T) {
	h := NewLeaderboardHandler(&stubLeaderboardService{})

	rr := httptest.NewRecorder()
	h.Location(rr, withURLParam(newRequest(http.MethodGet, "/api/leaderboards/location/bad", "", uuid.New()), "id", "bad"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}

	id := uuid.New().String()
	rr = httptest.NewRecorder()
	h.Location(rr, withURLParam(newRequest(http.MethodGet, "/api/leaderboards/location/"+id, "", uuid.New()), "id", id))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}
