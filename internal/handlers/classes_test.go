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

type stubClassService struct {
	filter   models.ClassFilter
	leaveErr error
}

func (s *stubClassService) List(ctx context.Context, viewer uuid.UUID, f models.ClassFilter) (*models.ClassList, error) {
	s.filter = f
	return &models.ClassList{Classes: []models.ClassListItem{}}, nil
}

func (s *stubClassService) Join(ctx context.Context, userID uuid.UUID, req models.ClassMembershipRequest) (*models.JoinClassResult, error) {
	return &models.JoinClassResult{Success: true, ClassID: uuid.MustParse(req.ClassID), ChatRoomID: uuid.New()}, nil
}

func (s *stubClassService) Leave(ctx context.Context, userID uuid.UUID, req models.ClassMembershipRequest) error {
	return s.leaveErr
}

func (s *stubClassService) ForUser(ctx context.Context, userID uuid.UUID) ([]models.Class, error) {
	return []models.Class{}, nil
}

func TestClassHandler_List_ParsesFilter(t *testing.T) {
	svc := &stubClassService{}
	h := NewClassHandler(svc)

	rr := httptest.NewRecorder()
	h.List(rr, newRequest(http.MethodGet, "/api/classes?search=calc&semester=Fall+2026&joined=true&page=2&limit=abc", "", uuid.New()))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	want := models.ClassFilter{Search: "calc", Semester: "Fall 2026", JoinedOnly: true, Page: 2, Limit: 0}
	if svc.filter != want {
		t.Fatalf("expected filter %+v, got %+v", want, svc.filter)
	}
}

func TestClassHandler_Join(t *testing.T) {
	h := NewClassHandler(&stubClassService{})
	classID := uuid.New()

	rr := httptest.NewRecorder()
	h.Join(rr, newRequest(http.MethodPost, "/api/classes/join", `{"classId":"`+classID.String()+`"}`, uuid.New()))

	var result models.JoinClassResult
	decodeBody(t, rr, &result)
	if !result.Success || result.ClassID != classID {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestClassHandler_Leave_NotMember(t *testing.T) {
	h := NewClassHandler(&stubClassService{leaveErr: &services.ConflictError{Message: "Not a member of this class"}})

	rr := httptest.NewRecorder()
	h.Leave(rr, newRequest(http.MethodPost, "/api/classes/leave", `{"classId":"`+uuid.New().String()+`"}`, uuid.New()))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}
