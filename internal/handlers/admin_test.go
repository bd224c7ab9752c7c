package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rally-backend/internal/models"
)

type stubAdminService struct {
	classInputs []models.BulkClassInput
}

func (s *stubAdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	return &models.AdminStats{TotalUsers: 7, TopStudiers: []models.TopStudier{}}, nil
}

func (s *stubAdminService) CreateClasses(ctx context.Context, inputs []models.BulkClassInput) *models.BulkResult {
	s.classInputs = inputs
	result := &models.BulkResult{Success: true}
	for i := range inputs {
		result.Record(models.BulkItemResult{Index: i, Status: models.BulkCreated})
	}
	return result
}

func (s *stubAdminService) CreateLocations(ctx context.Context, inputs []models.BulkLocationInput) *models.BulkResult {
	return &models.BulkResult{Success: true}
}

func TestAdminHandler_CreateClasses_BareArray(t *testing.T) {
	svc := &stubAdminService{}
	h := NewAdminHandler(svc)

	body := `[{"name":"Data Structures","code":"CS-UY 1134","semester":"Fall 2026"},{"name":"Calc","code":"MA-UY 1024","semester":"Fall 2026"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/classes", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.CreateClasses(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if len(svc.classInputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(svc.classInputs))
	}

	var result models.BulkResult
	decodeBody(t, rr, &result)
	if result.Summary.Created != 2 {
		t.Fatalf("expected 2 created, got %+v", result.Summary)
	}
}

func TestAdminHandler_CreateClasses_RejectsObject(t *testing.T) {
	h := NewAdminHandler(&stubAdminService{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/classes", strings.NewReader(`{"name":"x"}`))
	rr := httptest.NewRecorder()
	h.CreateClasses(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestAdminHandler_Stats(t *testing.T) {
	h := NewAdminHandler(&stubAdminService{})

	rr := httptest.NewRecorder()
	h.Stats(rr, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))

	var stats models.AdminStats
	decodeBody(t, rr, &stats)
	if stats.TotalUsers != 7 {
		t.Fatalf("expected 7 users, got %d", stats.TotalUsers)
	}
}
