package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"rally-backend/internal/middleware"
	"rally-backend/internal/models"
	"rally-backend/internal/services"
)

type stubUserService struct {
	provisionEmail string
	updateCalled   bool

	avatarType  string
	avatarBytes []byte
	avatarErr   error

	profileErr error
}

func (s *stubUserService) Provision(ctx context.Context, userID uuid.UUID, email string, req models.CreateProfileRequest) (*models.User, error) {
	s.provisionEmail = email
	return &models.User{ID: userID, Email: email, Username: req.Username}, nil
}

func (s *stubUserService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return &models.User{ID: userID, Username: "alice"}, nil
}

func (s *stubUserService) Update(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error) {
	s.updateCalled = true
	return &models.User{ID: userID}, nil
}

func (s *stubUserService) ChangeUsername(ctx context.Context, userID uuid.UUID, req models.ChangeUsernameRequest) (*models.User, error) {
	return nil, &services.ConflictError{Message: "Username can only be changed twice"}
}

func (s *stubUserService) UploadAvatar(ctx context.Context, userID uuid.UUID, filename, contentType string, size int64, r io.Reader) (string, error) {
	if s.avatarErr != nil {
		return "", s.avatarErr
	}
	s.avatarType = contentType
	s.avatarBytes, _ = io.ReadAll(r)
	return "https://cdn.example.com/avatars/" + filename, nil
}

func (s *stubUserService) Search(ctx context.Context, userID uuid.UUID, q, cursor string) (*models.UserSearchResult, error) {
	return &models.UserSearchResult{Users: []models.UserSummary{}}, nil
}

func (s *stubUserService) Stats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	return &models.UserStats{TotalSeconds: 3660, TotalHours: 1, TotalMinutes: 1}, nil
}

func (s *stubUserService) Profile(ctx context.Context, viewer, id uuid.UUID) (*models.PublicProfile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return &models.PublicProfile{UserSummary: models.UserSummary{ID: id}}, nil
}

func avatarRequest(t *testing.T, field string, content []byte, userID uuid.UUID) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "me.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/users/me/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestUserHandler_Create_UsesTokenEmail(t *testing.T) {
	svc := &stubUserService{}
	h := NewUserHandler(svc)

	req := newRequest(http.MethodPost, "/api/users", `{"username":"alice","email":"spoof@evil.com"}`, uuid.New())
	req = req.WithContext(context.WithValue(req.Context(), middleware.EmailKey, "alice@nyu.edu"))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if svc.provisionEmail != "alice@nyu.edu" {
		t.Fatalf("expected token email, got %q", svc.provisionEmail)
	}
}

func TestUserHandler_UpdateMe_InvalidRequestBody(t *testing.T) {
	svc := &stubUserService{}
	h := NewUserHandler(svc)

	rr := httptest.NewRecorder()
	h.UpdateMe(rr, newRequest(http.MethodPut, "/api/users/me", `{"bio":`, uuid.New()))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if svc.updateCalled {
		t.Fatalf("service should not be called for a malformed body")
	}
}

func TestUserHandler_ChangeUsername_Conflict(t *testing.T) {
	h := NewUserHandler(&stubUserService{})

	rr := httptest.NewRecorder()
	h.ChangeUsername(rr, newRequest(http.MethodPut, "/api/users/me/username", `{"username":"bob"}`, uuid.New()))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if apiErr := decodeError(t, rr); apiErr.Code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %s", apiErr.Code)
	}
}

func TestUserHandler_UploadAvatar_SniffsType(t *testing.T) {
	svc := &stubUserService{}
	h := NewUserHandler(svc)
	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)

	rr := httptest.NewRecorder()
	h.UploadAvatar(rr, avatarRequest(t, "avatar", content, uuid.New()))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if svc.avatarType != "image/png" {
		t.Fatalf("expected image/png, got %q", svc.avatarType)
	}
	if !bytes.Equal(svc.avatarBytes, content) {
		t.Fatalf("service should receive the whole file from the start")
	}
}

func TestUserHandler_UploadAvatar_MissingField(t *testing.T) {
	h := NewUserHandler(&stubUserService{})

	rr := httptest.NewRecorder()
	h.UploadAvatar(rr, avatarRequest(t, "file", pngHeader, uuid.New()))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if apiErr := decodeError(t, rr); apiErr.Fields["avatar"] == "" {
		t.Fatalf("expected avatar field error, got %+v", apiErr)
	}
}

func TestUserHandler_UploadAvatar_StorageNotConfigured(t *testing.T) {
	h := NewUserHandler(&stubUserService{avatarErr: &services.UnavailableError{Message: "Avatar uploads are not configured"}})

	rr := httptest.NewRecorder()
	h.UploadAvatar(rr, avatarRequest(t, "avatar", pngHeader, uuid.New()))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestUserHandler_Profile(t *testing.T) {
	h := NewUserHandler(&stubUserService{profileErr: &services.NotFoundError{Message: "User not found"}})

	rr := httptest.NewRecorder()
	h.Profile(rr, withURLParam(newRequest(http.MethodGet, "/api/users/x", "", uuid.New()), "id", "x"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for a malformed id, got %d", http.StatusBadRequest, rr.Code)
	}

	id := uuid.New().String()
	rr = httptest.NewRecorder()
	h.Profile(rr, withURLParam(newRequest(http.MethodGet, "/api/users/"+id, "", uuid.New()), "id", id))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestUserHandler_Stats(t *testing.T) {
	h := NewUserHandler(&stubUserService{})

	rr := httptest.NewRecorder()
	h.Stats(rr, newRequest(http.MethodGet, "/api/users/stats", "", uuid.New()))

	var stats models.UserStats
	decodeBody(t, rr, &stats)
	if stats.TotalSeconds != 3660 || stats.TotalHours != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
