package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rally-backend/internal/middleware"
	"rally-backend/internal/models"
	"rally-backend/internal/services"
)

type userService interface {
	Provision(ctx context.Context, userID uuid.UUID, email string, req models.CreateProfileRequest) (*models.User, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Update(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error)
	ChangeUsername(ctx context.Context, userID uuid.UUID, req models.ChangeUsernameRequest) (*models.User, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, filename, contentType string, size int64, r io.Reader) (string, error)
	Search(ctx context.Context, userID uuid.UUID, q, cursor string) (*models.UserSearchResult, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	Profile(ctx context.Context, viewer, id uuid.UUID) (*models.PublicProfile, error)
}

type UserHandler struct {
	users userService
}

func NewUserHandler(users userService) *UserHandler {
	return &UserHandler{users: users}
}

// Create provisions the profile for the identity in the bearer token. The
// email comes from the token, never from the body.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProfileRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	ctx := r.Context()
	user, err := h.users.Provision(ctx, middleware.GetUserID(ctx), middleware.GetEmail(ctx), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	user, err := h.users.Update(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *UserHandler) ChangeUsername(w http.ResponseWriter, r *http.Request) {
	var req models.ChangeUsernameRequest
	if err := decodeJSON(r, &req, false); err != nil {
		badBody(w, r)
		return
	}

	user, err := h.users.ChangeUsername(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	// Multipart framing needs a little room on top of the image itself.
	limit := int64(services.MaxAvatarBytes + 64*1024)
	if r.ContentLength > limit {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "Avatar must be at most 5 MB", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"avatar": "No file provided"}, r))
		return
	}
	defer file.Close()

	// Sniff the real type rather than trusting the part header.
	buf := make([]byte, 512)
	n, _ := file.Read(buf)
	contentType := http.DetectContentType(buf[:n])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		handleServiceError(w, r, err)
		return
	}

	avatarURL, err := h.users.UploadAvatar(r.Context(), middleware.GetUserID(r.Context()),
		header.Filename, contentType, header.Size, file)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatarUrl": avatarURL})
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.users.Search(r.Context(), middleware.GetUserID(r.Context()), q.Get("q"), q.Get("cursor"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Stats(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_ID", "Invalid user ID", r))
		return
	}

	profile, err := h.users.Profile(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}
