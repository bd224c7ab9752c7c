package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"rally-backend/internal/logging"
	"rally-backend/internal/models"
	"rally-backend/internal/services"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func requestID(r *http.Request) string {
	if id := logging.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: requestID(r),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	resp := errorResp(code, message, r)
	resp.Error.Fields = fields
	return resp
}

// decodeJSON reads a JSON body into v. An empty body is accepted when
// optional is set, leaving v at its zero value.
func decodeJSON(r *http.Request, v interface{}, optional bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func badBody(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
}

// Business-rule conflicts are reported as 400 to match what the clients
// already handle.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation   *services.ValidationError
		conflict     *services.ConflictError
		notFound     *services.NotFoundError
		unauthorized *services.UnauthorizedError
		forbidden    *services.ForbiddenError
		rateLimited  *services.RateLimitError
		unavailable  *services.UnavailableError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validation.Fields, r))
	case errors.As(err, &conflict):
		resp := errorResp("CONFLICT", conflict.Message, r)
		resp.Error.Details = conflict.Details
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFound.Message, r))
	case errors.As(err, &unauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthorized.Message, r))
	case errors.As(err, &forbidden):
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", forbidden.Message, r))
	case errors.As(err, &rateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", rateLimited.Message, r))
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResp("UNAVAILABLE", unavailable.Message, r))
	default:
		logging.FromContext(r.Context()).Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
