package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rally-backend/internal/models"
)

type LocationService struct {
	locations LocationStore
	users     UserStore
}

func NewLocationService(locations LocationStore, users UserStore) *LocationService {
	return &LocationService{locations: locations, users: users}
}

func (s *LocationService) List(ctx context.Context) ([]models.Location, error) {
	locations, err := s.locations.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	if locations == nil {
		locations = []models.Location{}
	}
	return locations, nil
}

// Current returns the user's location, or nil when none is set.
func (s *LocationService) Current(ctx context.Context, userID uuid.UUID) (*models.UserLocation, error) {
	loc, err := s.locations.GetUserLocation(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user location: %w", err)
	}
	return loc, nil
}

// Set records where the user is studying. The row inherits the user's
// location visibility.
func (s *LocationService) Set(ctx context.Context, userID uuid.UUID, req models.SetLocationRequest) (*models.UserLocation, error) {
	locationID, err := uuid.Parse(strings.TrimSpace(req.LocationID))
	if err != nil {
		return nil, invalid("locationId", "A valid location id is required")
	}

	ref, err := s.locations.GetActiveRef(ctx, locationID)
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Message: "Location not found"}
		}
		return nil, fmt.Errorf("load location: %w", err)
	}

	updatedAt, err := s.locations.SetUserLocation(ctx, userID, locationID)
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Message: "Location not found"}
		}
		return nil, fmt.Errorf("set location: %w", err)
	}

	isPublic := true
	if user, err := s.users.GetByID(ctx, userID); err == nil {
		isPublic = user.IsLocationPublic
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("load user: %w", err)
	}

	return &models.UserLocation{
		UserID:    userID,
		Location:  *ref,
		IsPublic:  isPublic,
		UpdatedAt: updatedAt,
	}, nil
}
