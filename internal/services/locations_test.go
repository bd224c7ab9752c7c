package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rally-backend/internal/mocks"
	"rally-backend/internal/models"
	"rally-backend/internal/repository"
)

func TestLocationSet(t *testing.T) {
	userID, locationID := uuid.New(), uuid.New()
	updated := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	t.Run("stores and inherits visibility", func(t *testing.T) {
		locations := new(mocks.LocationStoreMock)
		users := new(mocks.UserStoreMock)
		svc := NewLocationService(locations, users)

		ref := &models.LocationRef{ID: locationID, Name: "Bobst", Slug: "bobst"}
		locations.On("GetActiveRef", mock.Anything, locationID).Return(ref, nil).Once()
		locations.On("SetUserLocation", mock.Anything, userID, locationID).Return(updated, nil).Once()
		users.On("GetByID", mock.Anything, userID).Return(&models.User{ID: userID, IsLocationPublic: false}, nil).Once()

		loc, err := svc.Set(context.Background(), userID, models.SetLocationRequest{LocationID: locationID.String()})
		require.NoError(t, err)
		assert.Equal(t, "bobst", loc.Location.Slug)
		assert.False(t, loc.IsPublic)
		assert.Equal(t, updated, loc.UpdatedAt)
	})

	t.Run("inactive location", func(t *testing.T) {
		locations := new(mocks.LocationStoreMock)
		svc := NewLocationService(locations, new(mocks.UserStoreMock))
		locations.On("GetActiveRef", mock.Anything, locationID).Return(nil, repository.ErrNotFound).Once()

		_, err := svc.Set(context.Background(), userID, models.SetLocationRequest{LocationID: locationID.String()})
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		locations.AssertNotCalled(t, "SetUserLocation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := NewLocationService(new(mocks.LocationStoreMock), new(mocks.UserStoreMock))
		_, err := svc.Set(context.Background(), userID, models.SetLocationRequest{LocationID: ""})
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
	})
}

func TestLocationCurrent_NoneSet(t *testing.T) {
	locations := new(mocks.LocationStoreMock)
	svc := NewLocationService(locations, new(mocks.UserStoreMock))
	userID := uuid.New()
	locations.On("GetUserLocation", mock.Anything, userID).Return(nil, repository.ErrNotFound).Once()

	loc, err := svc.Current(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestLocationList_NeverNil(t *testing.T) {
	locations := new(mocks.LocationStoreMock)
	svc := NewLocationService(locations, new(mocks.UserStoreMock))
	locations.On("ListActive", mock.Anything).Return(nil, nil).Once()

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
