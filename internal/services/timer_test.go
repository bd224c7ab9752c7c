package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rally-backend/internal/events"
	"rally-backend/internal/mocks"
	"rally-backend/internal/models"
	"rally-backend/internal/repository"
	"rally-backend/internal/studytime"
)

type timerFixture struct {
	sessions *mocks.SessionStoreMock
	stats    *mocks.DailyStatStoreMock
	classes  *mocks.ClassStoreMock
	limiter  *mocks.RateLimiterMock
	emitter  *mocks.EmitterMock
	svc      *TimerService
	now      time.Time
}

func newTimerFixture() *timerFixture {
	f := &timerFixture{
		sessions: new(mocks.SessionStoreMock),
		stats:    new(mocks.DailyStatStoreMock),
		classes:  new(mocks.ClassStoreMock),
		limiter:  new(mocks.RateLimiterMock),
		emitter:  new(mocks.EmitterMock),
		now:      time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
	f.svc = NewTimerService(f.sessions, f.stats, f.classes, f.limiter, f.emitter)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestTimerStart_CreatesSession(t *testing.T) {
	f := newTimerFixture()
	userID := uuid.New()
	classID := uuid.New()
	raw := classID.String()

	f.limiter.On("Allow", mock.Anything, "timer.start:"+userID.String()).Return(true).Once()
	f.sessions.On("FindActive", mock.Anything, userID, models.ModeClassic).Return(nil, repository.ErrNotFound).Once()
	f.classes.On("IsMember", mock.Anything, userID, classID).Return(true, nil).Once()
	f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *models.StudySession) bool {
		return s.UserID == userID && s.Mode == models.ModeClassic && s.StartedAt.Equal(f.now) && s.ClassID != nil && *s.ClassID == classID
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.StudySession).ID = uuid.New()
	}).Return(nil).Once()
	f.emitter.On("Emit", mock.Anything, events.TimerStarted, userID, mock.Anything).Once()

	result, err := f.svc.Start(context.Background(), userID, models.StartTimerRequest{ClassID: &raw})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.ModeClassic, result.Mode)
	assert.Equal(t, f.now, result.StartedAt)
	require.NotNil(t, result.ClassID)
	assert.Equal(t, classID, *result.ClassID)

	f.sessions.AssertExpectations(t)
	f.emitter.AssertExpectations(t)
}

func TestTimerStart_DropsClassUserIsNotIn(t *testing.T) {
	f := newTimerFixture()
	userID := uuid.New()
	classID := uuid.New()
	raw := classID.String()
	bad := "not-a-uuid"

	f.limiter.On("Allow", mock.Anything, mock.Anything).Return(true)
	f.sessions.On("FindActive", mock.Anything, userID, models.ModeFocus).Return(nil, repository.ErrNotFound)
	f.classes.On("IsMember", mock.Anything, userID, classID).Return(false, nil).Once()
	f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *models.StudySession) bool {
		return s.ClassID == nil
	})).Return(nil).Twice()
	f.emitter.On("Emit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	for _, classRef := range []*string{&raw, &bad} {
		result, err := f.svc.Start(context.Background(), userID, models.StartTimerRequest{Mode: models.ModeFocus, ClassID: classRef})
		require.NoError(t, err)
		assert.Nil(t, result.ClassID)
	}
	f.sessions.AssertExpectations(t)
	f.classes.AssertExpectations(t)
}

func TestTimerStart_AlreadyRunning(t *testing.T) {
	f := newTimerFixture()
	userID := uuid.New()
	existing := &models.StudySession{ID: uuid.New(), UserID: userID, Mode: models.ModeClassic, IsActive: true}

	f.limiter.On("Allow", mock.Anything, mock.Anything).Return(true)
	f.sessions.On("FindActive", mock.Anything, userID, models.ModeClassic).Return(existing, nil).Once()

	_, err := f.svc.Start(context.Background(), userID, models.StartTimerRequest{})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Timer is already running", conflict.Message)
	assert.Equal(t, existing.ID.String(), conflict.Details["sessionId"])
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTimerStart_LostRaceIsConflict(t *testing.T) {
	f := newTimerFixture()
	userID := uuid.New()
	winner := &models.StudySession{ID: uuid.New(), UserID: userID, Mode: models.ModeClassic, IsActive: true}

	f.limiter.On("Allow", mock.Anything, mock.Anything).Return(true)
	f.sessions.On("FindActive", mock.Anything, userID, models.ModeClassic).Return(nil, repository.ErrNotFound).Once()
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(repository.ErrConflict).Once()
	f.sessions.On("FindActive", mock.Anything, userID, models.ModeClassic).Return(winner, nil).Once()

	_, err := f.svc.Start(context.Background(), userID, models.StartTimerRequest{})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, winner.ID.String(), conflict.Details["sessionId"])
}

func TestTimerStart_InvalidModeAndRateLimit(t *testing.T) {
	f := newTimerFixture()
	userID := uuid.New()

	_, err := f.svc.Start(context.Background(), userID, models.StartTimerRequest{Mode: "TURBO"})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "mode")

	f.limiter.On("Allow", mock.Anything, "timer.start:"+userID.String()).Return(false).Once()
	_, err = f.svc.Start(context.Background(), userID, models.StartTimerRequest{})
	var limited *RateLimitError
	require.ErrorAs(t, err, &limited)
	f.sessions.AssertNotCalled(t, "FindActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestTimerPause_FinalizesAndReportsTotals(t *testing.T) {
	f := newTimerFixture()
	userID := uuid.New()
	active := &models.StudySession{ID: uuid.New(), UserID: userID, Mode: models.ModeClassic, StartedAt: f.now.Add(-1500 * time.Second), IsActive: true}
	day := studytime.Day(f.now, 0)

	f.limiter.On("Allow", mock.Anything, "timer.pause:"+userID.String()).Return(true).Once()
	f.sessions.On("FindActive", mock.Anything, userID, models.ModeClassic).Return(active, nil).Once()
	f.sessions.On("Finalize", mock.Anything, []models.StudySession{*active}, f.now, day).Return([]models.FinalizedSession{{
		SessionID: active.ID, UserID: userID, Mode: models.ModeClassic, StartedAt: active.StartedAt, EndedAt: f.now, DurationSeconds: 1500, Day: day,
	}}, nil).Once()
	f.stats.On("TotalForDay", mock.Anything, userID, day).Return(3300, nil).Once()
	f.emitter.On("Emit", mock.Anything, events.TimerFinalized, userID, mock.Anything).Once()

	result, err := f.svc.Pause(context.Background(), userID, "")
	require.NoError(t, err)
	assert.Equal(t, 3300, result.TotalDuration)
	assert.Equal(t, 1500, result.SessionDuration)
	f.sessions.AssertExpectations(t)
	f.stats.AssertExpectations(t)
}

func TestTimerPause_NothingToPause(t *testing.T) {
	f := newTimerFixture()
	userID := uuid.New()
	f.limiter.On("Allow", mock.Anything, mock.Anything).Return(true)

	f.sessions.On("FindActive", mock.Anything, userID, models.ModeClassic).Return(nil, repository.ErrNotFound).Once()
	_, err := f.svc.Pause(context.Background(), userID, "")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "No active timer to pause", conflict.Message)

	// Another writer finalized the session between read and write.
	active := &models.StudySession{ID: uuid.New(), UserID: userID, StartedAt: f.now.Add(-time.Minute), IsActive: true}
	f.sessions.On("FindActive", mock.Anything, userID, models.ModeClassic).Return(active, nil).Once()
	f.sessions.On("Finalize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]models.FinalizedSession{}, nil).Once()
	_, err = f.svc.Pause(context.Background(), userID, "")
	require.ErrorAs(t, err, &conflict)
	f.stats.AssertNotCalled(t, "TotalForDay", mock.Anything, mock.Anything, mock.Anything)
}

func TestTimerPause_DefaultsToClassicMode(t *testing.T) {
	f := newTimerFixture()
	userID := uuid.New()
	f.limiter.On("Allow", mock.Anything, mock.Anything).Return(true)

	// Only a FOCUS session is running; a bare pause targets CLASSIC.
	f.sessions.On("FindActive", mock.Anything, userID, models.ModeClassic).Return(nil, repository.ErrNotFound).Once()

	_, err := f.svc.Pause(context.Background(), userID, "")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "No active timer to pause", conflict.Message)
	f.sessions.AssertNotCalled(t, "FindActive", mock.Anything, userID, "")
	f.sessions.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.sessions.AssertExpectations(t)
}

func TestTimerHeartbeat(t *testing.T) {
	f := newTimerFixture()
	userID := uuid.New()
	sessionID := uuid.New()

	f.sessions.On("Heartbeat", mock.Anything, userID, f.now).Return(sessionID, nil).Once()
	result, err := f.svc.Heartbeat(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, sessionID, result.SessionID)
	assert.Equal(t, f.now, result.Timestamp)

	f.sessions.On("Heartbeat", mock.Anything, userID, f.now).Return(uuid.Nil, repository.ErrNotFound).Once()
	_, err = f.svc.Heartbeat(context.Background(), userID)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestTimerStatus(t *testing.T) {
	f := newTimerFixture()
	userID := uuid.New()
	day := studytime.Day(f.now, 0)
	active := &models.StudySession{ID: uuid.New(), UserID: userID, Mode: models.ModeFocus, StartedAt: f.now.Add(-95 * time.Second), IsActive: true}

	f.stats.On("TotalForDay", mock.Anything, userID, day).Return(600, nil)
	f.sessions.On("FindActive", mock.Anything, userID, models.ModeFocus).Return(active, nil).Once()

	status, err := f.svc.Status(context.Background(), userID, models.ModeFocus)
	require.NoError(t, err)
	assert.True(t, status.IsActive)
	assert.Equal(t, 600, status.TotalSecondsToday)
	require.NotNil(t, status.CurrentDuration)
	assert.Equal(t, 95, *status.CurrentDuration)
	assert.Equal(t, models.ModeFocus, status.Mode)

	last := 1200
	f.sessions.On("FindActive", mock.Anything, userID, "").Return(nil, repository.ErrNotFound).Once()
	f.sessions.On("LastFinished", mock.Anything, userID, "").Return(&models.StudySession{DurationSeconds: &last}, nil).Once()

	status, err = f.svc.Status(context.Background(), userID, "")
	require.NoError(t, err)
	assert.False(t, status.IsActive)
	assert.Nil(t, status.CurrentDuration)
	require.NotNil(t, status.LastSessionDuration)
	assert.Equal(t, 1200, *status.LastSessionDuration)
}

func TestTimerStatus_StoreFailure(t *testing.T) {
	f := newTimerFixture()
	userID := uuid.New()
	f.stats.On("TotalForDay", mock.Anything, userID, mock.Anything).Return(0, errors.New("db down")).Once()

	_, err := f.svc.Status(context.Background(), userID, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
