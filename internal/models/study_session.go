package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ModeClassic = "CLASSIC"
	ModeFocus   = "FOCUS"
)

func ValidMode(mode string) bool {
	return mode == ModeClassic || mode == ModeFocus
}

type StudySession struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"userId"`
	ClassID         *uuid.UUID `json:"classId"`
	Mode            string     `json:"mode"`
	StartedAt       time.Time  `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt"`
	DurationSeconds *int       `json:"durationSeconds"`
	IsActive        bool       `json:"isActive"`
	LastHeartbeatAt *time.Time `json:"lastHeartbeatAt"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func (s *StudySession) Snapshot() *SessionSnapshot {
	if s == nil {
		return nil
	}
	return &SessionSnapshot{StartedAt: s.StartedAt, EndedAt: s.EndedAt, IsActive: s.IsActive}
}

// SessionSnapshot is the latest-session stub shipped with leaderboard and
// friend rows so clients can extrapolate locally.
type SessionSnapshot struct {
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt"`
	IsActive  bool       `json:"isActive"`
}

// DailyStat is one user's banked seconds for one New York calendar day.
type DailyStat struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"userId"`
	Date         time.Time `json:"date"`
	TotalSeconds int       `json:"totalSeconds"`
	IsPublic     bool      `json:"isPublic"`
}

// FinalizedSession reports one session closed by pause or a sweep.
type FinalizedSession struct {
	SessionID       uuid.UUID `json:"sessionId"`
	UserID          uuid.UUID `json:"userId"`
	Mode            string    `json:"mode"`
	StartedAt       time.Time `json:"startedAt"`
	EndedAt         time.Time `json:"endedAt"`
	DurationSeconds int       `json:"durationSeconds"`
	Day             time.Time `json:"day"`
}

type StartTimerRequest struct {
	Mode    string  `json:"mode"`
	ClassID *string `json:"classId"`
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

type TimerStartResult struct {
	Success   bool       `json:"success"`
	SessionID uuid.UUID  `json:"sessionId"`
	StartedAt time.Time  `json:"startedAt"`
	ClassID   *uuid.UUID `json:"classId"`
	Mode      string     `json:"mode"`
}

type TimerPauseResult struct {
	Success         bool `json:"success"`
	TotalDuration   int  `json:"totalDuration"`
	SessionDuration int  `json:"sessionDuration"`
}

type TimerHeartbeatResult struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	SessionID uuid.UUID `json:"sessionId"`
}

type TimerStatus struct {
	IsActive            bool       `json:"isActive"`
	SessionID           *uuid.UUID `json:"sessionId,omitempty"`
	Mode                string     `json:"mode,omitempty"`
	ClassID             *uuid.UUID `json:"classId,omitempty"`
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	CurrentDuration     *int       `json:"currentDuration,omitempty"`
	TotalSecondsToday   int        `json:"totalSecondsToday"`
	LastSessionDuration *int       `json:"lastSessionDuration,omitempty"`
}

type StaleSweepResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	CleanedUp int       `json:"cleanedUp"`
	Timestamp time.Time `json:"timestamp"`
}

type MidnightSweepResult struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	FinalizedCount int       `json:"finalizedCount"`
	Timestamp      time.Time `json:"timestamp"`
}
