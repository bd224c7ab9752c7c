package models

import "github.com/google/uuid"

type TopStudier struct {
	User         UserSummary `json:"user"`
	TotalSeconds int         `json:"totalSeconds"`
}

type AdminStats struct {
	TotalUsers           int          `json:"totalUsers"`
	ActiveUsersToday     int          `json:"activeUsersToday"`
	TotalStudySessions   int          `json:"totalStudySessions"`
	ActiveTimers         int          `json:"activeTimers"`
	TotalClasses         int          `json:"totalClasses"`
	TotalLocations       int          `json:"totalLocations"`
	TotalMessages        int          `json:"totalMessages"`
	TodaysTotalStudyTime int          `json:"todaysTotalStudyTime"`
	TopStudiers          []TopStudier `json:"topStudiers"`
}

type BulkClassInput struct {
	Name     string  `json:"name"`
	Code     string  `json:"code"`
	Section  *string `json:"section"`
	Semester string  `json:"semester"`
}

type BulkLocationInput struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
}

const (
	BulkCreated = "created"
	BulkSkipped = "skipped"
	BulkError   = "error"
)

type BulkItemResult struct {
	Index   int        `json:"index"`
	Status  string     `json:"status"`
	ID      *uuid.UUID `json:"id,omitempty"`
	Message string     `json:"message,omitempty"`
}

type BulkSummary struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

type BulkResult struct {
	Success bool             `json:"success"`
	Summary BulkSummary      `json:"summary"`
	Results []BulkItemResult `json:"results"`
}

// Record tallies one item outcome.
func (b *BulkResult) Record(item BulkItemResult) {
	switch item.Status {
	case BulkCreated:
		b.Summary.Created++
	case BulkSkipped:
		b.Summary.Skipped++
	default:
		b.Summary.Errors++
	}
	b.Results = append(b.Results, item)
}
