package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"rally-backend/internal/logging"
	"rally-backend/internal/models"
	"rally-backend/internal/studytime"
	"rally-backend/internal/worker"
)

const topStudierCount = 5

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

type AdminService struct {
	admin     AdminStore
	classes   ClassStore
	locations LocationStore
	pool      *worker.Pool
	now       func() time.Time
}

func NewAdminService(admin AdminStore, classes ClassStore, locations LocationStore, pool *worker.Pool) *AdminService {
	if pool == nil {
		pool = worker.NewPool(4, nil)
	}
	return &AdminService{admin: admin, classes: classes, locations: locations, pool: pool, now: time.Now}
}

func (s *AdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	now := s.now()
	stats, err := s.admin.Stats(ctx, studytime.DayStart(now, 0), studytime.Day(now, 0), topStudierCount)
	if err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	if stats.TopStudiers == nil {
		stats.TopStudiers = []models.TopStudier{}
	}
	return stats, nil
}

func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

func validateClassInput(in models.BulkClassInput) string {
	switch {
	case !lengthBetween(in.Name, 1, 200):
		return "name must be 1-200 characters"
	case !lengthBetween(in.Code, 1, 50):
		return "code must be 1-50 characters"
	case in.Section != nil && utf8.RuneCountInString(*in.Section) > 50:
		return "section must be at most 50 characters"
	case !lengthBetween(in.Semester, 1, 50):
		return "semester must be 1-50 characters"
	}
	return ""
}

func validateLocationInput(in models.BulkLocationInput) string {
	switch {
	case !lengthBetween(in.Name, 1, 100):
		return "name must be 1-100 characters"
	case !lengthBetween(in.Slug, 1, 50) || !slugPattern.MatchString(in.Slug):
		return "slug must be 1-50 characters of a-z, 0-9 and -"
	case in.Description != nil && utf8.RuneCountInString(*in.Description) > 500:
		return "description must be at most 500 characters"
	}
	return ""
}

// bulkCreate validates and inserts every item concurrently. Items that
// already exist are skipped; results keep input order.
func (s *AdminService) bulkCreate(ctx context.Context, kind string, n int, validate func(i int) string, create func(ctx context.Context, i int) (uuid.UUID, error)) *models.BulkResult {
	items := make([]models.BulkItemResult, n)
	s.pool.Run(ctx, n, func(ctx context.Context, i int) {
		item := models.BulkItemResult{Index: i}
		if msg := validate(i); msg != "" {
			item.Status = models.BulkError
			item.Message = msg
			items[i] = item
			return
		}

		id, err := create(ctx, i)
		switch {
		case err == nil:
			item.Status = models.BulkCreated
			item.ID = &id
		case isConflict(err):
			item.Status = models.BulkSkipped
			item.Message = "Already exists"
		default:
			logging.FromContext(ctx).Error("bulk create failed", "kind", kind, "index", i, "error", err)
			item.Status = models.BulkError
			item.Message = "Failed to create"
		}
		items[i] = item
	})

	result := &models.BulkResult{Success: true, Results: make([]models.BulkItemResult, 0, n)}
	for i, item := range items {
		if item.Status == "" {
			item = models.BulkItemResult{Index: i, Status: models.BulkError, Message: "Not processed"}
		}
		result.Record(item)
	}
	logging.FromContext(ctx).Info("bulk import finished", "kind", kind,
		"created", result.Summary.Created, "skipped", result.Summary.Skipped, "errors", result.Summary.Errors)
	return result
}

func (s *AdminService) CreateClasses(ctx context.Context, inputs []models.BulkClassInput) *models.BulkResult {
	for i := range inputs {
		inputs[i].Name = strings.TrimSpace(inputs[i].Name)
		inputs[i].Code = strings.TrimSpace(inputs[i].Code)
		inputs[i].Semester = strings.TrimSpace(inputs[i].Semester)
	}
	return s.bulkCreate(ctx, "class", len(inputs),
		func(i int) string { return validateClassInput(inputs[i]) },
		func(ctx context.Context, i int) (uuid.UUID, error) { return s.classes.Create(ctx, inputs[i]) },
	)
}

func (s *AdminService) CreateLocations(ctx context.Context, inputs []models.BulkLocationInput) *models.BulkResult {
	for i := range inputs {
		inputs[i].Name = strings.TrimSpace(inputs[i].Name)
		inputs[i].Slug = strings.TrimSpace(inputs[i].Slug)
	}
	return s.bulkCreate(ctx, "location", len(inputs),
		func(i int) string { return validateLocationInput(inputs[i]) },
		func(ctx context.Context, i int) (uuid.UUID, error) { return s.locations.Create(ctx, inputs[i]) },
	)
}
