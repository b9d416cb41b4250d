package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vespa-learn/activity-api/internal/models"
)

// achievementCatalog is the static catalog, in evaluation order. Criteria
// within an entry combine with AND semantics.
var achievementCatalog = []models.Achievement{
	{
		ID:          "first_activity",
		Name:        "First Steps",
		Description: "Complete your first activity",
		Type:        "milestone",
		Icon:        "rocket",
		Points:      10,
		Criteria:    []models.Criterion{{Stat: models.StatActivitiesCompleted, Min: 1}},
	},
	{
		ID:          "five_activities",
		Name:        "Momentum",
		Description: "Complete five activities",
		Type:        "milestone",
		Icon:        "flame",
		Points:      25,
		Criteria:    []models.Criterion{{Stat: models.StatActivitiesCompleted, Min: 5}},
	},
}

type awardStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.AchievementAward, error)
	Create(ctx context.Context, award *models.AchievementAward) error
}

// AchievementService evaluates the static catalog against student
// statistics and persists new unlocks. Unlocks are monotonic: an
// achievement recorded for a student is never re-awarded.
type AchievementService struct {
	awards  awardStore
	enabled bool
	logger  *zap.Logger
	now     func() time.Time
}

// NewAchievementService constructs an achievement service.
func NewAchievementService(awards awardStore, enabled bool, logger *zap.Logger) *AchievementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AchievementService{
		awards:  awards,
		enabled: enabled,
		logger:  logger,
		now:     time.Now,
	}
}

// Catalog returns the static achievement catalog.
func (s *AchievementService) Catalog() []models.Achievement {
	return achievementCatalog
}

// Evaluate returns the catalog entries, in catalog order, whose every
// criterion the stats satisfy and which are not already unlocked. Stateless:
// the caller records unlocks before re-evaluating.
func (s *AchievementService) Evaluate(stats models.StudentStats, alreadyUnlocked map[string]struct{}) []models.Achievement {
	var qualifying []models.Achievement
	for _, entry := range achievementCatalog {
		if _, unlocked := alreadyUnlocked[entry.ID]; unlocked {
			continue
		}
		if meetsCriteria(stats, entry.Criteria) {
			qualifying = append(qualifying, entry)
		}
	}
	return qualifying
}

// ProcessUnlocks evaluates the catalog and persists every newly qualifying
// entry, recording each unlock before moving to the next so a persistence
// failure cannot double-award on a later pass.
func (s *AchievementService) ProcessUnlocks(ctx context.Context, studentID string, stats models.StudentStats) ([]models.AchievementAward, error) {
	if !s.enabled {
		return nil, nil
	}

	existing, err := s.awards.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	alreadyUnlocked := make(map[string]struct{}, len(existing))
	for _, award := range existing {
		alreadyUnlocked[award.AchievementID] = struct{}{}
	}

	var unlocked []models.AchievementAward
	for _, entry := range s.Evaluate(stats, alreadyUnlocked) {
		award := models.AchievementAward{
			StudentID:     studentID,
			AchievementID: entry.ID,
			Name:          entry.Name,
			Description:   entry.Description,
			Type:          entry.Type,
			Icon:          entry.Icon,
			Points:        entry.Points,
			EarnedAt:      s.now().UTC(),
		}
		if err := s.awards.Create(ctx, &award); err != nil {
			return unlocked, err
		}
		alreadyUnlocked[entry.ID] = struct{}{}
		unlocked = append(unlocked, award)
		s.logger.Info("achievement unlocked",
			zap.String("student_id", studentID),
			zap.String("achievement", entry.ID),
		)
	}
	return unlocked, nil
}

// ListAwards returns everything the student has earned.
func (s *AchievementService) ListAwards(ctx context.Context, studentID string) ([]models.AchievementAward, error) {
	return s.awards.ListByStudent(ctx, studentID)
}

func meetsCriteria(stats models.StudentStats, criteria []models.Criterion) bool {
	if len(criteria) == 0 {
		return false
	}
	for _, criterion := range criteria {
		value, known := stats.Value(criterion.Stat)
		if !known || value < criterion.Min {
			return false
		}
	}
	return true
}
