package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vespa-learn/activity-api/internal/models"
)

// ProgressInput describes one completed activity attempt.
type ProgressInput struct {
	StudentID        string
	ActivityID       string
	Cycle            int
	TimeSpentMinutes int
	WordCount        int
	ResponseCount    int
}

type progressStore interface {
	Create(ctx context.Context, record *models.ProgressRecord) error
	ListByStudent(ctx context.Context, studentID string) ([]models.ProgressRecord, error)
}

type achievementProcessor interface {
	ProcessUnlocks(ctx context.Context, studentID string, stats models.StudentStats) ([]models.AchievementAward, error)
}

// ProgressService writes the completion audit trail and drives achievement
// evaluation off the resulting statistics.
type ProgressService struct {
	progress     progressStore
	achievements achievementProcessor
	logger       *zap.Logger
	now          func() time.Time
}

// NewProgressService constructs a progress service.
func NewProgressService(progress progressStore, achievements achievementProcessor, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		progress:     progress,
		achievements: achievements,
		logger:       logger,
		now:          time.Now,
	}
}

// Record appends one completed progress row and then evaluates achievements.
// Re-completion of the same activity appends a fresh row rather than
// updating the old one. An achievement failure never rolls back the
// progress write: the awards slice is simply empty.
//
// Assigned, started and completed are all stamped "now" for student-driven
// completions, matching the historical behaviour of the data already in the
// store.
func (s *ProgressService) Record(ctx context.Context, in ProgressInput) ([]models.AchievementAward, error) {
	now := s.now().UTC()
	record := &models.ProgressRecord{
		StudentID:    in.StudentID,
		ActivityID:   in.ActivityID,
		Cycle:        in.Cycle,
		AssignedAt:   &now,
		StartedAt:    &now,
		CompletedAt:  &now,
		MinutesSpent: in.TimeSpentMinutes,
		Status:       models.ProgressCompleted,
		Points:       models.CompletionPoints,
		SelectedVia:  models.SelectedViaStudent,
		WordCount:    in.WordCount,
	}
	if err := s.progress.Create(ctx, record); err != nil {
		return nil, err
	}

	stats, err := s.Stats(ctx, in.StudentID)
	if err != nil {
		s.logger.Warn("stats aggregation failed after progress write",
			zap.String("student_id", in.StudentID), zap.Error(err))
		return nil, nil
	}

	awards, err := s.achievements.ProcessUnlocks(ctx, in.StudentID, stats)
	if err != nil {
		s.logger.Warn("achievement evaluation failed",
			zap.String("student_id", in.StudentID), zap.Error(err))
		return nil, nil
	}
	return awards, nil
}

// Stats aggregates the cumulative counters achievements are judged on.
func (s *ProgressService) Stats(ctx context.Context, studentID string) (models.StudentStats, error) {
	rows, err := s.progress.ListByStudent(ctx, studentID)
	if err != nil {
		return models.StudentStats{}, err
	}

	stats := models.StudentStats{}
	for _, row := range rows {
		if row.Status != models.ProgressCompleted {
			continue
		}
		stats.ActivitiesCompleted++
		stats.TotalPoints += row.Points
		stats.WordsWritten += row.WordCount
	}
	return stats, nil
}

// History returns every progress row for a student, newest completions
// included, for the staff console.
func (s *ProgressService) History(ctx context.Context, studentID string) ([]models.ProgressRecord, error) {
	return s.progress.ListByStudent(ctx, studentID)
}
