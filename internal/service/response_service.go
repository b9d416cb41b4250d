package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vespa-learn/activity-api/internal/models"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
)

// completedAtLayout is the completion timestamp format stored on responses.
const completedAtLayout = "02/01/2006 15:04"

type responseRepository interface {
	FindByStudentAndActivity(ctx context.Context, studentID, activityID string) (*models.Response, error)
	Create(ctx context.Context, resp *models.Response) error
	Update(ctx context.Context, resp *models.Response) error
}

type questionLister interface {
	ListByActivity(ctx context.Context, activityID string) ([]models.Question, error)
}

type completionRecorder interface {
	Record(ctx context.Context, in ProgressInput) ([]models.AchievementAward, error)
}

// ResponseService runs the save pipeline: look up the live response for the
// (student, activity) pair, then update or create it. At most one live
// response exists per pair.
type ResponseService struct {
	responses responseRepository
	questions questionLister
	progress  completionRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewResponseService constructs the response save pipeline.
func NewResponseService(responses responseRepository, questions questionLister, progress completionRecorder, logger *zap.Logger) *ResponseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseService{
		responses: responses,
		questions: questions,
		progress:  progress,
		logger:    logger,
		now:       time.Now,
	}
}

// Save upserts the live response for the payload's pair. When the payload
// is completed and both elapsed minutes and word count are known, the
// progress recorder runs as a follow-on step; its failure never fails the
// save itself.
func (s *ResponseService) Save(ctx context.Context, p SavePayload) (*SaveOutcome, error) {
	if err := s.checkAnswerKeys(ctx, p); err != nil {
		return nil, err
	}

	existing, err := s.responses.FindByStudentAndActivity(ctx, p.StudentID, p.ActivityID)
	if err != nil {
		return nil, err
	}

	summary := Summarize(p.Answers)
	completedAt := ""
	if p.Status == models.ResponseCompleted {
		completedAt = s.now().Format(completedAtLayout)
	}

	var resp *models.Response
	if existing != nil {
		existing.Answers = MergeAnswers(existing.Answers, p.Answers, p.Cycle)
		existing.Summary = summary
		existing.Status = p.Status
		existing.Cycle = p.Cycle
		existing.CompletedAt = completedAt
		if err := s.responses.Update(ctx, existing); err != nil {
			return nil, err
		}
		resp = existing
	} else {
		resp = &models.Response{
			StudentID:   p.StudentID,
			ActivityID:  p.ActivityID,
			Answers:     FormatAnswers(p.Answers, p.Cycle),
			Summary:     summary,
			Status:      p.Status,
			Cycle:       p.Cycle,
			CompletedAt: completedAt,
		}
		if err := s.responses.Create(ctx, resp); err != nil {
			return nil, err
		}
	}

	outcome := &SaveOutcome{Response: resp}

	if p.Status == models.ResponseCompleted && p.MinutesSpent != nil && p.WordCount != nil {
		awards, err := s.progress.Record(ctx, ProgressInput{
			StudentID:        p.StudentID,
			ActivityID:       p.ActivityID,
			Cycle:            p.Cycle,
			TimeSpentMinutes: *p.MinutesSpent,
			WordCount:        *p.WordCount,
			ResponseCount:    len(p.Answers),
		})
		if err != nil {
			// Progress tracking is best-effort and secondary to the save.
			s.logger.Warn("progress recording failed",
				zap.String("student_id", p.StudentID),
				zap.String("activity_id", p.ActivityID),
				zap.Error(err),
			)
		} else {
			outcome.Unlocked = awards
		}
	}

	return outcome, nil
}

// checkAnswerKeys enforces that every answered question belongs to the
// payload's activity.
func (s *ResponseService) checkAnswerKeys(ctx context.Context, p SavePayload) error {
	questions, err := s.questions.ListByActivity(ctx, p.ActivityID)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}
	for qid := range p.Answers {
		if _, ok := known[qid]; !ok {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("answer references question %s outside activity %s", qid, p.ActivityID))
		}
	}
	return nil
}
