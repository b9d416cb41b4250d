package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-learn/activity-api/internal/models"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
)

type fakeResponseRepo struct {
	existing *models.Response
	findErr  error
	created  *models.Response
	updated  *models.Response
}

func (f *fakeResponseRepo) FindByStudentAndActivity(context.Context, string, string) (*models.Response, error) {
	return f.existing, f.findErr
}

func (f *fakeResponseRepo) Create(_ context.Context, resp *models.Response) error {
	resp.ID = "resp-1"
	f.created = resp
	return nil
}

func (f *fakeResponseRepo) Update(_ context.Context, resp *models.Response) error {
	f.updated = resp
	return nil
}

type fakeQuestionLister struct {
	questions []models.Question
	err       error
}

func (f *fakeQuestionLister) ListByActivity(context.Context, string) ([]models.Question, error) {
	return f.questions, f.err
}

type fakeProgressRecorder struct {
	input  *ProgressInput
	awards []models.AchievementAward
	err    error
}

func (f *fakeProgressRecorder) Record(_ context.Context, in ProgressInput) ([]models.AchievementAward, error) {
	f.input = &in
	return f.awards, f.err
}

func activityQuestions() []models.Question {
	return []models.Question{
		{ID: "q1", ActivityID: "act-1", Required: true},
		{ID: "q2", ActivityID: "act-1"},
	}
}

func TestResponseServiceSave_CreatesWhenNoneExists(t *testing.T) {
	repo := &fakeResponseRepo{}
	svc := NewResponseService(repo, &fakeQuestionLister{questions: activityQuestions()}, &fakeProgressRecorder{}, nil)

	outcome, err := svc.Save(context.Background(), SavePayload{
		StudentID:  "stu-1",
		ActivityID: "act-1",
		Cycle:      1,
		Answers:    map[string]string{"q1": "hello"},
		Status:     models.ResponseInProgress,
	})
	require.NoError(t, err)

	require.NotNil(t, repo.created)
	assert.Nil(t, repo.updated)
	assert.Equal(t, "hello", repo.created.Answers["q1"]["cycle_1"].Value)
	assert.Equal(t, "Qq1: hello", repo.created.Summary)
	assert.Empty(t, repo.created.CompletedAt)
	assert.Same(t, repo.created, outcome.Response)
}

func TestResponseServiceSave_UpdatesExistingAndKeepsOldCycles(t *testing.T) {
	existing := &models.Response{
		ID:         "resp-1",
		StudentID:  "stu-1",
		ActivityID: "act-1",
		Answers:    FormatAnswers(map[string]string{"q1": "old"}, 1),
		Status:     models.ResponseCompleted,
		Cycle:      1,
	}
	repo := &fakeResponseRepo{existing: existing}
	svc := NewResponseService(repo, &fakeQuestionLister{questions: activityQuestions()}, &fakeProgressRecorder{}, nil)

	_, err := svc.Save(context.Background(), SavePayload{
		StudentID:  "stu-1",
		ActivityID: "act-1",
		Cycle:      2,
		Answers:    map[string]string{"q1": "new"},
		Status:     models.ResponseInProgress,
	})
	require.NoError(t, err)

	require.NotNil(t, repo.updated)
	assert.Nil(t, repo.created)
	assert.Equal(t, "old", repo.updated.Answers["q1"]["cycle_1"].Value)
	assert.Equal(t, "new", repo.updated.Answers["q1"]["cycle_2"].Value)
	assert.Equal(t, 2, repo.updated.Cycle)
	assert.Equal(t, models.ResponseInProgress, repo.updated.Status)
}

func TestResponseServiceSave_StampsCompletionTimestamp(t *testing.T) {
	repo := &fakeResponseRepo{}
	svc := NewResponseService(repo, &fakeQuestionLister{questions: activityQuestions()}, &fakeProgressRecorder{}, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC) }

	minutes, words := 12, 40
	_, err := svc.Save(context.Background(), SavePayload{
		StudentID:    "stu-1",
		ActivityID:   "act-1",
		Cycle:        1,
		Answers:      map[string]string{"q1": "done"},
		Status:       models.ResponseCompleted,
		MinutesSpent: &minutes,
		WordCount:    &words,
	})
	require.NoError(t, err)
	assert.Equal(t, "14/03/2026 09:26", repo.created.CompletedAt)
}

func TestResponseServiceSave_RejectsForeignQuestion(t *testing.T) {
	repo := &fakeResponseRepo{}
	svc := NewResponseService(repo, &fakeQuestionLister{questions: activityQuestions()}, &fakeProgressRecorder{}, nil)

	_, err := svc.Save(context.Background(), SavePayload{
		StudentID:  "stu-1",
		ActivityID: "act-1",
		Answers:    map[string]string{"q99": "smuggled"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestResponseServiceSave_RecordsProgressOnCompletion(t *testing.T) {
	repo := &fakeResponseRepo{}
	progress := &fakeProgressRecorder{awards: []models.AchievementAward{{AchievementID: "first_activity"}}}
	svc := NewResponseService(repo, &fakeQuestionLister{questions: activityQuestions()}, progress, nil)

	minutes, words := 7, 55
	outcome, err := svc.Save(context.Background(), SavePayload{
		StudentID:    "stu-1",
		ActivityID:   "act-1",
		Cycle:        1,
		Answers:      map[string]string{"q1": "a", "q2": "b"},
		Status:       models.ResponseCompleted,
		MinutesSpent: &minutes,
		WordCount:    &words,
	})
	require.NoError(t, err)

	require.NotNil(t, progress.input)
	assert.Equal(t, 7, progress.input.TimeSpentMinutes)
	assert.Equal(t, 55, progress.input.WordCount)
	assert.Equal(t, 2, progress.input.ResponseCount)
	require.Len(t, outcome.Unlocked, 1)
	assert.Equal(t, "first_activity", outcome.Unlocked[0].AchievementID)
}

func TestResponseServiceSave_ProgressFailureDoesNotFailSave(t *testing.T) {
	repo := &fakeResponseRepo{}
	progress := &fakeProgressRecorder{err: assert.AnError}
	svc := NewResponseService(repo, &fakeQuestionLister{questions: activityQuestions()}, progress, nil)

	minutes, words := 1, 2
	outcome, err := svc.Save(context.Background(), SavePayload{
		StudentID:    "stu-1",
		ActivityID:   "act-1",
		Cycle:        1,
		Answers:      map[string]string{"q1": "x"},
		Status:       models.ResponseCompleted,
		MinutesSpent: &minutes,
		WordCount:    &words,
	})
	require.NoError(t, err)
	assert.NotNil(t, repo.created)
	assert.Empty(t, outcome.Unlocked)
}

func TestResponseServiceSave_SkipsProgressForInProgress(t *testing.T) {
	progress := &fakeProgressRecorder{}
	svc := NewResponseService(&fakeResponseRepo{}, &fakeQuestionLister{questions: activityQuestions()}, progress, nil)

	_, err := svc.Save(context.Background(), SavePayload{
		StudentID:  "stu-1",
		ActivityID: "act-1",
		Cycle:      1,
		Answers:    map[string]string{"q1": "typing"},
		Status:     models.ResponseInProgress,
	})
	require.NoError(t, err)
	assert.Nil(t, progress.input)
}
