package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-learn/activity-api/internal/models"
)

type fakeAwardStore struct {
	awards    []models.AchievementAward
	listErr   error
	createErr error
}

func (f *fakeAwardStore) ListByStudent(context.Context, string) ([]models.AchievementAward, error) {
	return f.awards, f.listErr
}

func (f *fakeAwardStore) Create(_ context.Context, award *models.AchievementAward) error {
	if f.createErr != nil {
		return f.createErr
	}
	award.ID = "award-1"
	f.awards = append(f.awards, *award)
	return nil
}

func TestAchievementEvaluate_Thresholds(t *testing.T) {
	svc := NewAchievementService(&fakeAwardStore{}, true, nil)

	none := svc.Evaluate(models.StudentStats{ActivitiesCompleted: 0}, nil)
	assert.Empty(t, none)

	one := svc.Evaluate(models.StudentStats{ActivitiesCompleted: 1}, nil)
	require.Len(t, one, 1)
	assert.Equal(t, "first_activity", one[0].ID)

	five := svc.Evaluate(models.StudentStats{ActivitiesCompleted: 5}, nil)
	require.Len(t, five, 2)
	assert.Equal(t, "first_activity", five[0].ID)
	assert.Equal(t, "five_activities", five[1].ID)
}

func TestAchievementEvaluate_SkipsUnlocked(t *testing.T) {
	svc := NewAchievementService(&fakeAwardStore{}, true, nil)

	unlocked := map[string]struct{}{"first_activity": {}}
	result := svc.Evaluate(models.StudentStats{ActivitiesCompleted: 5}, unlocked)
	require.Len(t, result, 1)
	assert.Equal(t, "five_activities", result[0].ID)
}

func TestAchievementProcessUnlocks_PersistsAndIsIdempotent(t *testing.T) {
	store := &fakeAwardStore{}
	svc := NewAchievementService(store, true, nil)

	first, err := svc.ProcessUnlocks(context.Background(), "stu-1", models.StudentStats{ActivitiesCompleted: 1})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "first_activity", first[0].AchievementID)
	assert.Equal(t, "stu-1", first[0].StudentID)

	// Same stats again: already unlocked, nothing new.
	second, err := svc.ProcessUnlocks(context.Background(), "stu-1", models.StudentStats{ActivitiesCompleted: 1})
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Len(t, store.awards, 1)
}

func TestAchievementProcessUnlocks_Disabled(t *testing.T) {
	store := &fakeAwardStore{}
	svc := NewAchievementService(store, false, nil)

	awards, err := svc.ProcessUnlocks(context.Background(), "stu-1", models.StudentStats{ActivitiesCompleted: 5})
	require.NoError(t, err)
	assert.Empty(t, awards)
	assert.Empty(t, store.awards)
}

func TestAchievementProcessUnlocks_PartialOnCreateError(t *testing.T) {
	store := &fakeAwardStore{createErr: assert.AnError}
	svc := NewAchievementService(store, true, nil)

	awards, err := svc.ProcessUnlocks(context.Background(), "stu-1", models.StudentStats{ActivitiesCompleted: 5})
	assert.Error(t, err)
	assert.Empty(t, awards)
}

func TestMeetsCriteria_EmptyNeverUnlocks(t *testing.T) {
	assert.False(t, meetsCriteria(models.StudentStats{ActivitiesCompleted: 100}, nil))
}

func TestMeetsCriteria_UnknownStatNeverUnlocks(t *testing.T) {
	criteria := []models.Criterion{{Stat: "streak_days", Min: 1}}
	assert.False(t, meetsCriteria(models.StudentStats{ActivitiesCompleted: 100}, criteria))
}

func TestMeetsCriteria_AllMustHold(t *testing.T) {
	criteria := []models.Criterion{
		{Stat: models.StatActivitiesCompleted, Min: 1},
		{Stat: models.StatWordsWritten, Min: 100},
	}
	assert.False(t, meetsCriteria(models.StudentStats{ActivitiesCompleted: 3, WordsWritten: 50}, criteria))
	assert.True(t, meetsCriteria(models.StudentStats{ActivitiesCompleted: 3, WordsWritten: 150}, criteria))
}
