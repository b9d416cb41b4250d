package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-learn/activity-api/internal/models"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
)

type fakeActivityFinder struct {
	activity *models.Activity
	err      error
}

func (f *fakeActivityFinder) FindByID(context.Context, string) (*models.Activity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.activity, nil
}

func (f *fakeActivityFinder) List(context.Context, models.ActivityFilter) ([]models.Activity, *models.Pagination, error) {
	return nil, nil, nil
}

type fakeLinkStore struct {
	mu      sync.Mutex
	link    *models.StudentActivityLink
	findErr error
	saveErr error
	saved   *models.StudentActivityLink
}

func (f *fakeLinkStore) FindLink(context.Context, string) (*models.StudentActivityLink, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	link := *f.link
	return &link, nil
}

func (f *fakeLinkStore) SaveLink(_ context.Context, link *models.StudentActivityLink) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = link
	f.link = link
	return nil
}

type fakeResumeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newFakeResumeCache() *fakeResumeCache {
	return &fakeResumeCache{data: map[string][]byte{}}
}

func (f *fakeResumeCache) Get(_ context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeResumeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
	return nil
}

func (f *fakeResumeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type saveSpy struct {
	mu       sync.Mutex
	payloads []SavePayload
	outcome  *SaveOutcome
	err      error
}

func (s *saveSpy) save(_ context.Context, p SavePayload) (*SaveOutcome, error) {
	s.mu.Lock()
	s.payloads = append(s.payloads, p)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.outcome != nil {
		return s.outcome, nil
	}
	return &SaveOutcome{Response: &models.Response{StudentID: p.StudentID}}, nil
}

func (s *saveSpy) last() *SavePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.payloads) == 0 {
		return nil
	}
	p := s.payloads[len(s.payloads)-1]
	return &p
}

// Three do questions (two required) paged 2+1, one required reflection.
func wizardQuestions() []models.Question {
	return []models.Question{
		{ID: "q1", ActivityID: "act-1", Order: 1, Prompt: "First", Required: true},
		{ID: "q2", ActivityID: "act-1", Order: 2, Prompt: "Second", Required: true},
		{ID: "q3", ActivityID: "act-1", Order: 3, Prompt: "Third"},
		{ID: "q4", ActivityID: "act-1", Order: 4, Prompt: "Reflect", Required: true, Reflective: true},
	}
}

type wizardFixture struct {
	svc       *WizardService
	responses *fakeResponseRepo
	links     *fakeLinkStore
	cache     *fakeResumeCache
	spy       *saveSpy
}

func newWizardFixture(t *testing.T) *wizardFixture {
	t.Helper()
	fx := &wizardFixture{
		responses: &fakeResponseRepo{},
		links: &fakeLinkStore{link: &models.StudentActivityLink{
			StudentID:  "stu-1",
			Prescribed: []string{"act-1"},
		}},
		cache: newFakeResumeCache(),
		spy:   &saveSpy{},
	}
	fx.svc = NewWizardService(
		&fakeActivityFinder{activity: &models.Activity{ID: "act-1", Name: "Goal Setting"}},
		&fakeQuestionLister{questions: wizardQuestions()},
		fx.responses,
		fx.links,
		fx.cache,
		fx.spy.save,
		WizardConfig{
			Debounce:         time.Hour,
			AutosaveInterval: time.Hour,
			GracePeriod:      time.Hour,
		},
		nil,
	)
	t.Cleanup(fx.svc.Shutdown)
	return fx
}

func TestWizardStart_FreshSession(t *testing.T) {
	fx := newWizardFixture(t)

	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)

	assert.Equal(t, string(models.StageIntro), state.Stage)
	assert.Equal(t, 1, state.Cycle)
	assert.Equal(t, 0, state.Page)
	assert.Equal(t, 2, state.TotalPages)
	require.Len(t, state.PageQuestions, 2)
	assert.Equal(t, "q1", state.PageQuestions[0].ID)
	require.Len(t, state.ReflectQuestions, 1)
	assert.False(t, state.CanComplete)
	assert.Equal(t, []string{string(models.StageIntro)}, state.ReachedStages)
}

func TestWizardStart_OwnershipEnforced(t *testing.T) {
	fx := newWizardFixture(t)
	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)

	_, err = fx.svc.State(state.SessionID, "stu-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestWizardNavigate_ForwardGatingAndFreeBackward(t *testing.T) {
	fx := newWizardFixture(t)
	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)
	id := state.SessionID

	// Skipping ahead is blocked.
	_, err = fx.svc.Navigate(id, "stu-1", models.StageReflect)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStageBlocked.Code, appErrors.FromError(err).Code)

	state, err = fx.svc.Navigate(id, "stu-1", models.StageLearn)
	require.NoError(t, err)
	assert.Equal(t, string(models.StageLearn), state.Stage)

	state, err = fx.svc.Navigate(id, "stu-1", models.StageDo)
	require.NoError(t, err)
	assert.Equal(t, string(models.StageDo), state.Stage)

	// Required do questions unanswered: reflect stays blocked.
	_, err = fx.svc.Navigate(id, "stu-1", models.StageReflect)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStageBlocked.Code, appErrors.FromError(err).Code)

	// Backward navigation is always free.
	state, err = fx.svc.Navigate(id, "stu-1", models.StageIntro)
	require.NoError(t, err)
	assert.Equal(t, string(models.StageIntro), state.Stage)

	// And a previously reached stage is directly reachable again.
	state, err = fx.svc.Navigate(id, "stu-1", models.StageDo)
	require.NoError(t, err)
	assert.Equal(t, string(models.StageDo), state.Stage)
}

func TestWizardNavigate_CompleteIsNotATarget(t *testing.T) {
	fx := newWizardFixture(t)
	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)

	_, err = fx.svc.Navigate(state.SessionID, "stu-1", models.StageComplete)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWizardPaging_RequiredGateThenAdvance(t *testing.T) {
	fx := newWizardFixture(t)
	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)
	id := state.SessionID

	_, err = fx.svc.Navigate(id, "stu-1", models.StageLearn)
	require.NoError(t, err)
	_, err = fx.svc.Navigate(id, "stu-1", models.StageDo)
	require.NoError(t, err)

	// Page 0 holds two required questions; advancing is blocked until both answered.
	_, err = fx.svc.NextPage(id, "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStageBlocked.Code, appErrors.FromError(err).Code)

	_, err = fx.svc.Answer(id, "stu-1", "q1", "my goal")
	require.NoError(t, err)
	_, err = fx.svc.Answer(id, "stu-1", "q2", "my plan")
	require.NoError(t, err)

	state, err = fx.svc.NextPage(id, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Page)
	require.Len(t, state.PageQuestions, 1)
	assert.Equal(t, "q3", state.PageQuestions[0].ID)

	_, err = fx.svc.NextPage(id, "stu-1")
	require.Error(t, err)

	state, err = fx.svc.PrevPage(id, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 0, state.Page)
}

func TestWizardAnswer_RejectsForeignQuestion(t *testing.T) {
	fx := newWizardFixture(t)
	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)

	_, err = fx.svc.Answer(state.SessionID, "stu-1", "q99", "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWizardComplete_FullFlow(t *testing.T) {
	fx := newWizardFixture(t)
	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)
	id := state.SessionID

	_, err = fx.svc.Navigate(id, "stu-1", models.StageLearn)
	require.NoError(t, err)
	_, err = fx.svc.Navigate(id, "stu-1", models.StageDo)
	require.NoError(t, err)
	_, err = fx.svc.Answer(id, "stu-1", "q1", "aim high")
	require.NoError(t, err)
	_, err = fx.svc.Answer(id, "stu-1", "q2", "work hard")
	require.NoError(t, err)
	_, err = fx.svc.Navigate(id, "stu-1", models.StageReflect)
	require.NoError(t, err)

	// Activity-wide gate: the required reflection still blocks completion.
	_, err = fx.svc.Complete(context.Background(), id, "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStageBlocked.Code, appErrors.FromError(err).Code)

	_, err = fx.svc.Answer(id, "stu-1", "q4", "it went well")
	require.NoError(t, err)

	result, err := fx.svc.Complete(context.Background(), id, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, string(models.StageComplete), result.Stage)
	assert.Equal(t, 7, result.WordCount)
	assert.Equal(t, models.CompletionPoints, result.Points)

	last := fx.spy.last()
	require.NotNil(t, last)
	assert.Equal(t, models.ResponseCompleted, last.Status)
	require.NotNil(t, last.WordCount)
	assert.Equal(t, 7, *last.WordCount)
	require.NotNil(t, last.MinutesSpent)

	// Finished mark written, resume snapshot invalidated, session gone.
	require.NotNil(t, fx.links.saved)
	assert.True(t, fx.links.saved.HasFinished("act-1"))
	assert.Contains(t, fx.cache.deleted, resumeKey("stu-1", "act-1"))
	_, err = fx.svc.State(id, "stu-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestWizardComplete_FlushFailureKeepsSession(t *testing.T) {
	fx := newWizardFixture(t)
	fx.spy.err = appErrors.ErrTransport
	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)
	id := state.SessionID

	for _, q := range []string{"q1", "q2", "q4"} {
		_, err = fx.svc.Answer(id, "stu-1", q, "answered")
		require.NoError(t, err)
	}

	_, err = fx.svc.Complete(context.Background(), id, "stu-1")
	require.Error(t, err)

	// Session survives for a retry and surfaces the save error.
	state, err = fx.svc.State(id, "stu-1")
	require.NoError(t, err)
	assert.NotEqual(t, string(models.StageComplete), state.Stage)
	assert.NotEmpty(t, state.LastSaveError)
	assert.Nil(t, fx.links.saved)
}

func TestWizardSaveAndExit_SnapshotsAndCloses(t *testing.T) {
	fx := newWizardFixture(t)
	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)
	id := state.SessionID

	_, err = fx.svc.Navigate(id, "stu-1", models.StageLearn)
	require.NoError(t, err)
	_, err = fx.svc.Navigate(id, "stu-1", models.StageDo)
	require.NoError(t, err)
	_, err = fx.svc.Answer(id, "stu-1", "q1", "draft answer")
	require.NoError(t, err)

	require.NoError(t, fx.svc.SaveAndExit(context.Background(), id, "stu-1"))

	last := fx.spy.last()
	require.NotNil(t, last)
	assert.Equal(t, models.ResponseInProgress, last.Status)

	var snapshot resumeState
	require.NoError(t, fx.cache.Get(context.Background(), resumeKey("stu-1", "act-1"), &snapshot))
	assert.Equal(t, models.StageDo, snapshot.Stage)
	assert.Equal(t, "draft answer", snapshot.Answers["q1"])

	_, err = fx.svc.State(id, "stu-1")
	assert.Error(t, err)
}

func TestWizardSaveAndExit_FlushFailureKeepsSession(t *testing.T) {
	fx := newWizardFixture(t)
	fx.spy.err = appErrors.ErrTransport
	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)

	err = fx.svc.SaveAndExit(context.Background(), state.SessionID, "stu-1")
	require.Error(t, err)

	_, err = fx.svc.State(state.SessionID, "stu-1")
	assert.NoError(t, err)
}

func TestWizardStart_ResumesFromSnapshot(t *testing.T) {
	fx := newWizardFixture(t)
	snapshot := resumeState{
		Answers: map[string]string{"q1": "kept"},
		Stage:   models.StageDo,
		Page:    1,
		Cycle:   2,
		SavedAt: time.Now(),
	}
	require.NoError(t, fx.cache.Set(context.Background(), resumeKey("stu-1", "act-1"), snapshot, time.Hour))

	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)

	assert.Equal(t, string(models.StageDo), state.Stage)
	assert.Equal(t, 1, state.Page)
	assert.Equal(t, 2, state.Cycle)
	assert.ElementsMatch(t, []string{"intro", "learn", "do"}, state.ReachedStages)
}

func TestWizardStart_CompletedRemoteStartsNextCycle(t *testing.T) {
	fx := newWizardFixture(t)
	fx.responses.existing = &models.Response{
		StudentID:  "stu-1",
		ActivityID: "act-1",
		Answers:    FormatAnswers(map[string]string{"q1": "old"}, 2),
		Status:     models.ResponseCompleted,
		Cycle:      2,
	}

	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)

	assert.Equal(t, 3, state.Cycle)
	assert.Equal(t, string(models.StageIntro), state.Stage)
	assert.Empty(t, state.PageQuestions[0].Answer)
}

func TestWizardStart_InProgressRemoteRestoresAnswers(t *testing.T) {
	fx := newWizardFixture(t)
	fx.responses.existing = &models.Response{
		StudentID:  "stu-1",
		ActivityID: "act-1",
		Answers:    FormatAnswers(map[string]string{"q1": "partial"}, 1),
		Status:     models.ResponseInProgress,
		Cycle:      1,
	}

	state, err := fx.svc.Start(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)

	assert.Equal(t, 1, state.Cycle)
	assert.Equal(t, "partial", state.PageQuestions[0].Answer)
}
