package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vespa-learn/activity-api/internal/dto"
	"github.com/vespa-learn/activity-api/internal/models"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
)

type activityFinder interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
}

type linkStore interface {
	FindLink(ctx context.Context, studentID string) (*models.StudentActivityLink, error)
	SaveLink(ctx context.Context, link *models.StudentActivityLink) error
}

type resumeCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// resumeState is the Redis snapshot an interrupted session resumes from.
// The remote response only carries answers, so stage and page survive an
// exit solely through this snapshot.
type resumeState struct {
	Answers map[string]string `json:"answers"`
	Stage   models.Stage      `json:"stage"`
	Page    int               `json:"page"`
	Cycle   int               `json:"cycle"`
	SavedAt time.Time         `json:"saved_at"`
}

func resumeKey(studentID, activityID string) string {
	return fmt.Sprintf("wizard:resume:%s:%s", studentID, activityID)
}

// WizardSession is one student's open pass through one activity. All mutable
// state is guarded by mu; the save queue serialises remote writes on its own.
type WizardSession struct {
	ID        string
	StudentID string
	Activity  *models.Activity
	Questions []models.Question
	Cycle     int

	mu            sync.Mutex
	answers       map[string]string
	stage         models.Stage
	reached       map[models.Stage]bool
	page          int
	startedAt     time.Time
	dirty         bool
	lastSaveErr   string
	notifications []models.AchievementAward

	queue          *SaveQueue
	cancelAutosave context.CancelFunc
}

// WizardConfig carries the timing knobs of the wizard.
type WizardConfig struct {
	Debounce         time.Duration
	AutosaveInterval time.Duration
	GracePeriod      time.Duration
	ResumeTTL        time.Duration
}

// WizardService drives the staged activity player: intro -> learn -> do ->
// reflect -> complete. Completed stages stay reachable for free backward
// navigation; forward movement is gated one stage at a time.
type WizardService struct {
	activities activityFinder
	questions  questionLister
	responses  responseRepository
	students   linkStore
	cache      resumeCache
	save       SaveFunc
	cfg        WizardConfig
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string

	mu       sync.Mutex
	sessions map[string]*WizardSession
}

// NewWizardService constructs a wizard service.
func NewWizardService(
	activities activityFinder,
	questions questionLister,
	responses responseRepository,
	students linkStore,
	cache resumeCache,
	save SaveFunc,
	cfg WizardConfig,
	logger *zap.Logger,
) *WizardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = 30 * time.Second
	}
	if cfg.GracePeriod < 0 {
		cfg.GracePeriod = 0
	}
	if cfg.ResumeTTL <= 0 {
		cfg.ResumeTTL = 24 * time.Hour
	}
	return &WizardService{
		activities: activities,
		questions:  questions,
		responses:  responses,
		students:   students,
		cache:      cache,
		save:       save,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Start opens a session for the student and activity, resuming from the
// Redis snapshot when one exists, else from the remote response. A remote
// response already marked completed starts a fresh pass on the next cycle.
// Any previous open session for the same pair is discarded.
func (s *WizardService) Start(ctx context.Context, studentID, activityID string) (*dto.WizardState, error) {
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	sess := &WizardSession{
		ID:        s.newID(),
		StudentID: studentID,
		Activity:  activity,
		Questions: questions,
		Cycle:     1,
		answers:   map[string]string{},
		stage:     models.StageIntro,
		reached:   map[models.Stage]bool{models.StageIntro: true},
		startedAt: s.now(),
	}

	var snapshot resumeState
	if err := s.cache.Get(ctx, resumeKey(studentID, activityID), &snapshot); err == nil {
		sess.Cycle = maxInt(snapshot.Cycle, 1)
		if len(snapshot.Answers) > 0 {
			sess.answers = snapshot.Answers
		}
		if snapshot.Stage.Valid() && snapshot.Stage != models.StageComplete {
			sess.stage = snapshot.Stage
			for i := 0; i <= models.StageIndex(snapshot.Stage); i++ {
				sess.reached[models.StageOrder[i]] = true
			}
		}
		sess.page = snapshot.Page
	} else {
		resp, err := s.responses.FindByStudentAndActivity(ctx, studentID, activityID)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			if resp.Status == models.ResponseCompleted {
				sess.Cycle = maxInt(resp.Cycle, 1) + 1
			} else {
				sess.Cycle = maxInt(resp.Cycle, 1)
				sess.answers = ExtractCycle(resp.Answers, sess.Cycle)
			}
		}
	}
	sess.clampPageLocked()

	sess.queue = NewSaveQueue(s.cfg.Debounce, s.save, s.resultHook(sess), s.logger)
	autosaveCtx, cancel := context.WithCancel(context.Background())
	sess.cancelAutosave = cancel
	go s.autosaveLoop(autosaveCtx, sess)

	s.mu.Lock()
	for id, open := range s.sessions {
		if open.StudentID == studentID && open.Activity.ID == activityID {
			delete(s.sessions, id)
			s.teardown(open)
		}
	}
	if s.sessions == nil {
		s.sessions = map[string]*WizardSession{}
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("wizard session started",
		zap.String("student_id", studentID),
		zap.String("activity_id", activityID),
		zap.Int("cycle", sess.Cycle),
	)
	return s.state(sess), nil
}

// State returns the current view of the session. Pending achievement
// notifications are drained: each unlock is reported exactly once.
func (s *WizardService) State(sessionID, studentID string) (*dto.WizardState, error) {
	sess, err := s.session(sessionID, studentID)
	if err != nil {
		return nil, err
	}
	return s.state(sess), nil
}

// Answer records one answer edit and schedules a debounced save.
func (s *WizardService) Answer(sessionID, studentID, questionID, value string) (*dto.WizardState, error) {
	sess, err := s.session(sessionID, studentID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.questionByID(questionID) == nil {
		sess.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("question %s does not belong to activity %s", questionID, sess.Activity.ID))
	}
	sess.answers[questionID] = value
	sess.dirty = true
	payload := sess.payloadLocked(models.ResponseInProgress, nil, nil)
	sess.mu.Unlock()

	sess.queue.Schedule(payload)
	return s.state(sess), nil
}

// Navigate moves the session to a stage. Previously reached stages are
// always reachable; the next stage in order is reachable once the current
// stage's gate is satisfied. The terminal stage is never a navigation
// target: completion has its own operation.
func (s *WizardService) Navigate(sessionID, studentID string, target models.Stage) (*dto.WizardState, error) {
	sess, err := s.session(sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown stage %q", target))
	}
	if target == models.StageComplete {
		return nil, appErrors.Clone(appErrors.ErrValidation, "completion is a separate operation, not a navigation target")
	}

	sess.mu.Lock()
	switch {
	case sess.reached[target]:
		sess.stage = target
	case models.StageIndex(target) == models.StageIndex(sess.stage)+1:
		if sess.stage == models.StageDo {
			if missing := sess.missingRequiredLocked(func(q models.Question) bool { return !q.Reflective }); len(missing) > 0 {
				sess.mu.Unlock()
				return nil, appErrors.Clone(appErrors.ErrStageBlocked,
					fmt.Sprintf("required questions unanswered: %s", strings.Join(missing, ", ")))
			}
		}
		sess.stage = target
		sess.reached[target] = true
	default:
		sess.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrStageBlocked,
			fmt.Sprintf("stage %q is not reachable from %q", target, sess.stage))
	}
	sess.mu.Unlock()

	return s.state(sess), nil
}

// NextPage advances within the question pages of the middle stage. The
// current page's required questions gate the advance.
func (s *WizardService) NextPage(sessionID, studentID string) (*dto.WizardState, error) {
	sess, err := s.session(sessionID, studentID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.stage != models.StageDo {
		sess.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, "paging only applies to the question stage")
	}
	if sess.page >= sess.totalPagesLocked()-1 {
		sess.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, "already on the last page")
	}
	pageQuestions := sess.pageQuestionsLocked()
	var missing []string
	for _, q := range pageQuestions {
		if q.Required && strings.TrimSpace(sess.answers[q.ID]) == "" {
			missing = append(missing, q.ID)
		}
	}
	if len(missing) > 0 {
		sess.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrStageBlocked,
			fmt.Sprintf("required questions unanswered: %s", strings.Join(missing, ", ")))
	}
	sess.page++
	sess.mu.Unlock()

	return s.state(sess), nil
}

// PrevPage moves back one question page. Backward movement is never gated.
func (s *WizardService) PrevPage(sessionID, studentID string) (*dto.WizardState, error) {
	sess, err := s.session(sessionID, studentID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.stage != models.StageDo {
		sess.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, "paging only applies to the question stage")
	}
	if sess.page == 0 {
		sess.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, "already on the first page")
	}
	sess.page--
	sess.mu.Unlock()

	return s.state(sess), nil
}

// SaveAndExit snapshots the session into the resume cache, flushes the
// in-progress state to the remote store and closes the session. A remote
// flush failure leaves the session open so nothing is lost.
func (s *WizardService) SaveAndExit(ctx context.Context, sessionID, studentID string) error {
	sess, err := s.session(sessionID, studentID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	snapshot := sess.resumeStateLocked(s.now())
	payload := sess.payloadLocked(models.ResponseInProgress, nil, nil)
	sess.mu.Unlock()

	if err := s.cache.Set(ctx, resumeKey(sess.StudentID, sess.Activity.ID), snapshot, s.cfg.ResumeTTL); err != nil {
		s.logger.Warn("resume snapshot write failed",
			zap.String("student_id", sess.StudentID), zap.Error(err))
	}

	if _, err := sess.queue.Flush(ctx, payload); err != nil {
		sess.mu.Lock()
		sess.lastSaveErr = err.Error()
		sess.mu.Unlock()
		return err
	}

	s.remove(sess)
	return nil
}

// Complete runs the terminal transition. Every required question of the
// activity gates it, reflective ones included. The completed flush must
// succeed; progress recording and the roster finished-mark ride behind it
// best-effort, and the resume snapshot is invalidated on the way out.
func (s *WizardService) Complete(ctx context.Context, sessionID, studentID string) (*dto.CompletionResult, error) {
	sess, err := s.session(sessionID, studentID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if missing := sess.missingRequiredLocked(func(models.Question) bool { return true }); len(missing) > 0 {
		sess.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrStageBlocked,
			fmt.Sprintf("required questions unanswered: %s", strings.Join(missing, ", ")))
	}
	minutes := int(s.now().Sub(sess.startedAt).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	words := CountWords(sess.answers)
	payload := sess.payloadLocked(models.ResponseCompleted, &minutes, &words)
	sess.mu.Unlock()

	outcome, err := sess.queue.Flush(ctx, payload)
	if err != nil {
		sess.mu.Lock()
		sess.lastSaveErr = err.Error()
		sess.mu.Unlock()
		return nil, err
	}

	sess.mu.Lock()
	sess.stage = models.StageComplete
	sess.reached[models.StageComplete] = true
	unlocked := append(sess.notifications, outcome.Unlocked...)
	sess.notifications = nil
	sess.mu.Unlock()

	s.markFinished(ctx, sess.StudentID, sess.Activity.ID)

	if err := s.cache.Delete(ctx, resumeKey(sess.StudentID, sess.Activity.ID)); err != nil {
		s.logger.Warn("resume snapshot invalidation failed",
			zap.String("student_id", sess.StudentID), zap.Error(err))
	}

	s.remove(sess)

	s.logger.Info("activity completed",
		zap.String("student_id", sess.StudentID),
		zap.String("activity_id", sess.Activity.ID),
		zap.Int("cycle", sess.Cycle),
		zap.Int("minutes_spent", minutes),
	)
	return &dto.CompletionResult{
		ActivityID:   sess.Activity.ID,
		Stage:        string(models.StageComplete),
		MinutesSpent: minutes,
		WordCount:    words,
		Points:       models.CompletionPoints,
		Unlocked:     dto.AwardViews(unlocked),
	}, nil
}

// Shutdown closes every open session without flushing. Resume snapshots
// written by the autosave loop remain the recovery path.
func (s *WizardService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		delete(s.sessions, id)
		s.teardown(sess)
	}
}

func (s *WizardService) session(id, studentID string) (*WizardSession, error) {
	s.mu.Lock()
	sess := s.sessions[id]
	s.mu.Unlock()
	if sess == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "wizard session not found")
	}
	if sess.StudentID != studentID {
		return nil, appErrors.ErrForbidden
	}
	return sess, nil
}

func (s *WizardService) remove(sess *WizardSession) {
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	s.teardown(sess)
}

func (s *WizardService) teardown(sess *WizardSession) {
	if sess.cancelAutosave != nil {
		sess.cancelAutosave()
	}
	sess.queue.Close()
}

// markFinished adds the activity to the student's finished set, prescribing
// it first when the student picked it themselves. Failures are logged only:
// the completion already succeeded remotely.
func (s *WizardService) markFinished(ctx context.Context, studentID, activityID string) {
	link, err := s.students.FindLink(ctx, studentID)
	if err != nil {
		s.logger.Warn("finished-mark lookup failed",
			zap.String("student_id", studentID), zap.Error(err))
		return
	}
	changed := false
	if !link.HasPrescribed(activityID) {
		link.Prescribed = append(link.Prescribed, activityID)
		changed = true
	}
	if !link.HasFinished(activityID) {
		link.Finished = append(link.Finished, activityID)
		changed = true
	}
	if !changed {
		return
	}
	if err := s.students.SaveLink(ctx, link); err != nil {
		s.logger.Warn("finished-mark write failed",
			zap.String("student_id", studentID), zap.Error(err))
	}
}

// resultHook feeds debounced save outcomes back into the session so the
// next state read can surface save errors and unlock notifications.
func (s *WizardService) resultHook(sess *WizardSession) ResultFunc {
	return func(_ SavePayload, outcome *SaveOutcome, err error) {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if err != nil {
			sess.lastSaveErr = err.Error()
			return
		}
		sess.lastSaveErr = ""
		if outcome != nil && len(outcome.Unlocked) > 0 {
			sess.notifications = append(sess.notifications, outcome.Unlocked...)
		}
	}
}

// autosaveLoop refreshes the resume snapshot and schedules a save on a
// fixed interval while the session has unsaved edits. A grace period after
// start keeps a session that is opened and immediately abandoned from
// writing anything.
func (s *WizardService) autosaveLoop(ctx context.Context, sess *WizardSession) {
	grace := time.NewTimer(s.cfg.GracePeriod)
	defer grace.Stop()
	select {
	case <-ctx.Done():
		return
	case <-grace.C:
	}

	ticker := time.NewTicker(s.cfg.AutosaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sess.mu.Lock()
			if !sess.dirty {
				sess.mu.Unlock()
				continue
			}
			sess.dirty = false
			snapshot := sess.resumeStateLocked(s.now())
			payload := sess.payloadLocked(models.ResponseInProgress, nil, nil)
			sess.mu.Unlock()

			if err := s.cache.Set(ctx, resumeKey(sess.StudentID, sess.Activity.ID), snapshot, s.cfg.ResumeTTL); err != nil {
				s.logger.Warn("autosave snapshot write failed",
					zap.String("student_id", sess.StudentID), zap.Error(err))
			}
			sess.queue.Schedule(payload)
		}
	}
}

func (s *WizardService) state(sess *WizardSession) *dto.WizardState {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	reached := make([]string, 0, len(sess.reached))
	for _, stage := range models.StageOrder {
		if sess.reached[stage] {
			reached = append(reached, string(stage))
		}
	}

	state := &dto.WizardState{
		SessionID:        sess.ID,
		ActivityID:       sess.Activity.ID,
		ActivityName:     sess.Activity.Name,
		Stage:            string(sess.stage),
		ReachedStages:    reached,
		Cycle:            sess.Cycle,
		Page:             sess.page,
		TotalPages:       sess.totalPagesLocked(),
		PageQuestions:    sess.questionViewsLocked(sess.pageQuestionsLocked()),
		ReflectQuestions: sess.questionViewsLocked(sess.reflectQuestionsLocked()),
		CanComplete:      len(sess.missingRequiredLocked(func(models.Question) bool { return true })) == 0,
		LastSaveError:    sess.lastSaveErr,
		Notifications:    dto.AwardViews(sess.notifications),
	}
	sess.notifications = nil
	return state
}

func (sess *WizardSession) questionByID(id string) *models.Question {
	for i := range sess.Questions {
		if sess.Questions[i].ID == id {
			return &sess.Questions[i]
		}
	}
	return nil
}

func (sess *WizardSession) doQuestionsLocked() []models.Question {
	var out []models.Question
	for _, q := range sess.Questions {
		if !q.Reflective {
			out = append(out, q)
		}
	}
	return out
}

func (sess *WizardSession) reflectQuestionsLocked() []models.Question {
	var out []models.Question
	for _, q := range sess.Questions {
		if q.Reflective {
			out = append(out, q)
		}
	}
	return out
}

func (sess *WizardSession) totalPagesLocked() int {
	n := len(sess.doQuestionsLocked())
	if n == 0 {
		return 1
	}
	return (n + models.QuestionsPerPage - 1) / models.QuestionsPerPage
}

func (sess *WizardSession) pageQuestionsLocked() []models.Question {
	doQuestions := sess.doQuestionsLocked()
	start := sess.page * models.QuestionsPerPage
	if start >= len(doQuestions) {
		return nil
	}
	end := start + models.QuestionsPerPage
	if end > len(doQuestions) {
		end = len(doQuestions)
	}
	return doQuestions[start:end]
}

func (sess *WizardSession) questionViewsLocked(questions []models.Question) []dto.QuestionView {
	views := make([]dto.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, dto.QuestionView{
			ID:       q.ID,
			Prompt:   q.Prompt,
			Kind:     string(q.Kind),
			Options:  q.Options,
			Required: q.Required,
			Answer:   sess.answers[q.ID],
		})
	}
	return views
}

// missingRequiredLocked returns, in question order, the ids of required
// questions matching the filter whose answer is blank.
func (sess *WizardSession) missingRequiredLocked(include func(models.Question) bool) []string {
	var missing []string
	for _, q := range sess.Questions {
		if !q.Required || !include(q) {
			continue
		}
		if strings.TrimSpace(sess.answers[q.ID]) == "" {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

func (sess *WizardSession) payloadLocked(status models.ResponseStatus, minutes, words *int) SavePayload {
	answers := make(map[string]string, len(sess.answers))
	for k, v := range sess.answers {
		answers[k] = v
	}
	return SavePayload{
		StudentID:    sess.StudentID,
		ActivityID:   sess.Activity.ID,
		Cycle:        sess.Cycle,
		Answers:      answers,
		Status:       status,
		MinutesSpent: minutes,
		WordCount:    words,
	}
}

func (sess *WizardSession) resumeStateLocked(now time.Time) resumeState {
	answers := make(map[string]string, len(sess.answers))
	for k, v := range sess.answers {
		answers[k] = v
	}
	return resumeState{
		Answers: answers,
		Stage:   sess.stage,
		Page:    sess.page,
		Cycle:   sess.Cycle,
		SavedAt: now.UTC(),
	}
}

func (sess *WizardSession) clampPageLocked() {
	if sess.page < 0 {
		sess.page = 0
	}
	if max := sess.totalPagesLocked() - 1; sess.page > max {
		sess.page = max
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
