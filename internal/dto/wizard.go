package dto

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/vespa-learn/activity-api/internal/models"
)

// RegisterValidations installs custom binding rules on gin's validator.
// Called once from main before the router is built.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("wizardstage", func(fl validator.FieldLevel) bool {
		return models.Stage(fl.Field().String()).Valid()
	})
}

// StartWizardRequest opens a wizard session for one activity.
type StartWizardRequest struct {
	ActivityID string `json:"activity_id" binding:"required"`
}

// AnswerRequest records one answer edit.
type AnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Value      string `json:"value"`
}

// NavigateRequest jumps the wizard to a stage.
type NavigateRequest struct {
	Stage string `json:"stage" binding:"required,wizardstage"`
}

// QuestionView is a question plus the student's current answer.
type QuestionView struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	Kind     string   `json:"kind"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
	Answer   string   `json:"answer"`
}

// AchievementView is the notification payload for an unlocked achievement.
type AchievementView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Points      int    `json:"points"`
}

// WizardState is the full view of an open wizard session.
type WizardState struct {
	SessionID        string            `json:"session_id"`
	ActivityID       string            `json:"activity_id"`
	ActivityName     string            `json:"activity_name"`
	Stage            string            `json:"stage"`
	ReachedStages    []string          `json:"reached_stages"`
	Cycle            int               `json:"cycle"`
	Page             int               `json:"page"`
	TotalPages       int               `json:"total_pages"`
	PageQuestions    []QuestionView    `json:"page_questions"`
	ReflectQuestions []QuestionView    `json:"reflect_questions"`
	CanComplete      bool              `json:"can_complete"`
	LastSaveError    string            `json:"last_save_error,omitempty"`
	Notifications    []AchievementView `json:"notifications,omitempty"`
}

// CompletionResult reports a successful terminal transition.
type CompletionResult struct {
	ActivityID   string            `json:"activity_id"`
	Stage        string            `json:"stage"`
	MinutesSpent int               `json:"minutes_spent"`
	WordCount    int               `json:"word_count"`
	Points       int               `json:"points"`
	Unlocked     []AchievementView `json:"unlocked,omitempty"`
}

// AwardViews converts persisted awards into notification views.
func AwardViews(awards []models.AchievementAward) []AchievementView {
	if len(awards) == 0 {
		return nil
	}
	views := make([]AchievementView, 0, len(awards))
	for _, award := range awards {
		views = append(views, AchievementView{
			ID:          award.AchievementID,
			Name:        award.Name,
			Description: award.Description,
			Icon:        award.Icon,
			Points:      award.Points,
		})
	}
	return views
}
