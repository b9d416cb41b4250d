package repository

import (
	"context"
	"sort"

	"github.com/vespa-learn/activity-api/internal/models"
	"github.com/vespa-learn/activity-api/internal/recordstore"
)

// Collection and field keys for the questions object.
const (
	questionsCollection = "object_45"

	fieldQuestionActivity   = "field_1300"
	fieldQuestionPrompt     = "field_1301"
	fieldQuestionOrder      = "field_1302"
	fieldQuestionKind       = "field_1303"
	fieldQuestionOptions    = "field_1304"
	fieldQuestionRequired   = "field_1305"
	fieldQuestionReflective = "field_1306"
)

// QuestionRepository reads the questions attached to an activity.
type QuestionRepository struct {
	store Gateway
}

// NewQuestionRepository constructs a question repository.
func NewQuestionRepository(store Gateway) *QuestionRepository {
	return &QuestionRepository{store: store}
}

// ListByActivity returns the activity's questions sorted by their ordering
// index.
func (r *QuestionRepository) ListByActivity(ctx context.Context, activityID string) ([]models.Question, error) {
	tree := recordstore.And(recordstore.Eq(fieldQuestionActivity, activityID))
	records, _, err := r.store.Read(ctx, questionsCollection, tree, recordstore.Page{})
	if err != nil {
		return nil, err
	}

	questions := make([]models.Question, 0, len(records))
	for _, rec := range records {
		q, err := decodeQuestion(rec, activityID)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Order < questions[j].Order
	})
	return questions, nil
}

func decodeQuestion(rec recordstore.Record, activityID string) (models.Question, error) {
	prompt, err := rec.String(fieldQuestionPrompt)
	if err != nil {
		return models.Question{}, err
	}

	kind := models.InputKind(rec.StringOr(fieldQuestionKind, string(models.InputFreeText)))
	switch kind {
	case models.InputFreeText, models.InputParagraph, models.InputSingleSelect:
	default:
		kind = models.InputFreeText
	}

	return models.Question{
		ID:         rec.ID(),
		ActivityID: activityID,
		Order:      rec.IntOr(fieldQuestionOrder, 0),
		Prompt:     prompt,
		Kind:       kind,
		Options:    rec.Strings(fieldQuestionOptions),
		Required:   rec.Bool(fieldQuestionRequired),
		Reflective: rec.Bool(fieldQuestionReflective),
	}, nil
}
