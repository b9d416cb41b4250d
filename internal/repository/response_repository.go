package repository

import (
	"context"
	"encoding/json"

	"github.com/vespa-learn/activity-api/internal/models"
	"github.com/vespa-learn/activity-api/internal/recordstore"
)

// Collection and field keys for the responses object.
const (
	responsesCollection = "object_46"

	fieldResponseStudent     = "field_1310"
	fieldResponseActivity    = "field_1311"
	fieldResponseAnswers     = "field_1312"
	fieldResponseSummary     = "field_1313"
	fieldResponseStatus      = "field_1314"
	fieldResponseCycle       = "field_1315"
	fieldResponseCompletedAt = "field_1316"
)

// ResponseRepository persists the single live response per (student,
// activity) pair. The save pipeline decides insert vs update by looking the
// pair up first; responses are upserted, never appended.
type ResponseRepository struct {
	store Gateway
}

// NewResponseRepository constructs a response repository.
func NewResponseRepository(store Gateway) *ResponseRepository {
	return &ResponseRepository{store: store}
}

// FindByStudentAndActivity returns the live response for the pair, or nil
// when none exists yet.
func (r *ResponseRepository) FindByStudentAndActivity(ctx context.Context, studentID, activityID string) (*models.Response, error) {
	tree := recordstore.And(
		recordstore.Eq(fieldResponseStudent, studentID),
		recordstore.Eq(fieldResponseActivity, activityID),
	)
	records, _, err := r.store.Read(ctx, responsesCollection, tree, recordstore.Page{RowsPerPage: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	resp, err := decodeResponse(records[0], studentID, activityID)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Create inserts a new response record and fills in its assigned id.
func (r *ResponseRepository) Create(ctx context.Context, resp *models.Response) error {
	fields, err := responseFields(resp)
	if err != nil {
		return err
	}
	fields[fieldResponseStudent] = []string{resp.StudentID}
	fields[fieldResponseActivity] = []string{resp.ActivityID}

	rec, err := r.store.Create(ctx, responsesCollection, fields)
	if err != nil {
		return err
	}
	resp.ID = rec.ID()
	return nil
}

// Update overwrites the mutable fields of an existing response record.
func (r *ResponseRepository) Update(ctx context.Context, resp *models.Response) error {
	fields, err := responseFields(resp)
	if err != nil {
		return err
	}
	_, err = r.store.Update(ctx, responsesCollection, resp.ID, fields)
	return err
}

func responseFields(resp *models.Response) (map[string]interface{}, error) {
	doc, err := json.Marshal(resp.Answers)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{
		fieldResponseAnswers: string(doc),
		fieldResponseSummary: resp.Summary,
		fieldResponseStatus:  string(resp.Status),
		fieldResponseCycle:   resp.Cycle,
	}
	if resp.CompletedAt != "" {
		fields[fieldResponseCompletedAt] = resp.CompletedAt
	} else {
		fields[fieldResponseCompletedAt] = nil
	}
	return fields, nil
}

func decodeResponse(rec recordstore.Record, studentID, activityID string) (models.Response, error) {
	answers := models.AnswerDocument{}
	if _, err := rec.Document(fieldResponseAnswers, &answers); err != nil {
		return models.Response{}, err
	}

	status := models.ResponseStatus(rec.StringOr(fieldResponseStatus, string(models.ResponseInProgress)))
	if status != models.ResponseCompleted {
		status = models.ResponseInProgress
	}

	return models.Response{
		ID:          rec.ID(),
		StudentID:   studentID,
		ActivityID:  activityID,
		Answers:     answers,
		Summary:     rec.StringOr(fieldResponseSummary, ""),
		Status:      status,
		Cycle:       rec.IntOr(fieldResponseCycle, 1),
		CompletedAt: rec.StringOr(fieldResponseCompletedAt, ""),
	}, nil
}
