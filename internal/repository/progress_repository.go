package repository

import (
	"context"
	"time"

	"github.com/vespa-learn/activity-api/internal/models"
	"github.com/vespa-learn/activity-api/internal/recordstore"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
)

// Collection and field keys for the activity progress object.
const (
	progressCollection = "object_126"

	fieldProgressStudent     = "field_3500"
	fieldProgressActivity    = "field_3501"
	fieldProgressCycle       = "field_3502"
	fieldProgressAssignedAt  = "field_3503"
	fieldProgressStartedAt   = "field_3504"
	fieldProgressCompletedAt = "field_3505"
	fieldProgressMinutes     = "field_3506"
	fieldProgressStatus      = "field_3507"
	fieldProgressVerified    = "field_3508"
	fieldProgressPoints      = "field_3509"
	fieldProgressSelectedVia = "field_3510"
	fieldProgressWordCount   = "field_3511"
)

// ProgressRepository appends audit rows for activity attempts. Rows are
// never deleted; unassignment flips the status to removed.
type ProgressRepository struct {
	store Gateway
}

// NewProgressRepository constructs a progress repository.
func NewProgressRepository(store Gateway) *ProgressRepository {
	return &ProgressRepository{store: store}
}

// Create appends a progress record and fills in its assigned id.
func (r *ProgressRepository) Create(ctx context.Context, record *models.ProgressRecord) error {
	if record.Status == models.ProgressCompleted {
		if record.CompletedAt == nil {
			return appErrors.Clone(appErrors.ErrValidation, "completed progress record requires a completion timestamp")
		}
		if record.WordCount < 0 {
			return appErrors.Clone(appErrors.ErrValidation, "completed progress record requires a non-negative word count")
		}
	}

	fields := map[string]interface{}{
		fieldProgressStudent:     []string{record.StudentID},
		fieldProgressActivity:    []string{record.ActivityID},
		fieldProgressCycle:       record.Cycle,
		fieldProgressAssignedAt:  encodeTime(record.AssignedAt),
		fieldProgressStartedAt:   encodeTime(record.StartedAt),
		fieldProgressCompletedAt: encodeTime(record.CompletedAt),
		fieldProgressMinutes:     record.MinutesSpent,
		fieldProgressStatus:      string(record.Status),
		fieldProgressVerified:    record.Verified,
		fieldProgressPoints:      record.Points,
		fieldProgressSelectedVia: string(record.SelectedVia),
		fieldProgressWordCount:   record.WordCount,
	}

	rec, err := r.store.Create(ctx, progressCollection, fields)
	if err != nil {
		return err
	}
	record.ID = rec.ID()
	return nil
}

// ListByStudent returns every progress row for a student.
func (r *ProgressRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ProgressRecord, error) {
	tree := recordstore.And(recordstore.Eq(fieldProgressStudent, studentID))
	records, _, err := r.store.Read(ctx, progressCollection, tree, recordstore.Page{})
	if err != nil {
		return nil, err
	}

	out := make([]models.ProgressRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, decodeProgress(rec, studentID))
	}
	return out, nil
}

// FindAssigned locates the live (non-removed) assignment row for the pair,
// returning nil when none exists.
func (r *ProgressRepository) FindAssigned(ctx context.Context, studentID, activityID string) (*models.ProgressRecord, error) {
	tree := recordstore.And(
		recordstore.Eq(fieldProgressStudent, studentID),
		recordstore.Eq(fieldProgressActivity, activityID),
	)
	records, _, err := r.store.Read(ctx, progressCollection, tree, recordstore.Page{})
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		p := decodeProgress(rec, studentID)
		if p.Status != models.ProgressRemoved {
			return &p, nil
		}
	}
	return nil, nil
}

// UpdateStatus flips the status of an existing progress row.
func (r *ProgressRepository) UpdateStatus(ctx context.Context, id string, status models.ProgressStatus) error {
	_, err := r.store.Update(ctx, progressCollection, id, map[string]interface{}{
		fieldProgressStatus: string(status),
	})
	return err
}

func decodeProgress(rec recordstore.Record, studentID string) models.ProgressRecord {
	activityIDs := rec.ConnectionIDs(fieldProgressActivity)
	activityID := ""
	if len(activityIDs) > 0 {
		activityID = activityIDs[0]
	}

	status := models.ProgressStatus(rec.StringOr(fieldProgressStatus, string(models.ProgressAssigned)))

	return models.ProgressRecord{
		ID:           rec.ID(),
		StudentID:    studentID,
		ActivityID:   activityID,
		Cycle:        rec.IntOr(fieldProgressCycle, 1),
		AssignedAt:   decodeTime(rec.StringOr(fieldProgressAssignedAt, "")),
		StartedAt:    decodeTime(rec.StringOr(fieldProgressStartedAt, "")),
		CompletedAt:  decodeTime(rec.StringOr(fieldProgressCompletedAt, "")),
		MinutesSpent: rec.IntOr(fieldProgressMinutes, 0),
		Status:       status,
		Verified:     rec.Bool(fieldProgressVerified),
		Points:       rec.IntOr(fieldProgressPoints, 0),
		SelectedVia:  models.SelectedVia(rec.StringOr(fieldProgressSelectedVia, "")),
		WordCount:    rec.IntOr(fieldProgressWordCount, 0),
	}
}

func encodeTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(storeTimeLayout)
}

func decodeTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(storeTimeLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}
