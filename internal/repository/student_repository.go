package repository

import (
	"context"

	"github.com/vespa-learn/activity-api/internal/models"
	"github.com/vespa-learn/activity-api/internal/recordstore"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
)

// Collection and field keys for the students object. The prescribed and
// finished sets live on the student record as connection fields; the five
// VESPA scores are cached numeric fields.
const (
	studentsCollection = "object_6"

	fieldStudentName       = "field_90"
	fieldStudentEmail      = "field_91"
	fieldStudentGroup      = "field_92"
	fieldStudentYear       = "field_93"
	fieldStudentActive     = "field_94"
	fieldStudentPrescribed = "field_1683"
	fieldStudentFinished   = "field_1380"

	fieldScoreVision   = "field_147"
	fieldScoreEffort   = "field_148"
	fieldScoreSystems  = "field_149"
	fieldScorePractice = "field_150"
	fieldScoreAttitude = "field_151"
)

// StudentRepository reads students and mutates their activity link state.
type StudentRepository struct {
	store Gateway
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(store Gateway) *StudentRepository {
	return &StudentRepository{store: store}
}

// List returns students matching the filter, with pagination metadata.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	var preds []interface{}
	if filter.Search != "" {
		preds = append(preds, recordstore.Or(
			recordstore.Contains(fieldStudentName, filter.Search),
			recordstore.Contains(fieldStudentEmail, filter.Search),
		))
	}
	if filter.Group != "" {
		preds = append(preds, recordstore.Eq(fieldStudentGroup, filter.Group))
	}
	if filter.Active != nil {
		preds = append(preds, recordstore.Eq(fieldStudentActive, *filter.Active))
	}
	var tree *recordstore.Filter
	if len(preds) > 0 {
		tree = recordstore.And(preds...)
	}

	page := recordstore.Page{
		Number:      filter.Page,
		RowsPerPage: filter.PageSize,
		SortField:   studentSortField(filter.SortBy),
		SortOrder:   filter.SortOrder,
	}

	records, info, err := r.store.Read(ctx, studentsCollection, tree, page)
	if err != nil {
		return nil, nil, err
	}

	students := make([]models.Student, 0, len(records))
	for _, rec := range records {
		s, err := decodeStudent(rec)
		if err != nil {
			return nil, nil, err
		}
		students = append(students, s)
	}

	pagination := &models.Pagination{
		Page:       info.CurrentPage,
		PageSize:   page.RowsPerPage,
		TotalCount: info.TotalRecords,
	}
	return students, pagination, nil
}

// FindLink returns the per-student activity link state.
func (r *StudentRepository) FindLink(ctx context.Context, studentID string) (*models.StudentActivityLink, error) {
	rec, err := r.findRecord(ctx, studentID)
	if err != nil {
		return nil, err
	}

	link := &models.StudentActivityLink{
		StudentID:  studentID,
		Prescribed: rec.ConnectionIDs(fieldStudentPrescribed),
		Finished:   rec.ConnectionIDs(fieldStudentFinished),
		Scores: models.VESPAScores{
			Vision:   rec.FloatOr(fieldScoreVision, 0),
			Effort:   rec.FloatOr(fieldScoreEffort, 0),
			Systems:  rec.FloatOr(fieldScoreSystems, 0),
			Practice: rec.FloatOr(fieldScorePractice, 0),
			Attitude: rec.FloatOr(fieldScoreAttitude, 0),
		},
	}
	return link, nil
}

// SaveLink writes the prescribed and finished sets back to the student record.
func (r *StudentRepository) SaveLink(ctx context.Context, link *models.StudentActivityLink) error {
	_, err := r.store.Update(ctx, studentsCollection, link.StudentID, map[string]interface{}{
		fieldStudentPrescribed: link.Prescribed,
		fieldStudentFinished:   link.Finished,
	})
	return err
}

func (r *StudentRepository) findRecord(ctx context.Context, studentID string) (recordstore.Record, error) {
	records, _, err := r.store.Read(ctx, studentsCollection, recordstore.And(recordstore.Eq("id", studentID)), recordstore.Page{RowsPerPage: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return records[0], nil
}

func decodeStudent(rec recordstore.Record) (models.Student, error) {
	name, err := rec.String(fieldStudentName)
	if err != nil {
		return models.Student{}, err
	}

	return models.Student{
		ID:      rec.ID(),
		Name:    name,
		Email:   rec.StringOr(fieldStudentEmail, ""),
		Group:   rec.StringOr(fieldStudentGroup, ""),
		YearGrp: rec.StringOr(fieldStudentYear, ""),
		Active:  rec.Bool(fieldStudentActive),
	}, nil
}

func studentSortField(alias string) string {
	switch alias {
	case "name":
		return fieldStudentName
	case "email":
		return fieldStudentEmail
	case "group":
		return fieldStudentGroup
	default:
		return ""
	}
}
