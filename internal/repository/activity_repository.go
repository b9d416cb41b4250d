package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vespa-learn/activity-api/internal/models"
	"github.com/vespa-learn/activity-api/internal/recordstore"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
)

// Collection and field keys for the activities object in the record store.
const (
	activitiesCollection = "object_44"

	fieldActivityName         = "field_1278"
	fieldActivityCategory     = "field_1285"
	fieldActivityLevel        = "field_1295"
	fieldActivityDescription  = "field_1293"
	fieldActivityInstructions = "field_1294"
	fieldActivityVideo        = "field_1288"
	fieldActivitySlides       = "field_1289"
	fieldActivityPDF          = "field_1290"
	fieldActivityScoreLower   = "field_3310"
	fieldActivityScoreUpper   = "field_3311"
)

// ActivityRepository reads the activity catalog. Activities are authored in
// the external content store and are read-only here.
type ActivityRepository struct {
	store Gateway
}

// NewActivityRepository constructs an activity repository.
func NewActivityRepository(store Gateway) *ActivityRepository {
	return &ActivityRepository{store: store}
}

// List returns activities matching the filter, with pagination metadata.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, *models.Pagination, error) {
	var preds []interface{}
	if filter.Category != "" {
		preds = append(preds, recordstore.Eq(fieldActivityCategory, string(filter.Category)))
	}
	if filter.Level > 0 {
		preds = append(preds, recordstore.Eq(fieldActivityLevel, strconv.Itoa(filter.Level)))
	}
	if filter.Search != "" {
		preds = append(preds, recordstore.Contains(fieldActivityName, filter.Search))
	}
	var tree *recordstore.Filter
	if len(preds) > 0 {
		tree = recordstore.And(preds...)
	}

	page := recordstore.Page{
		Number:      filter.Page,
		RowsPerPage: filter.PageSize,
		SortField:   sortField(filter.SortBy),
		SortOrder:   filter.SortOrder,
	}

	records, info, err := r.store.Read(ctx, activitiesCollection, tree, page)
	if err != nil {
		return nil, nil, err
	}

	activities := make([]models.Activity, 0, len(records))
	for _, rec := range records {
		activity, err := decodeActivity(rec)
		if err != nil {
			return nil, nil, err
		}
		activities = append(activities, activity)
	}

	pagination := &models.Pagination{
		Page:       info.CurrentPage,
		PageSize:   page.RowsPerPage,
		TotalCount: info.TotalRecords,
	}
	return activities, pagination, nil
}

// FindByID fetches a single activity.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	records, _, err := r.store.Read(ctx, activitiesCollection, recordstore.And(recordstore.Eq("id", id)), recordstore.Page{RowsPerPage: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}
	activity, err := decodeActivity(records[0])
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func decodeActivity(rec recordstore.Record) (models.Activity, error) {
	name, err := rec.String(fieldActivityName)
	if err != nil {
		return models.Activity{}, err
	}
	category := models.Category(rec.StringOr(fieldActivityCategory, ""))
	if !category.Valid() {
		return models.Activity{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("activity %s: unknown category %q", rec.ID(), category))
	}

	return models.Activity{
		ID:           rec.ID(),
		Name:         name,
		Category:     category,
		Level:        rec.IntOr(fieldActivityLevel, 2),
		Description:  rec.StringOr(fieldActivityDescription, ""),
		Instructions: rec.StringOr(fieldActivityInstructions, ""),
		VideoURL:     rec.StringOr(fieldActivityVideo, ""),
		SlidesURL:    rec.StringOr(fieldActivitySlides, ""),
		PDFURL:       rec.StringOr(fieldActivityPDF, ""),
		ScoreLower:   rec.FloatOr(fieldActivityScoreLower, 0),
		ScoreUpper:   rec.FloatOr(fieldActivityScoreUpper, 10),
	}, nil
}

func sortField(alias string) string {
	switch alias {
	case "name":
		return fieldActivityName
	case "category":
		return fieldActivityCategory
	case "level":
		return fieldActivityLevel
	default:
		return ""
	}
}
