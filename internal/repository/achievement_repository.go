package repository

import (
	"context"
	"time"

	"github.com/vespa-learn/activity-api/internal/models"
	"github.com/vespa-learn/activity-api/internal/recordstore"
)

// Collection and field keys for the achievement awards object.
const (
	awardsCollection = "object_127"

	fieldAwardStudent     = "field_3520"
	fieldAwardAchievement = "field_3521"
	fieldAwardName        = "field_3522"
	fieldAwardDescription = "field_3523"
	fieldAwardType        = "field_3524"
	fieldAwardIcon        = "field_3525"
	fieldAwardPoints      = "field_3526"
	fieldAwardEarnedAt    = "field_3527"
)

// AchievementRepository persists unlocked achievements. Awards are written
// once and never deleted.
type AchievementRepository struct {
	store Gateway
}

// NewAchievementRepository constructs an achievement repository.
func NewAchievementRepository(store Gateway) *AchievementRepository {
	return &AchievementRepository{store: store}
}

// ListByStudent returns every award the student has earned.
func (r *AchievementRepository) ListByStudent(ctx context.Context, studentID string) ([]models.AchievementAward, error) {
	tree := recordstore.And(recordstore.Eq(fieldAwardStudent, studentID))
	records, _, err := r.store.Read(ctx, awardsCollection, tree, recordstore.Page{})
	if err != nil {
		return nil, err
	}

	awards := make([]models.AchievementAward, 0, len(records))
	for _, rec := range records {
		awards = append(awards, decodeAward(rec, studentID))
	}
	return awards, nil
}

// Create persists a new award and fills in its assigned id.
func (r *AchievementRepository) Create(ctx context.Context, award *models.AchievementAward) error {
	fields := map[string]interface{}{
		fieldAwardStudent:     []string{award.StudentID},
		fieldAwardAchievement: award.AchievementID,
		fieldAwardName:        award.Name,
		fieldAwardDescription: award.Description,
		fieldAwardType:        award.Type,
		fieldAwardIcon:        award.Icon,
		fieldAwardPoints:      award.Points,
		fieldAwardEarnedAt:    award.EarnedAt.Format(storeTimeLayout),
	}

	rec, err := r.store.Create(ctx, awardsCollection, fields)
	if err != nil {
		return err
	}
	award.ID = rec.ID()
	return nil
}

func decodeAward(rec recordstore.Record, studentID string) models.AchievementAward {
	earned := time.Time{}
	if t := decodeTime(rec.StringOr(fieldAwardEarnedAt, "")); t != nil {
		earned = *t
	}

	return models.AchievementAward{
		ID:            rec.ID(),
		StudentID:     studentID,
		AchievementID: rec.StringOr(fieldAwardAchievement, ""),
		Name:          rec.StringOr(fieldAwardName, ""),
		Description:   rec.StringOr(fieldAwardDescription, ""),
		Type:          rec.StringOr(fieldAwardType, ""),
		Icon:          rec.StringOr(fieldAwardIcon, ""),
		Points:        rec.IntOr(fieldAwardPoints, 0),
		EarnedAt:      earned,
	}
}
