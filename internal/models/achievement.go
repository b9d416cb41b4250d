package models

import "time"

// Criterion is a minimum threshold on a named student statistic. A catalog
// entry with several criteria requires all of them (implicit AND).
type Criterion struct {
	Stat string `json:"stat"`
	Min  int    `json:"min"`
}

// Achievement is a static catalog entry describing an unlockable badge.
type Achievement struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        string      `json:"type"`
	Icon        string      `json:"icon"`
	Points      int         `json:"points"`
	Criteria    []Criterion `json:"criteria"`
}

// AchievementAward is the persisted unlock for one student. Unlocks are
// monotonic: never deleted, never duplicated.
type AchievementAward struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student_id"`
	AchievementID string    `json:"achievement_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Type          string    `json:"type"`
	Icon          string    `json:"icon"`
	Points        int       `json:"points"`
	EarnedAt      time.Time `json:"earned_at"`
}

// Statistic names understood by the evaluator.
const (
	StatActivitiesCompleted = "activities_completed"
	StatTotalPoints         = "total_points"
	StatWordsWritten        = "words_written"
)

// StudentStats holds the cumulative counters achievements are judged on.
type StudentStats struct {
	ActivitiesCompleted int `json:"activities_completed"`
	TotalPoints         int `json:"total_points"`
	WordsWritten        int `json:"words_written"`
}

// Value resolves a named statistic. Unknown names report false so that a
// catalog entry referencing a stat this build does not track never unlocks.
func (s StudentStats) Value(name string) (int, bool) {
	switch name {
	case StatActivitiesCompleted:
		return s.ActivitiesCompleted, true
	case StatTotalPoints:
		return s.TotalPoints, true
	case StatWordsWritten:
		return s.WordsWritten, true
	default:
		return 0, false
	}
}
