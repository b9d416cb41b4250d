package models

// Student represents a learner known to the record store.
type Student struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Group    string `json:"group,omitempty"`
	YearGrp  string `json:"year_group,omitempty"`
	Active   bool   `json:"active"`
}

// VESPAScores caches the five derived category scores (0-10 each).
type VESPAScores struct {
	Vision   float64 `json:"vision"`
	Effort   float64 `json:"effort"`
	Systems  float64 `json:"systems"`
	Practice float64 `json:"practice"`
	Attitude float64 `json:"attitude"`
}

// Score returns the cached score for the given category.
func (v VESPAScores) Score(c Category) float64 {
	switch c {
	case CategoryVision:
		return v.Vision
	case CategoryEffort:
		return v.Effort
	case CategorySystems:
		return v.Systems
	case CategoryPractice:
		return v.Practice
	case CategoryAttitude:
		return v.Attitude
	default:
		return 0
	}
}

// StudentActivityLink is the per-student activity state: the prescribed and
// finished identifier sets plus cached VESPA scores.
type StudentActivityLink struct {
	StudentID  string      `json:"student_id"`
	Prescribed []string    `json:"prescribed"`
	Finished   []string    `json:"finished"`
	Scores     VESPAScores `json:"scores"`
}

// PrescribedCount returns the number of prescribed activities.
func (l StudentActivityLink) PrescribedCount() int { return len(l.Prescribed) }

// FinishedCount returns the number of finished activities.
func (l StudentActivityLink) FinishedCount() int { return len(l.Finished) }

// HasPrescribed reports whether the activity is in the prescribed set.
func (l StudentActivityLink) HasPrescribed(activityID string) bool {
	return contains(l.Prescribed, activityID)
}

// HasFinished reports whether the activity is in the finished set.
func (l StudentActivityLink) HasFinished(activityID string) bool {
	return contains(l.Finished, activityID)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Group     string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
