package models

// Category is one of the five fixed learning dimensions an activity belongs to.
type Category string

const (
	CategoryVision   Category = "Vision"
	CategoryEffort   Category = "Effort"
	CategorySystems  Category = "Systems"
	CategoryPractice Category = "Practice"
	CategoryAttitude Category = "Attitude"
)

// Categories lists every category in canonical order.
var Categories = []Category{
	CategoryVision,
	CategoryEffort,
	CategorySystems,
	CategoryPractice,
	CategoryAttitude,
}

// Valid reports whether the category is one of the five known dimensions.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Activity is a content unit from the external store. Read-only here:
// authoring happens in the external content store.
type Activity struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     Category `json:"category"`
	Level        int      `json:"level"`
	Description  string   `json:"description,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	VideoURL     string   `json:"video_url,omitempty"`
	SlidesURL    string   `json:"slides_url,omitempty"`
	PDFURL       string   `json:"pdf_url,omitempty"`

	// Score gating: the activity is relevant when the student's category
	// score s satisfies ScoreLower < s <= ScoreUpper.
	ScoreLower float64 `json:"score_lower"`
	ScoreUpper float64 `json:"score_upper"`
}

// RelevantFor reports whether the activity should be offered for the given
// category score. Lower bound exclusive, upper bound inclusive.
func (a Activity) RelevantFor(score float64) bool {
	return score > a.ScoreLower && score <= a.ScoreUpper
}

// ActivityFilter encapsulates allowed search parameters for listing activities.
type ActivityFilter struct {
	Category  Category
	Level     int
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CatalogEntry is one row of the static content-catalog document, used to
// enrich activities with media URLs absent from the primary store.
type CatalogEntry struct {
	Name      string `json:"name"`
	VideoURL  string `json:"video_url"`
	SlidesURL string `json:"slides_url"`
	PDFURL    string `json:"pdf_url"`
}
