package models

import "time"

// ProgressStatus tracks the lifecycle of an activity for a student.
type ProgressStatus string

const (
	ProgressAssigned   ProgressStatus = "assigned"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressRemoved    ProgressStatus = "removed"
)

// SelectedVia records how an activity assignment originated.
type SelectedVia string

const (
	SelectedViaStaff   SelectedVia = "staff_assigned"
	SelectedViaReport  SelectedVia = "report_generated"
	SelectedViaStudent SelectedVia = "student_choice"
)

// CompletionPoints is the fixed point value for a completed activity.
const CompletionPoints = 15

// ProgressRecord is an append-mostly audit row, one per activity attempt.
// Unassignment flips Status to removed rather than deleting the row.
type ProgressRecord struct {
	ID           string         `json:"id"`
	StudentID    string         `json:"student_id"`
	ActivityID   string         `json:"activity_id"`
	Cycle        int            `json:"cycle"`
	AssignedAt   *time.Time     `json:"assigned_at,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	MinutesSpent int            `json:"minutes_spent"`
	Status       ProgressStatus `json:"status"`
	Verified     bool           `json:"verified"`
	Points       int            `json:"points"`
	SelectedVia  SelectedVia    `json:"selected_via"`
	WordCount    int            `json:"word_count"`
}
