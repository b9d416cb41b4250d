package models

// ResponseStatus tracks the lifecycle of a student's response to an activity.
type ResponseStatus string

const (
	ResponseInProgress ResponseStatus = "in_progress"
	ResponseCompleted  ResponseStatus = "completed"
)

// AnswerValue wraps a stored answer value.
type AnswerValue struct {
	Value string `json:"value"`
}

// AnswerDocument is the storage shape for answers: question id -> cycle key
// ("cycle_<n>") -> value. Repeated cycles for the same question coexist
// under different cycle keys.
type AnswerDocument map[string]map[string]AnswerValue

// Response is the single live answer record for a (student, activity) pair.
// The save pipeline upserts it; it is never appended.
type Response struct {
	ID          string         `json:"id"`
	StudentID   string         `json:"student_id"`
	ActivityID  string         `json:"activity_id"`
	Answers     AnswerDocument `json:"answers"`
	Summary     string         `json:"summary"`
	Status      ResponseStatus `json:"status"`
	Cycle       int            `json:"cycle"`
	CompletedAt string         `json:"completed_at,omitempty"` // dd/mm/yyyy hh:mm, empty until completed
}
