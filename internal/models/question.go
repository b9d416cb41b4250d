package models

// InputKind describes how a question collects its answer.
type InputKind string

const (
	InputFreeText     InputKind = "free_text"
	InputParagraph    InputKind = "paragraph"
	InputSingleSelect InputKind = "single_select"
)

// Question belongs to exactly one activity. Reflective questions form the
// "reflect" group of the wizard; the rest form the "do" group.
type Question struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activity_id"`
	Order      int       `json:"order"`
	Prompt     string    `json:"prompt"`
	Kind       InputKind `json:"kind"`
	Options    []string  `json:"options,omitempty"`
	Required   bool      `json:"required"`
	Reflective bool      `json:"reflective"`
}
