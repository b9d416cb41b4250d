package models

// Stage is one step of the activity wizard.
type Stage string

const (
	StageIntro    Stage = "intro"
	StageLearn    Stage = "learn"
	StageDo       Stage = "do"
	StageReflect  Stage = "reflect"
	StageComplete Stage = "complete"
)

// StageOrder is the fixed linear progression of the wizard.
var StageOrder = []Stage{StageIntro, StageLearn, StageDo, StageReflect, StageComplete}

// StageIndex returns the position of the stage in the progression, or -1.
func StageIndex(s Stage) int {
	for i, stage := range StageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// Valid reports whether the stage is part of the wizard progression.
func (s Stage) Valid() bool { return StageIndex(s) >= 0 }

// QuestionsPerPage is the fixed page size of the "do" stage.
const QuestionsPerPage = 2
