package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-learn/activity-api/internal/models"
)

func TestFormatAnswers_WrapsUnderCycleKey(t *testing.T) {
	doc := FormatAnswers(map[string]string{"q1": "alpha", "q2": "beta"}, 2)

	require.Len(t, doc, 2)
	assert.Equal(t, "alpha", doc["q1"]["cycle_2"].Value)
	assert.Equal(t, "beta", doc["q2"]["cycle_2"].Value)
	_, hasOther := doc["q1"]["cycle_1"]
	assert.False(t, hasOther)
}

func TestMergeAnswers_PreservesOtherCycles(t *testing.T) {
	doc := FormatAnswers(map[string]string{"q1": "first pass"}, 1)

	doc = MergeAnswers(doc, map[string]string{"q1": "second pass", "q2": "new"}, 2)

	assert.Equal(t, "first pass", doc["q1"]["cycle_1"].Value)
	assert.Equal(t, "second pass", doc["q1"]["cycle_2"].Value)
	assert.Equal(t, "new", doc["q2"]["cycle_2"].Value)
}

func TestMergeAnswers_NilDocument(t *testing.T) {
	doc := MergeAnswers(nil, map[string]string{"q1": "v"}, 1)
	assert.Equal(t, "v", doc["q1"]["cycle_1"].Value)
}

func TestExtractCycle_RoundTrips(t *testing.T) {
	answers := map[string]string{"q1": "one", "q2": "two"}
	doc := FormatAnswers(answers, 3)

	assert.Equal(t, answers, ExtractCycle(doc, 3))
	assert.Empty(t, ExtractCycle(doc, 1))
}

func TestSummarize_OrderedAndSkipsBlanks(t *testing.T) {
	summary := Summarize(map[string]string{
		"q2": "beta",
		"q1": "alpha",
		"q3": "   ",
	})

	assert.Equal(t, "Qq1: alpha\nQq2: beta", summary)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, "", Summarize(nil))
	assert.Equal(t, "", Summarize(map[string]string{"q1": ""}))
}

func TestCountWords(t *testing.T) {
	answers := map[string]string{
		"q1": "three simple words",
		"q2": "  two\twords ",
		"q3": "",
	}
	assert.Equal(t, 5, CountWords(answers))
}

func TestAnswerDocumentShape(t *testing.T) {
	var doc models.AnswerDocument = FormatAnswers(map[string]string{"q9": "x"}, 1)
	cycles, ok := doc["q9"]
	require.True(t, ok)
	assert.Contains(t, cycles, "cycle_1")
}
