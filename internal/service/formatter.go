package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vespa-learn/activity-api/internal/models"
)

// CycleKey returns the storage key under which one cycle's answer lives.
func CycleKey(cycle int) string {
	return fmt.Sprintf("cycle_%d", cycle)
}

// FormatAnswers converts an in-memory answer map into the storage shape for
// one cycle: question id -> {"cycle_<n>": {"value": ...}}. Pure.
func FormatAnswers(answers map[string]string, cycle int) models.AnswerDocument {
	doc := make(models.AnswerDocument, len(answers))
	key := CycleKey(cycle)
	for qid, value := range answers {
		doc[qid] = map[string]models.AnswerValue{key: {Value: value}}
	}
	return doc
}

// MergeAnswers writes one cycle's answers into an existing document. Other
// cycles' answers coexist under their own cycle keys and are never lost.
func MergeAnswers(doc models.AnswerDocument, answers map[string]string, cycle int) models.AnswerDocument {
	if doc == nil {
		doc = models.AnswerDocument{}
	}
	key := CycleKey(cycle)
	for qid, value := range answers {
		if doc[qid] == nil {
			doc[qid] = map[string]models.AnswerValue{}
		}
		doc[qid][key] = models.AnswerValue{Value: value}
	}
	return doc
}

// ExtractCycle pulls one cycle's answers back out of the storage shape.
func ExtractCycle(doc models.AnswerDocument, cycle int) map[string]string {
	answers := map[string]string{}
	key := CycleKey(cycle)
	for qid, cycles := range doc {
		if v, ok := cycles[key]; ok {
			answers[qid] = v.Value
		}
	}
	return answers
}

// Summarize renders answers as "Q<id>: <answer>" lines for human-readable
// storage, skipping blank answers. Lines are ordered by question id so the
// output is deterministic.
func Summarize(answers map[string]string) string {
	ids := make([]string, 0, len(answers))
	for qid, value := range answers {
		if strings.TrimSpace(value) == "" {
			continue
		}
		ids = append(ids, qid)
	}
	sort.Strings(ids)

	lines := make([]string, 0, len(ids))
	for _, qid := range ids {
		lines = append(lines, fmt.Sprintf("Q%s: %s", qid, answers[qid]))
	}
	return strings.Join(lines, "\n")
}

// CountWords counts whitespace-separated words across all answers.
func CountWords(answers map[string]string) int {
	total := 0
	for _, value := range answers {
		total += len(strings.Fields(value))
	}
	return total
}
