package analysis

import (
	"strconv"
	"strings"

	"github.com/fived/therapists/internal/questionnaire"
)

// IsComplete reports whether every catalog question has a non-empty answer.
// Keys that are not in the catalog are ignored.
func IsComplete(answers AnswerSet, catalog *questionnaire.Catalog) bool {
	for _, category := range catalog.Categories() {
		for _, q := range catalog.Questions(category) {
			if answers[q.ID] == "" {
				return false
			}
		}
	}
	return true
}

// Validate returns an *IncompleteFormError when a catalog question is
// unanswered or its value is not one of the question's options.
func Validate(answers AnswerSet, catalog *questionnaire.Catalog) error {
	var missing, invalid []string
	for _, category := range catalog.Categories() {
		for _, q := range catalog.Questions(category) {
			raw := answers[q.ID]
			if raw == "" {
				missing = append(missing, q.ID)
				continue
			}
			v, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || !q.Accepts(v) {
				invalid = append(invalid, q.ID)
			}
		}
	}
	if len(missing) > 0 || len(invalid) > 0 {
		return &IncompleteFormError{Missing: missing, Invalid: invalid}
	}
	return nil
}

// Progress counts the catalog questions answered so far.
func Progress(answers AnswerSet, catalog *questionnaire.Catalog) (answered, total int) {
	for _, category := range catalog.Categories() {
		for _, q := range catalog.Questions(category) {
			total++
			if answers[q.ID] != "" {
				answered++
			}
		}
	}
	return answered, total
}
