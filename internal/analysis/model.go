package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/fived/therapists/internal/scoring"
)

// AnswerSet maps a question id to the selected option value ("1".."5").
type AnswerSet map[string]string

// Clone returns an independent copy.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Results is the persisted part of a scoring result.
type Results struct {
	Categories scoring.Scores `json:"categories"`
}

// HasCategories reports whether the record can be charted.
func (r Results) HasCategories() bool {
	return len(r.Categories) > 0
}

// Record is a persisted, immutable analysis. It belongs to exactly one
// patient; ID and CreatedAt are assigned by the repository.
type Record struct {
	ID              uuid.UUID `json:"id" db:"id"`
	PatientID       uuid.UUID `json:"patient_id" db:"patient_id"`
	UserID          string    `json:"user_id" db:"user_id"`
	Answers         AnswerSet `json:"answers" db:"answers"`
	Results         Results   `json:"results" db:"results"`
	Recommendations []string  `json:"recommendations" db:"recommendations"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Submission is the outcome of a successful submit. Warning is set when the
// record was saved but a secondary update failed.
type Submission struct {
	Record  Record
	Warning *FlagUpdateWarning
}

// History is every record of a patient in ascending creation order plus the
// record to display as current.
type History struct {
	Records []Record `json:"analyses"`
	Current *Record  `json:"current"`
}
