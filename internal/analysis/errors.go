package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound    = errors.New("analysis session not found")
	ErrSessionClosed      = errors.New("analysis session is closed")
	ErrSubmissionInFlight = errors.New("analysis submission already in progress")
	ErrAnalysisNotFound   = errors.New("analysis not found")
	ErrPatientNotFound    = errors.New("patient not found")
)

// IncompleteFormError blocks a submission until the listed questions have
// valid answers.
type IncompleteFormError struct {
	Missing []string
	Invalid []string
}

func (e *IncompleteFormError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "unanswered: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid value: "+strings.Join(e.Invalid, ", "))
	}
	return "incomplete form (" + strings.Join(parts, "; ") + ")"
}

// InvalidResultError means scoring produced data that must never be stored.
type InvalidResultError struct {
	Reason error
}

func (e *InvalidResultError) Error() string {
	return fmt.Sprintf("invalid analysis result: %v", e.Reason)
}

func (e *InvalidResultError) Unwrap() error { return e.Reason }

// PersistenceError wraps a repository failure. The caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// FlagUpdateWarning reports that the analysis was saved but the patient's
// has_analysis flag could not be set.
type FlagUpdateWarning struct {
	PatientID uuid.UUID
	Err       error
}

func (e *FlagUpdateWarning) Error() string {
	return fmt.Sprintf("analysis saved, but updating patient %s failed: %v", e.PatientID, e.Err)
}

func (e *FlagUpdateWarning) Unwrap() error { return e.Err }
