package analysis

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fived/therapists/internal/auth"
	"github.com/fived/therapists/internal/questionnaire"
	"github.com/fived/therapists/internal/scoring"
)

type Service interface {
	Catalog() *questionnaire.Catalog
	Score(answers AnswerSet) scoring.Result
	Submit(ctx context.Context, patientID uuid.UUID, answers AnswerSet) (*Submission, error)

	StartSession(ctx context.Context, patientID uuid.UUID) (*Session, error)
	Session(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	RecordAnswer(ctx context.Context, sessionID uuid.UUID, questionID, value string) error
	SubmitSession(ctx context.Context, sessionID uuid.UUID) (*Submission, error)
	DiscardSession(ctx context.Context, sessionID uuid.UUID) error

	GetHistory(ctx context.Context, patientID uuid.UUID) (*History, error)
	GetAnalysis(ctx context.Context, patientID, analysisID uuid.UUID) (*Record, error)
	Trend(ctx context.Context, patientID uuid.UUID) (*Trend, error)
}

type scoreFunc func(answers map[string]string, catalog *questionnaire.Catalog) scoring.Result

type service struct {
	repo     Repository
	catalog  *questionnaire.Catalog
	sessions *SessionStore
	log      logrus.FieldLogger
	score    scoreFunc
}

func NewService(repo Repository, catalog *questionnaire.Catalog, sessions *SessionStore, log logrus.FieldLogger) Service {
	return &service{
		repo:     repo,
		catalog:  catalog,
		sessions: sessions,
		log:      log,
		score:    scoring.ComputeResults,
	}
}

func (s *service) Catalog() *questionnaire.Catalog {
	return s.catalog
}

// Score is a side-effect free preview; answers may be partial.
func (s *service) Score(answers AnswerSet) scoring.Result {
	return s.score(answers, s.catalog)
}

func (s *service) Submit(ctx context.Context, patientID uuid.UUID, answers AnswerSet) (*Submission, error) {
	return s.submit(ctx, patientID, answers.Clone(), func(State) {})
}

// submit runs validation, scoring, persistence and the flag update. onState
// is told when the pipeline enters a new lifecycle state.
func (s *service) submit(ctx context.Context, patientID uuid.UUID, answers AnswerSet, onState func(State)) (*Submission, error) {
	log := s.log.WithField("patient_id", patientID)

	// 1. Validate; nothing reaches the repository for an incomplete form
	if err := Validate(answers, s.catalog); err != nil {
		log.WithError(err).Info("analysis submission rejected")
		return nil, err
	}

	// 2. Score
	result := s.score(answers, s.catalog)

	// 3. Guard the result invariant before anything is written
	if err := result.Validate(); err != nil {
		log.WithError(err).WithField("categories", result.Categories).Error("scoring produced an invalid result, submission blocked")
		return nil, &InvalidResultError{Reason: err}
	}

	// 4. Persist
	onState(StateSubmitting)
	rec, err := s.repo.InsertAnalysis(ctx, Record{
		PatientID:       patientID,
		Answers:         answers,
		Results:         Results{Categories: result.Categories},
		Recommendations: result.Recommendations,
	})
	if err != nil {
		log.WithError(err).Error("failed to save analysis")
		return nil, &PersistenceError{Op: "save analysis", Err: err}
	}
	log = log.WithField("analysis_id", rec.ID)

	// 5. Flag the patient; the analysis is already durable so this only warns
	sub := &Submission{Record: rec}
	if err := s.repo.UpdatePatientFlag(ctx, patientID, true); err != nil {
		sub.Warning = &FlagUpdateWarning{PatientID: patientID, Err: err}
		log.WithError(err).Warn("analysis saved but patient flag update failed")
	}

	log.Info("analysis saved")
	return sub, nil
}

func (s *service) StartSession(ctx context.Context, patientID uuid.UUID) (*Session, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	sess := s.sessions.create(patientID, userID)
	s.log.WithFields(logrus.Fields{"session_id": sess.ID, "patient_id": patientID}).Debug("analysis session started")
	return sess, nil
}

func (s *service) Session(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.sessions.get(sessionID, userID)
}

func (s *service) RecordAnswer(ctx context.Context, sessionID uuid.UUID, questionID, value string) error {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	return sess.RecordAnswer(questionID, value)
}

func (s *service) SubmitSession(ctx context.Context, sessionID uuid.UUID) (*Submission, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	answers, err := sess.begin()
	if err != nil {
		return nil, err
	}

	sub, err := s.submit(ctx, sess.PatientID, answers, sess.advance)
	if err != nil {
		sess.rollback()
		return nil, err
	}
	sess.complete(sub.Record)
	s.sessions.remove(sess.ID)
	return sub, nil
}

// DiscardSession abandons a session. Nothing was written, so nothing is undone.
func (s *service) DiscardSession(ctx context.Context, sessionID uuid.UUID) error {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := sess.discard(); err != nil {
		return err
	}
	s.sessions.remove(sess.ID)
	return nil
}

func (s *service) GetHistory(ctx context.Context, patientID uuid.UUID) (*History, error) {
	records, err := s.repo.ListAnalyses(ctx, patientID)
	if err != nil {
		s.log.WithError(err).WithField("patient_id", patientID).Error("failed to load analyses")
		return nil, &PersistenceError{Op: "load analyses", Err: err}
	}
	return NewHistory(records), nil
}

// NewHistory orders records oldest first and picks the newest record that
// has category scores as current.
func NewHistory(records []Record) *History {
	sorted := append([]Record{}, records...)
	sortByCreatedAt(sorted)

	h := &History{Records: sorted}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].Results.HasCategories() {
			current := sorted[i]
			h.Current = &current
			break
		}
	}
	return h
}

func (s *service) GetAnalysis(ctx context.Context, patientID, analysisID uuid.UUID) (*Record, error) {
	h, err := s.GetHistory(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for i := range h.Records {
		if h.Records[i].ID == analysisID {
			return &h.Records[i], nil
		}
	}
	return nil, ErrAnalysisNotFound
}

func (s *service) Trend(ctx context.Context, patientID uuid.UUID) (*Trend, error) {
	h, err := s.GetHistory(ctx, patientID)
	if err != nil {
		return nil, err
	}
	trend := ComputeTrend(h.Records)
	return &trend, nil
}
