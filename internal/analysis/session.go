package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a step of the analysis lifecycle.
type State string

const (
	StateCollecting State = "collecting"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StatePersisted  State = "persisted"
	StateDiscarded  State = "discarded"
)

// Session owns the in-progress answers of one questionnaire run.
type Session struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	UserID    string
	CreatedAt time.Time

	mu       sync.Mutex
	state    State
	answers  AnswerSet
	record   *Record
	now      func() time.Time
	lastSeen time.Time
}

func newSession(patientID uuid.UUID, userID string) *Session {
	return newSessionAt(patientID, userID, time.Now)
}

func newSessionAt(patientID uuid.UUID, userID string, now func() time.Time) *Session {
	t := now()
	return &Session{
		ID:        uuid.New(),
		PatientID: patientID,
		UserID:    userID,
		CreatedAt: t,
		state:     StateCollecting,
		answers:   AnswerSet{},
		now:       now,
		lastSeen:  t,
	}
}

// RecordAnswer sets the answer for questionID; the last write wins. Values
// are checked only when the session is submitted.
func (s *Session) RecordAnswer(questionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateCollecting:
		s.answers[questionID] = value
		s.lastSeen = s.now()
		return nil
	case StateValidating, StateSubmitting:
		return ErrSubmissionInFlight
	default:
		return ErrSessionClosed
	}
}

// SessionView is a point-in-time copy of a session.
type SessionView struct {
	ID         uuid.UUID  `json:"id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	State      State      `json:"state"`
	Answers    AnswerSet  `json:"answers"`
	AnalysisID *uuid.UUID `json:"analysis_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := SessionView{
		ID:        s.ID,
		PatientID: s.PatientID,
		State:     s.state,
		Answers:   s.answers.Clone(),
		CreatedAt: s.CreatedAt,
	}
	if s.record != nil {
		id := s.record.ID
		v.AnalysisID = &id
	}
	return v
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// begin moves a collecting session to validating and hands out a copy of
// its answers.
func (s *Session) begin() (AnswerSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateCollecting:
		s.state = StateValidating
		s.lastSeen = s.now()
		return s.answers.Clone(), nil
	case StateValidating, StateSubmitting:
		return nil, ErrSubmissionInFlight
	default:
		return nil, ErrSessionClosed
	}
}

func (s *Session) advance(to State) {
	s.mu.Lock()
	s.state = to
	s.lastSeen = s.now()
	s.mu.Unlock()
}

// rollback returns a failed submission to collecting. Answers were never
// modified, so the user can fix or retry without re-entering them.
func (s *Session) rollback() {
	s.advance(StateCollecting)
}

func (s *Session) complete(rec Record) {
	s.mu.Lock()
	s.state = StatePersisted
	s.record = &rec
	s.mu.Unlock()
}

// discard abandons a collecting session. The state check and the
// transition happen under one lock so a concurrent begin cannot slip in.
func (s *Session) discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateCollecting:
		s.state = StateDiscarded
		return nil
	case StateValidating, StateSubmitting:
		return ErrSubmissionInFlight
	default:
		return ErrSessionClosed
	}
}

// expired reports whether a collecting session has been idle longer than
// ttl. Sessions with a submission running never expire.
func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateValidating || s.state == StateSubmitting {
		return false
	}
	return now.Sub(s.lastSeen) > ttl
}

// DefaultSessionTTL is how long an untouched session is kept.
const DefaultSessionTTL = 2 * time.Hour

// SessionStore keeps open sessions in memory, keyed by id. Sessions idle
// for longer than the TTL are dropped; abandoning a questionnaire is
// otherwise silent.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore returns a store evicting sessions idle for ttl, or
// DefaultSessionTTL when ttl is not positive.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (st *SessionStore) create(patientID uuid.UUID, userID string) *Session {
	s := newSessionAt(patientID, userID, st.now)
	st.mu.Lock()
	st.sweepLocked()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// get returns the session only to the user who opened it.
func (st *SessionStore) get(id uuid.UUID, userID string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if s.expired(st.now(), st.ttl) {
		st.remove(id)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Sweep drops every expired session and returns how many were removed.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sweepLocked()
}

func (st *SessionStore) sweepLocked() int {
	now := st.now()
	n := 0
	for id, s := range st.sessions {
		if s.expired(now, st.ttl) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// RunJanitor sweeps every interval until ctx is done.
func (st *SessionStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

func (st *SessionStore) remove(id uuid.UUID) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len is the number of open sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
