package flow

import "sync"

// Session is the per-customer conversation record. A fixed struct rather
// than a loose attribute bag: the fields below are the whole state.
type Session struct {
	State     State
	CardSent  bool
	FirstName string
}

// Sessions is an in-memory session store keyed by customer id. All state
// is lost on restart.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[int64]Session)}
}

// Get returns a copy of the customer's session.
func (s *Sessions) Get(userID int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// State returns the customer's current state, StateIdle when absent.
func (s *Sessions) State(userID int64) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID].State
}

// InFlow reports whether the customer is inside the questionnaire.
func (s *Sessions) InFlow(userID int64) bool {
	return s.State(userID).InFlow()
}

// SetState moves the customer to the given state, creating the session
// record if needed.
func (s *Sessions) SetState(userID int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[userID]
	sess.State = state
	s.sessions[userID] = sess
}

// SetFirstName caches the customer's display name for later prompts.
func (s *Sessions) SetFirstName(userID int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[userID]
	sess.FirstName = name
	s.sessions[userID] = sess
}

// MarkCardSent flips the card flag and reports whether this call was the
// one that set it. Test-and-set under the store lock keeps the operator
// card single-shot even with concurrent updates.
func (s *Sessions) MarkCardSent(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[userID]
	if sess.CardSent {
		return false
	}
	sess.CardSent = true
	s.sessions[userID] = sess
	return true
}

// Clear drops the customer's session entirely.
func (s *Sessions) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len reports the number of stored sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
