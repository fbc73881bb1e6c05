package relay

import "sync"

// ActiveSession tracks the single customer currently targeted by operator
// messages that are not explicit replies. The slot reflects the
// single-operator design: no history, no multi-value support.
type ActiveSession struct {
	mu     sync.Mutex
	userID int64
	set    bool
}

// NewActiveSession returns an empty active-session slot.
func NewActiveSession() *ActiveSession {
	return &ActiveSession{}
}

// Set unconditionally overwrites the slot with the given customer.
func (s *ActiveSession) Set(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.set = true
}

// Active returns the current customer, if any.
func (s *ActiveSession) Active() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.set
}

// Clear empties the slot.
func (s *ActiveSession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = 0
	s.set = false
}
