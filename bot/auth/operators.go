package auth

// Store holds the fixed set of operator identities loaded once at startup.
// Membership never changes during the process lifetime.
type Store struct {
	operators map[int64]struct{}
}

// NewStore builds an operator store from the configured id list.
func NewStore(ids []int64) *Store {
	ops := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		ops[id] = struct{}{}
	}
	return &Store{operators: ops}
}

// IsOperator reports whether the given identity may act as operator.
func (s *Store) IsOperator(userID int64) bool {
	if s == nil {
		return false
	}
	_, ok := s.operators[userID]
	return ok
}

// Len returns the number of configured operators.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.operators)
}
