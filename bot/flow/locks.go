package flow

import "sync"

// perUserLocks serializes message handling for a single customer so two
// rapid updates cannot interleave one customer's transitions. The lock
// set grows with the session map and is dropped with the process.
type perUserLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newPerUserLocks() *perUserLocks {
	return &perUserLocks{locks: make(map[int64]*sync.Mutex)}
}

func (p *perUserLocks) get(userID int64) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[userID] = l
	}
	return l
}
