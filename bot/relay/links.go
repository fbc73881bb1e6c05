package relay

import "sync"

// DefaultLinkCapacity bounds the reply-link table when no explicit
// capacity is configured.
const DefaultLinkCapacity = 1024

// Links maps outbound message ids (sent to the operator chat) to the
// customer that triggered them, enabling reply-based routing.
//
// The table is size-bounded: when capacity is exceeded the oldest link is
// evicted first, so operators replying to very old messages eventually
// lose the association rather than the process growing without bound.
type Links struct {
	mu    sync.RWMutex
	byMsg map[int]int64
	order []int
	cap   int
}

// NewLinks creates a reply-link table bounded to the given capacity.
// Non-positive capacity falls back to DefaultLinkCapacity.
func NewLinks(capacity int) *Links {
	if capacity <= 0 {
		capacity = DefaultLinkCapacity
	}
	return &Links{
		byMsg: make(map[int]int64),
		cap:   capacity,
	}
}

// Add records a link from an outbound message id to a customer id.
// Reusing an id overwrites the previous association.
func (l *Links) Add(messageID int, userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byMsg[messageID]; !exists {
		l.order = append(l.order, messageID)
	}
	l.byMsg[messageID] = userID

	for len(l.byMsg) > l.cap && len(l.order) > 0 {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.byMsg, oldest)
	}
}

// Lookup returns the customer linked to the outbound message id.
func (l *Links) Lookup(messageID int) (int64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	userID, ok := l.byMsg[messageID]
	return userID, ok
}

// Remove deletes the link for an outbound message id, if present.
func (l *Links) Remove(messageID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byMsg[messageID]; !ok {
		return
	}
	delete(l.byMsg, messageID)
	for i, id := range l.order {
		if id == messageID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of stored links.
func (l *Links) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byMsg)
}
