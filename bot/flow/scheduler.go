package flow

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/relaybot/core/logger"
)

// reminderItem is a pending one-shot reminder for a single customer.
type reminderItem struct {
	id       string
	userID   int64
	expected State
	timer    *time.Timer
}

// Scheduler keeps at most one pending reminder per customer. Transitions
// cancel the pending item explicitly; the fire callback additionally
// re-checks session state, so a timer that slips past cancellation is
// still a no-op.
type Scheduler struct {
	mu    sync.Mutex
	items map[int64]*reminderItem
}

// NewScheduler creates an empty reminder scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{items: make(map[int64]*reminderItem)}
}

// Schedule replaces any pending reminder for the customer with a new one
// firing after delay. The expected state is recorded for logging; the
// callback receives the item id and runs on the timer goroutine.
func (s *Scheduler) Schedule(userID int64, expected State, delay time.Duration, fire func(itemID string)) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.items[userID]; ok {
		prev.timer.Stop()
		delete(s.items, userID)
	}

	item := &reminderItem{
		id:       uuid.NewString(),
		userID:   userID,
		expected: expected,
	}
	item.timer = time.AfterFunc(delay, func() {
		if !s.claim(userID, item.id) {
			return
		}
		fire(item.id)
	})
	s.items[userID] = item

	logger.FLOW.Debug("reminder scheduled",
		slog.String("event", "reminder.scheduled"),
		slog.String("reminder_id", item.id),
		slog.Int64("user_id", userID),
		slog.String("state", string(expected)),
		slog.Duration("delay", delay),
	)
	return item.id
}

// claim removes the item if it is still the current one for the customer.
// Returns false when the item was cancelled or superseded.
func (s *Scheduler) claim(userID int64, itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[userID]
	if !ok || item.id != itemID {
		return false
	}
	delete(s.items, userID)
	return true
}

// Cancel drops the customer's pending reminder, if any.
func (s *Scheduler) Cancel(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[userID]
	if !ok {
		return
	}
	item.timer.Stop()
	delete(s.items, userID)
	logger.FLOW.Debug("reminder cancelled",
		slog.String("event", "reminder.cancelled"),
		slog.String("reminder_id", item.id),
		slog.Int64("user_id", userID),
	)
}

// Pending reports whether the customer has a reminder scheduled.
func (s *Scheduler) Pending(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[userID]
	return ok
}

// Stop cancels every pending reminder. Used on shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, item := range s.items {
		item.timer.Stop()
		delete(s.items, userID)
	}
}
