// Package projection builds the local activity log from events observed by the core.
// Ordering is the order of Append calls; it does not emit events or render anything.
package projection

import (
	"chat-client/domain"
	"sync"
	"time"
)

// ActivityLog is an append-only, ordered record of user-visible events.
// It keeps the full history; truncation for display belongs to the UI.
type ActivityLog struct {
	mu          sync.Mutex
	entries     []domain.LogEntry
	next        int
	subscribers []func(domain.LogEntry)
	now         func() time.Time
}

func NewActivityLog() *ActivityLog {
	return &ActivityLog{now: time.Now}
}

// Append assigns the next sequence number and stores the entry.
// Subscribers are notified after the lock is released.
func (l *ActivityLog) Append(text string) domain.LogEntry {
	l.mu.Lock()
	entry := domain.LogEntry{Sequence: l.next, Text: text, At: l.now()}
	l.next++
	l.entries = append(l.entries, entry)
	subscribers := l.subscribers
	l.mu.Unlock()

	for _, notify := range subscribers {
		notify(entry)
	}
	return entry
}

// Clear empties the log and resets the sequence counter to zero.
func (l *ActivityLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.next = 0
}

// Snapshot returns a copy of the entries at call time.
func (l *ActivityLog) Snapshot() []domain.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := make([]domain.LogEntry, len(l.entries))
	copy(res, l.entries)
	return res
}

func (l *ActivityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Subscribe registers fn to be called with every new entry.
func (l *ActivityLog) Subscribe(fn func(domain.LogEntry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers[:len(l.subscribers):len(l.subscribers)], fn)
}
