package domain

import "time"

// LogEntry is an immutable line of the activity log.
type LogEntry struct {
	Sequence int
	Text     string
	At       time.Time
}
