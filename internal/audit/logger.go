// Package audit records credential access events.
package audit

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Entry records one credential access. Secret values are never recorded.
type Entry struct {
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"user_id"`
	CredentialID int       `json:"credential_id"`
	Action       string    `json:"action"` // "reveal", "refresh", "login", "logout"
}

// Log is a capped in-memory access log mirrored to the structured logger.
// It is session-scoped, like the rest of the vault's state.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	cap     int
}

// NewLog creates a Log retaining at most capacity entries.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 256
	}
	return &Log{cap: capacity}
}

// Record appends an entry, evicting the oldest past capacity.
func (l *Log) Record(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	log.Info().
		Str("user_id", e.UserID).
		Int("credential_id", e.CredentialID).
		Str("action", e.Action).
		Time("at", e.Timestamp).
		Msg("credential access")

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
}

// Entries returns a copy of the recorded entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
