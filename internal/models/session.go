package models

import (
	"fmt"
	"time"
)

// SessionState is the conversational state of one (user, thread) pair.
type SessionState string

const (
	// StateIdle means no document is locked; fresh queries are accepted.
	StateIdle SessionState = "idle"
	// StateActive means a document is locked; navigation and follow-ups are accepted.
	StateActive SessionState = "active"
	// StatePaused means the user signaled completion; only "resume" or a new
	// top-level query reactivates the thread.
	StatePaused SessionState = "paused"
)

// SessionKey identifies one conversation: a user inside a chat thread.
type SessionKey struct {
	UserID   string
	ThreadID string
}

// String returns the key in the form used in the persisted session file.
func (k SessionKey) String() string {
	return k.UserID + "\t" + k.ThreadID
}

// ParseSessionKey parses the persisted form of a session key.
func ParseSessionKey(s string) (SessionKey, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\t' {
			return SessionKey{UserID: s[:i], ThreadID: s[i+1:]}, nil
		}
	}
	return SessionKey{}, fmt.Errorf("malformed session key %q", s)
}

// Session is the conversational state for one key.
//
// LockedDoc is set if and only if the session has reached active with a
// successful answer; CurrentStep is meaningful only when LockedDoc is set.
type Session struct {
	State       SessionState `json:"state"`
	LockedDoc   string       `json:"locked_doc,omitempty"`
	CurrentStep int          `json:"current_step,omitempty"`
	LastLogID   string       `json:"last_log_id,omitempty"`
	UpdatedAt   time.Time    `json:"timestamp"`
}

// NewSession returns a fresh idle session stamped now.
func NewSession() *Session {
	return &Session{State: StateIdle, UpdatedAt: time.Now()}
}

// Expired reports whether the session is older than ttl.
func (s *Session) Expired(ttl time.Duration) bool {
	return time.Since(s.UpdatedAt) > ttl
}

// Reset clears all fields except the timestamp, returning the session to idle.
func (s *Session) Reset() {
	s.State = StateIdle
	s.LockedDoc = ""
	s.CurrentStep = 0
	s.LastLogID = ""
	s.UpdatedAt = time.Now()
}

// Touch refreshes the TTL timestamp.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now()
}
