package core

import (
	"sync"
	"time"
)

// Session binds a caller's conversation to its upstream thread so repeated
// turns of one conversation share remote state. It is safe for concurrent
// access.
//
// Contract:
//   - ThreadID is empty until the first turn resolves a thread upstream
//   - Mutations update the Updated timestamp
//   - Clone performs deep copies for safe divergence
type Session struct {
	ID       string            `json:"id"`
	ThreadID string            `json:"thread_id,omitempty"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`
	Metadata map[string]string `json:"metadata,omitempty"`
	mu       sync.RWMutex
}

// NewSession creates a new session with the given ID and no thread binding.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{ID: id, Created: now, Updated: now, Metadata: map[string]string{}}
}

// Thread returns the bound upstream thread id, or "" when unbound.
func (s *Session) Thread() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ThreadID
}

// BindThread records the upstream thread id updating the Updated timestamp.
func (s *Session) BindThread(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ThreadID = threadID
	s.Updated = time.Now()
}

// SetMetadata sets a key/value pair updating the Updated timestamp.
func (s *Session) SetMetadata(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Metadata[key] = value
	s.Updated = time.Now()
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{ID: s.ID, ThreadID: s.ThreadID, Created: s.Created, Updated: s.Updated, Metadata: make(map[string]string, len(s.Metadata))}
	for k, v := range s.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}

// SessionStore persists the conversation -> thread bindings.
type SessionStore interface {
	// Get returns the session for id, lazily creating an unbound one.
	Get(id string) (*Session, error)
	// BindThread attaches an upstream thread id to the session, creating the
	// session when absent.
	BindThread(id, threadID string) error
	// Delete removes the session; deleting an unknown id is not an error.
	Delete(id string) error
}
