package collab

import (
	"sync"
	"sync/atomic"
	"time"
)

// one live document session
// mu is the serialization point for every mutation and every publish
type Session struct {
	mu     sync.Mutex
	state  *State
	router *Router

	// set once the archived thread has been restored
	threadLoaded bool

	// zero while participants are present
	emptySince time.Time

	closed atomic.Bool
}

func newSession(documentID string, now time.Time) *Session {
	state := NewState(documentID, now)

	return &Session{
		state:      state,
		router:     NewRouter(documentID, state.Presence),
		emptySince: now,
	}
}

func (s *Session) DocumentID() string {
	return s.state.DocumentID
}

// returns a copy of the session state
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.snapshot()
}

func (s *Session) Summary() SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.summary()
}

// reports whether the session was removed from its registry
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// closes the session if it is empty and ready, must be called with mu held
func (s *Session) closeIfLocked(ready func(*Session) bool) bool {
	if s.closed.Load() || !s.state.empty() {
		return false
	}

	if ready != nil && !ready(s) {
		return false
	}

	s.closed.Store(true)

	return true
}
