package collab

import (
	"sort"
	"sync"
	"time"

	"codeberg.org/docsuite/server/internal/metrics"
)

// maps document ids to live sessions
// mu guards the map only and is never held while a session lock is taken
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// returns the live session for documentID, creating it on first use
func (r *Registry) GetOrCreate(documentID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, exists := r.sessions[documentID]; exists && !s.Closed() {
		return s
	}

	s := newSession(documentID, r.now())
	r.sessions[documentID] = s
	metrics.ActiveSessions.Inc()

	return s
}

// returns the live session for documentID
func (r *Registry) Get(documentID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[documentID]
	if !exists || s.Closed() {
		return nil, false
	}

	return s, true
}

// removes the session if it has no participants and no held lock
func (r *Registry) RemoveIfEmpty(documentID string) bool {
	s, exists := r.Get(documentID)
	if !exists {
		return false
	}

	return r.remove(s, nil)
}

// removes sessions that have been empty for at least grace
func (r *Registry) SweepEmpty(now time.Time, grace time.Duration) int {
	expired := func(s *Session) bool {
		return !s.emptySince.IsZero() && now.Sub(s.emptySince) >= grace
	}

	removed := 0

	for _, s := range r.list() {
		if r.remove(s, expired) {
			removed++
		}
	}

	return removed
}

// returns summaries of all live sessions ordered by document id
func (r *Registry) Sessions() []SessionSummary {
	sessions := r.list()
	summaries := make([]SessionSummary, 0, len(sessions))

	for _, s := range sessions {
		summaries = append(summaries, s.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].DocumentID < summaries[j].DocumentID
	})

	return summaries
}

// returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

func (r *Registry) list() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if !s.Closed() {
			sessions = append(sessions, s)
		}
	}

	return sessions
}

// closes s under its own lock, then drops it from the map unless a replacement took its slot
func (r *Registry) remove(s *Session, ready func(*Session) bool) bool {
	s.mu.Lock()
	closed := s.closeIfLocked(ready)
	s.mu.Unlock()

	if !closed {
		return false
	}

	r.mu.Lock()
	if r.sessions[s.DocumentID()] == s {
		delete(r.sessions, s.DocumentID())
	}
	r.mu.Unlock()

	metrics.ActiveSessions.Dec()

	return true
}
