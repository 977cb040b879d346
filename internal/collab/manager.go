package collab

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"codeberg.org/docsuite/server/internal/logger"
	"codeberg.org/docsuite/server/internal/metrics"
)

// binds connections to (session, user) pairs and drives the session components
type Manager struct {
	registry *Registry
	archive  Archive
	policy   JoinPolicy
	grace    time.Duration
	now      func() time.Time

	mu       sync.Mutex
	bindings map[string]*binding
}

type binding struct {
	session *Session
	userID  string
	conn    Conn
}

// configures a Manager
type Option func(*Manager)

// sets the duplicate join policy, JoinSupersede by default
func WithJoinPolicy(policy JoinPolicy) Option {
	return func(m *Manager) {
		m.policy = policy
	}
}

// restores threads from and journals thread mutations to archive
func WithArchive(archive Archive) Option {
	return func(m *Manager) {
		m.archive = archive
	}
}

// keeps empty sessions around for grace before the sweeper removes them
func WithGracePeriod(grace time.Duration) Option {
	return func(m *Manager) {
		m.grace = grace
	}
}

// overrides the clock, used by tests
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(registry *Registry, opts ...Option) *Manager {
	m := &Manager{
		registry: registry,
		policy:   JoinSupersede,
		now:      time.Now,
		bindings: make(map[string]*binding),
	}

	for _, opt := range opts {
		opt(m)
	}

	registry.now = m.now

	return m
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

// joins conn to the document session and sends it the snapshot
func (m *Manager) OnConnect(ctx context.Context, documentID string, identity Identity, conn Conn) (*Snapshot, error) {
	for range maxJoinAttempts {
		s := m.registry.GetOrCreate(documentID)

		if err := m.loadThread(ctx, s); err != nil {
			m.releaseEmpty(s)
			return nil, err
		}

		snapshot, err := m.join(s, identity, conn)
		if errors.Is(err, errSessionClosed) {
			continue
		}

		if err != nil {
			m.releaseEmpty(s)
			return nil, err
		}

		logger.Info("participant joined",
			"document_id", documentID,
			"user_id", identity.UserID,
			"client_id", conn.ID(),
			"participants", len(snapshot.Participants),
		)

		return snapshot, nil
	}

	return nil, fmt.Errorf("failed to join session %s: %w", documentID, errSessionClosed)
}

func (m *Manager) join(s *Session, identity Identity, conn Conn) (*Snapshot, error) {
	now := m.now()

	s.mu.Lock()

	if s.closed.Load() {
		s.mu.Unlock()
		return nil, errSessionClosed
	}

	part := &Participant{
		UserID:      identity.UserID,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
		Role:        identity.Role,
		JoinedAt:    now,
		LastActive:  now,
		conn:        conn,
	}

	prev, err := s.state.join(part, m.policy)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	m.bind(&binding{session: s, userID: identity.UserID, conn: conn})
	s.emptySince = time.Time{}

	if prev != nil && prev.conn != nil {
		m.unbind(prev.conn)

		s.router.Deliver(prev.conn, newEvent(TypeSessionSuperseded, s.state.DocumentID, identity.UserID, now, SupersededPayload{
			Reason: supersededReason,
		}))
	} else {
		metrics.ConnectedParticipants.Inc()
	}

	joined := part.public()
	s.router.Publish(newEvent(TypeParticipantJoined, s.state.DocumentID, identity.UserID, now, joined), conn, true)

	snapshot := s.state.snapshot()
	ev := newEvent(TypeSessionSnapshot, s.state.DocumentID, identity.UserID, now, snapshot)
	ev.Sequence = s.router.Sequence()
	s.router.Deliver(conn, ev)

	s.mu.Unlock()

	if prev != nil && prev.conn != nil {
		logger.Info("participant superseded by newer connection",
			"document_id", s.state.DocumentID,
			"user_id", identity.UserID,
			"client_id", prev.conn.ID(),
		)

		prev.conn.Close()
	}

	return snapshot, nil
}

// restores the archived thread before the first participant joins
func (m *Manager) loadThread(ctx context.Context, s *Session) error {
	if m.archive == nil {
		return nil
	}

	s.mu.Lock()
	loaded := s.threadLoaded
	s.mu.Unlock()

	if loaded {
		return nil
	}

	comments, err := m.archive.LoadThread(ctx, s.DocumentID())
	if err != nil {
		return fmt.Errorf("failed to load comment thread: %w", err)
	}

	s.mu.Lock()
	if !s.threadLoaded {
		s.state.Thread.Restore(comments)
		s.threadLoaded = true
	}
	s.mu.Unlock()

	return nil
}

// applies a client command and publishes its events; failures go to conn only
func (m *Manager) OnMessage(conn Conn, cmd Command) error {
	b := m.lookup(conn)
	if b == nil {
		logger.Debug("dropping message from unbound connection",
			"client_id", conn.ID(),
			"message_type", cmd.Type,
		)
		return ErrUnknownParticipant
	}

	s := b.session
	now := m.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	part, exists := s.state.Presence.Get(b.userID)
	if !exists || part.conn == nil || part.conn.ID() != conn.ID() {
		logger.Debug("dropping message from departed participant",
			"document_id", s.state.DocumentID,
			"user_id", b.userID,
			"client_id", conn.ID(),
			"message_type", cmd.Type,
		)
		return ErrUnknownParticipant
	}

	res, err := s.state.Apply(b.userID, cmd, now)
	if err != nil {
		code := ErrorCode(err)
		metrics.CommandErrors.WithLabelValues(code).Inc()

		if code == CodeLockHeld {
			metrics.LockContention.Inc()
		}

		s.router.Deliver(conn, NewErrorEvent(s.state.DocumentID, b.userID, cmd.RequestID, err, now))
		return err
	}

	for _, out := range res.Events {
		s.router.route(out, conn)

		if out.Event.Type == TypeLockAcquired && out.Scope == ScopeAll {
			metrics.LockAcquisitions.Inc()
		}
	}

	if m.archive != nil {
		for _, rec := range res.Records {
			m.archive.Record(rec)
		}
	}

	return nil
}

// removes conn's participant, releases its lock and announces the departure; idempotent
func (m *Manager) OnDisconnect(conn Conn) {
	b := m.unbind(conn)
	if b == nil {
		return
	}

	s := b.session
	now := m.now()

	s.mu.Lock()

	events := s.state.leave(b.userID, conn.ID(), now)
	for _, out := range events {
		s.router.route(out, nil)
	}

	empty := s.state.empty()
	if empty {
		s.emptySince = now
	}

	s.mu.Unlock()

	if len(events) > 0 {
		metrics.ConnectedParticipants.Dec()

		logger.Info("participant left",
			"document_id", s.DocumentID(),
			"user_id", b.userID,
			"client_id", conn.ID(),
		)
	}

	if empty && m.grace <= 0 {
		if m.registry.remove(s, nil) {
			logger.Info("session has no more participants, removed",
				"document_id", s.DocumentID(),
			)
		}
	}
}

// refreshes the activity timestamp of conn's participant
func (m *Manager) Touch(conn Conn) {
	b := m.lookup(conn)
	if b == nil {
		return
	}

	s := b.session

	s.mu.Lock()
	defer s.mu.Unlock()

	if part, exists := s.state.Presence.Get(b.userID); exists && part.conn != nil && part.conn.ID() == conn.ID() {
		part.LastActive = m.now()
	}
}

// disconnects participants idle for longer than timeout and closes their connections
func (m *Manager) ExpireIdle(now time.Time, timeout time.Duration) int {
	cutoff := now.Add(-timeout)
	var idle []Conn

	for _, s := range m.registry.list() {
		s.mu.Lock()
		for _, part := range s.state.Presence.Idle(cutoff) {
			if part.conn != nil {
				idle = append(idle, part.conn)
			}
		}
		s.mu.Unlock()
	}

	for _, conn := range idle {
		logger.Info("expiring idle connection",
			"client_id", conn.ID(),
		)

		m.OnDisconnect(conn)
		conn.Close()
	}

	return len(idle)
}

// removes sessions that stayed empty past the grace period
func (m *Manager) SweepEmpty(now time.Time) int {
	return m.registry.SweepEmpty(now, m.grace)
}

// publishes an application notification into a live session
func (m *Manager) Notify(documentID string, n Notification) error {
	s, exists := m.registry.Get(documentID)
	if !exists {
		return ErrSessionNotFound
	}

	now := m.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionNotFound
	}

	s.router.Publish(newEvent(TypeNotification, documentID, "", now, n), nil, false)

	return nil
}

// returns the current state of a live session
func (m *Manager) Snapshot(documentID string) (*Snapshot, error) {
	s, exists := m.registry.Get(documentID)
	if !exists {
		return nil, ErrSessionNotFound
	}

	return s.Snapshot(), nil
}

// returns summaries of all live sessions
func (m *Manager) Sessions() []SessionSummary {
	return m.registry.Sessions()
}

func (m *Manager) bind(b *binding) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bindings[b.conn.ID()] = b
}

func (m *Manager) unbind(conn Conn) *binding {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.bindings[conn.ID()]
	if !exists {
		return nil
	}

	delete(m.bindings, conn.ID())

	return b
}

func (m *Manager) lookup(conn Conn) *binding {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.bindings[conn.ID()]
}

// drops a session that a failed join left empty
func (m *Manager) releaseEmpty(s *Session) {
	if m.grace <= 0 {
		m.registry.remove(s, nil)
	}
}
