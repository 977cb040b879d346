package collab

import (
	"encoding/json"
	"time"
)

// the mutable state of one document session
// Apply is a pure step from (state, command) to (state', events, records)
type State struct {
	DocumentID   string
	CreatedAt    time.Time
	LastActivity time.Time

	Presence *Presence
	Lock     *EditLock
	Thread   *Thread

	chat []ChatMessage

	// document body edited through the lock holder, version counts accepted edits
	content        string
	contentVersion uint64
}

// what a command produced
type Result struct {
	Events  []Outbound
	Records []ThreadRecord
}

func NewState(documentID string, now time.Time) *State {
	return &State{
		DocumentID:   documentID,
		CreatedAt:    now,
		LastActivity: now,
		Presence:     NewPresence(),
		Lock:         &EditLock{},
		Thread:       NewThread(),
	}
}

// applies one client command from userID, nothing changes when an error is returned
func (s *State) Apply(userID string, cmd Command, now time.Time) (*Result, error) {
	part, exists := s.Presence.Get(userID)
	if !exists {
		return nil, ErrUnknownParticipant
	}

	var (
		res *Result
		err error
	)

	switch cmd.Type {
	case TypePing:
		res = s.origin(newEvent(TypePong, s.DocumentID, userID, now, nil))

	case TypeCursorUpdate:
		res, err = s.applyCursor(userID, cmd, now)

	case TypeCommentAdd:
		res, err = s.applyCommentAdd(userID, cmd, now)

	case TypeCommentReply:
		res, err = s.applyCommentReply(userID, cmd, now)

	case TypeCommentResolve:
		res, err = s.applyCommentResolve(userID, cmd, now)

	case TypeLockAcquire:
		res, err = s.applyLockAcquire(userID, now)

	case TypeLockRelease:
		res, err = s.applyLockRelease(userID, now)

	case TypeChatMessage:
		res, err = s.applyChat(part, cmd, now)

	case TypeContentUpdate:
		res, err = s.applyContentUpdate(userID, cmd, now)

	default:
		return nil, ErrUnknownCommand
	}

	if err != nil {
		return nil, err
	}

	s.Presence.Touch(userID, now)
	s.LastActivity = now

	for _, out := range res.Events {
		out.Event.RequestID = cmd.RequestID
	}

	return res, nil
}

func (s *State) applyCursor(userID string, cmd Command, now time.Time) (*Result, error) {
	var payload CursorUpdatePayload
	if err := decodePayload(cmd.Payload, &payload); err != nil {
		return nil, err
	}

	pos := Position(payload)
	if err := validatePosition(&pos); err != nil {
		return nil, err
	}

	if err := s.Presence.UpdateCursor(userID, pos, now); err != nil {
		return nil, err
	}

	ev := newEvent(TypeCursorUpdate, s.DocumentID, userID, now, CursorPayload{
		UserID:   userID,
		Position: pos,
	})

	return &Result{Events: []Outbound{{Event: ev, Scope: ScopeOthers}}}, nil
}

func (s *State) applyCommentAdd(userID string, cmd Command, now time.Time) (*Result, error) {
	var payload CommentAddPayload
	if err := decodePayload(cmd.Payload, &payload); err != nil {
		return nil, err
	}

	c, err := s.Thread.AddComment(userID, payload.Content, payload.Position, now)
	if err != nil {
		return nil, err
	}

	return s.commentAdded(userID, c, now), nil
}

func (s *State) applyCommentReply(userID string, cmd Command, now time.Time) (*Result, error) {
	var payload CommentReplyPayload
	if err := decodePayload(cmd.Payload, &payload); err != nil {
		return nil, err
	}

	reply, err := s.Thread.AddReply(payload.CommentID, userID, payload.Content, now)
	if err != nil {
		return nil, err
	}

	return s.commentAdded(userID, reply, now), nil
}

func (s *State) commentAdded(userID string, c *Comment, now time.Time) *Result {
	ev := newEvent(TypeCommentAdded, s.DocumentID, userID, now, c)

	return &Result{
		Events: []Outbound{{Event: ev, Scope: ScopeAll}},
		Records: []ThreadRecord{{
			Op:         RecordCommentAdded,
			DocumentID: s.DocumentID,
			Comment:    *c,
			At:         now,
		}},
	}
}

func (s *State) applyCommentResolve(userID string, cmd Command, now time.Time) (*Result, error) {
	var payload CommentResolvePayload
	if err := decodePayload(cmd.Payload, &payload); err != nil {
		return nil, err
	}

	changed, err := s.Thread.Resolve(payload.CommentID)
	if err != nil {
		return nil, err
	}

	ev := newEvent(TypeCommentResolved, s.DocumentID, userID, now, CommentResolvedPayload{
		CommentID:  payload.CommentID,
		ResolvedBy: userID,
	})

	if !changed {
		return s.origin(ev), nil
	}

	resolved, _ := s.Thread.Get(payload.CommentID)
	resolved.Replies = nil

	return &Result{
		Events: []Outbound{{Event: ev, Scope: ScopeAll}},
		Records: []ThreadRecord{{
			Op:         RecordCommentResolved,
			DocumentID: s.DocumentID,
			Comment:    *resolved,
			At:         now,
		}},
	}, nil
}

func (s *State) applyLockAcquire(userID string, now time.Time) (*Result, error) {
	changed, err := s.Lock.Acquire(userID, now)
	if err != nil {
		return nil, err
	}

	view := s.Lock.View()
	ev := newEvent(TypeLockAcquired, s.DocumentID, userID, now, LockPayload{
		Holder:     view.Holder,
		AcquiredAt: view.AcquiredAt,
	})

	if !changed {
		return s.origin(ev), nil
	}

	return &Result{Events: []Outbound{{Event: ev, Scope: ScopeAll}}}, nil
}

func (s *State) applyLockRelease(userID string, now time.Time) (*Result, error) {
	changed, err := s.Lock.Release(userID)
	if err != nil {
		return nil, err
	}

	ev := newEvent(TypeLockReleased, s.DocumentID, userID, now, LockPayload{
		Holder: userID,
		Reason: releaseReasonSelf,
	})

	if !changed {
		return s.origin(ev), nil
	}

	return &Result{Events: []Outbound{{Event: ev, Scope: ScopeAll}}}, nil
}

func (s *State) applyChat(part *Participant, cmd Command, now time.Time) (*Result, error) {
	var payload ChatMessagePayload
	if err := decodePayload(cmd.Payload, &payload); err != nil {
		return nil, err
	}

	content, err := validateContent(payload.Message)
	if err != nil {
		return nil, err
	}

	msg := ChatMessage{
		UserID:      part.UserID,
		DisplayName: part.DisplayName,
		AvatarURL:   part.AvatarURL,
		Content:     content,
		Timestamp:   now.UnixMilli(),
	}

	s.chat = append(s.chat, msg)
	if len(s.chat) > maxChatHistory {
		s.chat = s.chat[len(s.chat)-maxChatHistory:]
	}

	ev := newEvent(TypeChatMessage, s.DocumentID, part.UserID, now, msg)

	return &Result{Events: []Outbound{{Event: ev, Scope: ScopeAll}}}, nil
}

// replaces the document content; only the edit lock holder may do so
func (s *State) applyContentUpdate(userID string, cmd Command, now time.Time) (*Result, error) {
	switch holder := s.Lock.Holder(); holder {
	case userID:
	case "":
		return nil, ErrLockRequired
	default:
		return nil, &LockHeldError{Holder: holder}
	}

	var payload ContentUpdatePayload
	if err := decodePayload(cmd.Payload, &payload); err != nil {
		return nil, err
	}

	if len(payload.Content) > maxDocumentBytes {
		return nil, ErrDocumentTooLarge
	}

	s.content = payload.Content
	s.contentVersion++

	ev := newEvent(TypeContentUpdated, s.DocumentID, userID, now, ContentUpdatedPayload{
		Content:   s.content,
		Version:   s.contentVersion,
		UpdatedBy: userID,
	})

	return &Result{Events: []Outbound{{Event: ev, Scope: ScopeAll}}}, nil
}

// adds a participant, publishing nothing; the caller announces the join
func (s *State) join(part *Participant, policy JoinPolicy) (*Participant, error) {
	prev, err := s.Presence.Join(part, policy)
	if err != nil {
		return nil, err
	}

	s.LastActivity = part.JoinedAt

	return prev, nil
}

// removes userID if it is still bound to connID and releases its lock in the same step
func (s *State) leave(userID, connID string, now time.Time) []Outbound {
	part, exists := s.Presence.Get(userID)
	if !exists || part.conn == nil || part.conn.ID() != connID {
		return nil
	}

	s.Presence.Leave(userID)
	s.LastActivity = now

	events := []Outbound{{
		Event: newEvent(TypeParticipantLeft, s.DocumentID, userID, now, ParticipantLeftPayload{
			UserID:      userID,
			DisplayName: part.DisplayName,
		}),
		Scope: ScopeAll,
	}}

	if s.Lock.Holder() == userID {
		s.Lock.ForceRelease()

		events = append(events, Outbound{
			Event: newEvent(TypeLockReleased, s.DocumentID, userID, now, LockPayload{
				Holder: userID,
				Reason: releaseReasonLeft,
			}),
			Scope: ScopeAll,
		})
	}

	return events
}

// reports whether the session can be discarded
func (s *State) empty() bool {
	return s.Presence.Len() == 0 && s.Lock.Holder() == ""
}

func (s *State) snapshot() *Snapshot {
	chat := make([]ChatMessage, len(s.chat))
	copy(chat, s.chat)

	return &Snapshot{
		DocumentID:   s.DocumentID,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		Participants: s.Presence.List(),
		Comments:     s.Thread.List(),
		Lock:         s.Lock.View(),
		ChatHistory:  chat,

		Content:        s.content,
		ContentVersion: s.contentVersion,
	}
}

func (s *State) summary() SessionSummary {
	return SessionSummary{
		DocumentID:   s.DocumentID,
		Participants: s.Presence.Len(),
		LockedBy:     s.Lock.Holder(),
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}

func (s *State) origin(ev *Event) *Result {
	return &Result{Events: []Outbound{{Event: ev, Scope: ScopeOrigin}}}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return ErrInvalidPayload
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return ErrInvalidPayload
	}

	return nil
}
