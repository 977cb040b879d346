package collab

import (
	"time"
)

// client to server message types
const (
	TypeCursorUpdate   = "cursor_update"
	TypeCommentAdd     = "comment_add"
	TypeCommentReply   = "comment_reply"
	TypeCommentResolve = "comment_resolve"
	TypeLockAcquire    = "lock_acquire"
	TypeLockRelease    = "lock_release"
	TypeChatMessage    = "chat_message"
	TypeContentUpdate  = "content_update"
	TypePing           = "ping"
)

// server to client event types
const (
	// is sent once to a connection right after it joins
	TypeSessionSnapshot = "session_snapshot"

	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"

	// replies carry parent_id
	TypeCommentAdded    = "comment_added"
	TypeCommentResolved = "comment_resolved"

	TypeLockAcquired = "lock_acquired"
	TypeLockReleased = "lock_released"

	// carries the full document content and its version
	TypeContentUpdated = "content_updated"

	// is pushed by the surrounding application
	TypeNotification = "notification"

	TypePong  = "pong"
	TypeError = "error"

	// is sent to a connection replaced by a newer one for the same user
	TypeSessionSuperseded = "session_superseded"

	// is sent by the transport before the server stops
	TypeServerShutdown = "server_shutdown"
)

// an outbound event, serialized as the wire envelope
type Event struct {
	Type       string    `json:"type"`
	DocumentID string    `json:"document_id"`
	UserID     string    `json:"user_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Sequence   uint64    `json:"seq,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload,omitempty"`
}

// who receives an event produced by a command
type Scope int

const (
	// every participant including the originator
	ScopeAll Scope = iota

	// every participant except the originator
	ScopeOthers

	// the originator only
	ScopeOrigin
)

// an event together with its delivery scope
type Outbound struct {
	Event *Event
	Scope Scope
}

// contains a cursor move
type CursorUpdatePayload struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Page int     `json:"page"`
}

// contains a new top-level comment
type CommentAddPayload struct {
	Content  string    `json:"content"`
	Position *Position `json:"position"`
}

// contains a reply to a top-level comment
type CommentReplyPayload struct {
	CommentID int64  `json:"comment_id"`
	Content   string `json:"content"`
}

// contains the comment to resolve
type CommentResolvePayload struct {
	CommentID int64 `json:"comment_id"`
}

// contains a chat message from a participant
type ChatMessagePayload struct {
	Message string `json:"message"`
}

// contains the full replacement content of the document
type ContentUpdatePayload struct {
	Content string `json:"content"`
}

// contains the document content after an edit
type ContentUpdatedPayload struct {
	Content   string `json:"content"`
	Version   uint64 `json:"version"`
	UpdatedBy string `json:"updated_by"`
}

// contains a cursor broadcast
type CursorPayload struct {
	UserID   string   `json:"user_id"`
	Position Position `json:"position"`
}

// contains information about a participant who left
type ParticipantLeftPayload struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// contains the resolved comment
type CommentResolvedPayload struct {
	CommentID  int64  `json:"comment_id"`
	ResolvedBy string `json:"resolved_by"`
}

// contains edit lock transitions
type LockPayload struct {
	Holder     string     `json:"holder"`
	AcquiredAt *time.Time `json:"acquired_at,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// contains a failed command report
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Holder  string `json:"holder,omitempty"`
}

// contains why a connection was replaced
type SupersededPayload struct {
	Reason string `json:"reason"`
}

// creates an event stamped with the given time
func newEvent(eventType, documentID, userID string, now time.Time, payload any) *Event {
	return &Event{
		Type:       eventType,
		DocumentID: documentID,
		UserID:     userID,
		Timestamp:  now,
		Payload:    payload,
	}
}

// creates the error event reported to the originator of a failed command
func NewErrorEvent(documentID, userID, requestID string, err error, now time.Time) *Event {
	payload := ErrorPayload{
		Error:   ErrorCode(err),
		Message: err.Error(),
	}

	if holder, ok := LockHolder(err); ok {
		payload.Holder = holder
	}

	ev := newEvent(TypeError, documentID, userID, now, payload)
	ev.RequestID = requestID

	return ev
}
