package collab

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// content and history limits
const (
	maxContentLength  = 5000 // runes, comments and chat messages
	maxDocumentBytes  = 48 * 1024
	maxChatHistory    = 50
	maxJoinAttempts   = 10
	supersededReason  = "a newer connection joined as the same user"
	releaseReasonSelf = "released"
	releaseReasonLeft = "holder_left"
)

// errors returned by Conn implementations
var (
	ErrConnClosed   = errors.New("connection closed")
	ErrSlowConsumer = errors.New("outbound queue full")
)

// is the transport handle of one participant connection
type Conn interface {
	ID() string
	Send(ev *Event) error
	Close()
}

// decides what happens when a user id joins a session it is already active in
type JoinPolicy int

const (
	// the newer connection replaces the older one, which is told and closed
	JoinSupersede JoinPolicy = iota

	// the newer connection is refused with ErrDuplicateParticipant
	JoinReject
)

// is the verified identity a connection is admitted with
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Role        string `json:"role,omitempty"`
}

// client-space cursor or anchor position, page is 1-indexed
type Position struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Page int     `json:"page"`
}

// one connected user within a session
type Participant struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Role        string    `json:"role,omitempty"`
	Cursor      *Position `json:"cursor"`
	JoinedAt    time.Time `json:"joined_at"`
	LastActive  time.Time `json:"last_active"`

	conn Conn
}

// edit lock state as seen by clients, empty holder means unlocked
type LockView struct {
	Holder     string     `json:"holder,omitempty"`
	AcquiredAt *time.Time `json:"acquired_at,omitempty"`
}

// a comment or a reply (ParentID set, no replies of its own)
type Comment struct {
	ID        int64      `json:"id"`
	ParentID  int64      `json:"parent_id,omitempty"`
	AuthorID  string     `json:"author_id"`
	Content   string     `json:"content"`
	Position  *Position  `json:"position,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Resolved  bool       `json:"resolved"`
	Replies   []*Comment `json:"replies,omitempty"`
}

// a chat line kept in the session history
type ChatMessage struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Content     string `json:"content"`
	Timestamp   int64  `json:"timestamp"` // unix milliseconds
}

// full session state sent to a joining connection
type Snapshot struct {
	DocumentID   string        `json:"document_id"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
	Participants []Participant `json:"participants"`
	Comments     []*Comment    `json:"comments"`
	Lock         LockView      `json:"lock"`
	ChatHistory  []ChatMessage `json:"chat_history"`

	Content        string `json:"content"`
	ContentVersion uint64 `json:"content_version"`
}

// one row of the live session listing
type SessionSummary struct {
	DocumentID   string    `json:"document_id"`
	Participants int       `json:"participants"`
	LockedBy     string    `json:"locked_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// an opaque event pushed into a session by the surrounding application
type Notification struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// a client command as decoded by the transport
type Command struct {
	Type      string
	RequestID string
	Payload   json.RawMessage
}

// archive journal operations
const (
	RecordCommentAdded    = "comment_added"
	RecordCommentResolved = "comment_resolved"
)

// a thread mutation to be persisted, Comment carries no replies
type ThreadRecord struct {
	Op         string    `json:"op"`
	DocumentID string    `json:"document_id"`
	Comment    Comment   `json:"comment"`
	At         time.Time `json:"at"`
}

// persists comment threads beyond the session lifetime
type Archive interface {
	// returns the archived thread of a document, top-level comments with replies
	LoadThread(ctx context.Context, documentID string) ([]*Comment, error)

	// queues a thread mutation without blocking, preserving call order
	Record(rec ThreadRecord)
}
