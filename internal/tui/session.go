package tui

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"codeberg.org/docsuite/server/internal/collab"
)

// oldest feed lines are dropped past this
const maxFeedLines = 200

// creates an empty view for a document
func NewSessionView(documentID string) *SessionView {
	return &SessionView{
		DocumentID:   documentID,
		Participants: make(map[string]collab.Participant),
	}
}

// folds one server event into the view
func (v *SessionView) Apply(ev wsMessage) error {
	if ev.Sequence > v.lastSeq {
		v.lastSeq = ev.Sequence
	}

	switch ev.Type {
	case collab.TypeSessionSnapshot:
		var snapshot collab.Snapshot
		if err := json.Unmarshal(ev.Payload, &snapshot); err != nil {
			return fmt.Errorf("failed to parse snapshot: %w", err)
		}

		v.reset(&snapshot)
		v.feed("joined %s with %d participant(s)", snapshot.DocumentID, len(snapshot.Participants))

	case collab.TypeParticipantJoined:
		var p collab.Participant
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("failed to parse participant: %w", err)
		}

		v.Participants[p.UserID] = p
		v.feed("%s joined", displayName(p))

	case collab.TypeParticipantLeft:
		var left collab.ParticipantLeftPayload
		if err := json.Unmarshal(ev.Payload, &left); err != nil {
			return fmt.Errorf("failed to parse participant: %w", err)
		}

		delete(v.Participants, left.UserID)
		v.feed("%s left", orUserID(left.DisplayName, left.UserID))

	case collab.TypeCursorUpdate:
		var cursor collab.CursorPayload
		if err := json.Unmarshal(ev.Payload, &cursor); err != nil {
			return fmt.Errorf("failed to parse cursor: %w", err)
		}

		if p, ok := v.Participants[cursor.UserID]; ok {
			pos := cursor.Position
			p.Cursor = &pos
			v.Participants[cursor.UserID] = p
		}

	case collab.TypeCommentAdded:
		var c collab.Comment
		if err := json.Unmarshal(ev.Payload, &c); err != nil {
			return fmt.Errorf("failed to parse comment: %w", err)
		}

		v.addComment(&c)

	case collab.TypeCommentResolved:
		var resolved collab.CommentResolvedPayload
		if err := json.Unmarshal(ev.Payload, &resolved); err != nil {
			return fmt.Errorf("failed to parse resolution: %w", err)
		}

		if c := v.findComment(resolved.CommentID); c != nil {
			c.Resolved = true
		}

		v.feed("comment #%d resolved by %s", resolved.CommentID, v.nameOf(resolved.ResolvedBy))

	case collab.TypeLockAcquired:
		var lock collab.LockPayload
		if err := json.Unmarshal(ev.Payload, &lock); err != nil {
			return fmt.Errorf("failed to parse lock: %w", err)
		}

		v.Lock = collab.LockView{Holder: lock.Holder, AcquiredAt: lock.AcquiredAt}
		v.feed("%s took the edit lock", v.nameOf(lock.Holder))

	case collab.TypeLockReleased:
		var lock collab.LockPayload
		if err := json.Unmarshal(ev.Payload, &lock); err != nil {
			return fmt.Errorf("failed to parse lock: %w", err)
		}

		v.Lock = collab.LockView{}

		if lock.Reason != "" {
			v.feed("edit lock released (%s)", lock.Reason)
		} else {
			v.feed("edit lock released")
		}

	case collab.TypeChatMessage:
		var msg collab.ChatMessage
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			return fmt.Errorf("failed to parse chat message: %w", err)
		}

		v.Chat = append(v.Chat, msg)

	case collab.TypeContentUpdated:
		var updated collab.ContentUpdatedPayload
		if err := json.Unmarshal(ev.Payload, &updated); err != nil {
			return fmt.Errorf("failed to parse content: %w", err)
		}

		v.Content = updated.Content
		v.ContentVersion = updated.Version
		v.feed("%s edited the document (v%d)", v.nameOf(updated.UpdatedBy), updated.Version)

	case collab.TypeNotification:
		var n collab.Notification
		if err := json.Unmarshal(ev.Payload, &n); err != nil {
			return fmt.Errorf("failed to parse notification: %w", err)
		}

		v.feed("notification: %s", n.Kind)

	case collab.TypeError:
		var e collab.ErrorPayload
		if err := json.Unmarshal(ev.Payload, &e); err != nil {
			return fmt.Errorf("failed to parse error: %w", err)
		}

		if e.Holder != "" {
			v.feed("error: %s (held by %s)", e.Message, v.nameOf(e.Holder))
		} else {
			v.feed("error: %s", e.Message)
		}

	case collab.TypeSessionSuperseded:
		v.feed("this connection was replaced by a newer one")

	case collab.TypeServerShutdown:
		v.feed("server is shutting down")

	case collab.TypePong:
	}

	return nil
}

// returns the sequence number of the newest event seen
func (v *SessionView) LastSequence() uint64 {
	return v.lastSeq
}

// returns participants ordered by join time
func (v *SessionView) SortedParticipants() []collab.Participant {
	participants := make([]collab.Participant, 0, len(v.Participants))
	for _, p := range v.Participants {
		participants = append(participants, p)
	}

	slices.SortFunc(participants, func(a, b collab.Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}

		if a.UserID < b.UserID {
			return -1
		}

		if a.UserID > b.UserID {
			return 1
		}

		return 0
	})

	return participants
}

// appends a local line to the activity feed
func (v *SessionView) Note(format string, args ...any) {
	v.feed(format, args...)
}

func (v *SessionView) reset(snapshot *collab.Snapshot) {
	v.DocumentID = snapshot.DocumentID
	v.Participants = make(map[string]collab.Participant, len(snapshot.Participants))

	for _, p := range snapshot.Participants {
		v.Participants[p.UserID] = p
	}

	v.Comments = snapshot.Comments
	v.Lock = snapshot.Lock
	v.Chat = snapshot.ChatHistory
	v.Content = snapshot.Content
	v.ContentVersion = snapshot.ContentVersion
}

func (v *SessionView) addComment(c *collab.Comment) {
	if c.ParentID == 0 {
		v.Comments = append(v.Comments, c)
		v.feed("%s commented #%d", v.nameOf(c.AuthorID), c.ID)
		return
	}

	parent := v.findComment(c.ParentID)
	if parent == nil {
		return
	}

	parent.Replies = append(parent.Replies, c)
	v.feed("%s replied to #%d", v.nameOf(c.AuthorID), c.ParentID)
}

func (v *SessionView) findComment(id int64) *collab.Comment {
	for _, c := range v.Comments {
		if c.ID == id {
			return c
		}
	}

	return nil
}

// returns the display name of a connected user, falling back to the id
func (v *SessionView) nameOf(userID string) string {
	if p, ok := v.Participants[userID]; ok {
		return displayName(p)
	}

	return userID
}

func (v *SessionView) feed(format string, args ...any) {
	line := fmt.Sprintf("%s  %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	v.Feed = append(v.Feed, line)

	if len(v.Feed) > maxFeedLines {
		v.Feed = v.Feed[len(v.Feed)-maxFeedLines:]
	}
}
