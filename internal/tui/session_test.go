package tui

import (
	"encoding/json"
	"testing"
	"time"

	"codeberg.org/docsuite/server/internal/collab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(t *testing.T, eventType string, seq uint64, payload any) wsMessage {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	return wsMessage{Type: eventType, DocumentID: "doc1", Sequence: seq, Payload: raw}
}

func snapshotView(t *testing.T) *SessionView {
	t.Helper()

	now := time.Now()
	v := NewSessionView("doc1")

	require.NoError(t, v.Apply(event(t, collab.TypeSessionSnapshot, 0, collab.Snapshot{
		DocumentID: "doc1",
		Participants: []collab.Participant{
			{UserID: "alice", DisplayName: "Alice", JoinedAt: now},
			{UserID: "bob", DisplayName: "Bob", JoinedAt: now.Add(time.Second)},
		},
		Comments: []*collab.Comment{
			{ID: 1, AuthorID: "alice", Content: "first", Position: &collab.Position{Page: 1}},
		},
		Lock: collab.LockView{Holder: "alice"},
		ChatHistory: []collab.ChatMessage{
			{UserID: "bob", DisplayName: "Bob", Content: "hi"},
		},
	})))

	return v
}

func TestApplySnapshot(t *testing.T) {
	v := snapshotView(t)

	assert.Len(t, v.Participants, 2)
	assert.Len(t, v.Comments, 1)
	assert.Equal(t, "alice", v.Lock.Holder)
	assert.Len(t, v.Chat, 1)

	participants := v.SortedParticipants()
	require.Len(t, participants, 2)
	assert.Equal(t, "alice", participants[0].UserID)
	assert.Equal(t, "bob", participants[1].UserID)
}

func TestApplyPresence(t *testing.T) {
	v := snapshotView(t)

	require.NoError(t, v.Apply(event(t, collab.TypeParticipantJoined, 1, collab.Participant{UserID: "carol", DisplayName: "Carol"})))
	assert.Contains(t, v.Participants, "carol")

	require.NoError(t, v.Apply(event(t, collab.TypeCursorUpdate, 2, collab.CursorPayload{
		UserID:   "carol",
		Position: collab.Position{X: 3, Y: 4, Page: 2},
	})))
	require.NotNil(t, v.Participants["carol"].Cursor)
	assert.Equal(t, 2, v.Participants["carol"].Cursor.Page)

	require.NoError(t, v.Apply(event(t, collab.TypeParticipantLeft, 3, collab.ParticipantLeftPayload{UserID: "carol", DisplayName: "Carol"})))
	assert.NotContains(t, v.Participants, "carol")

	assert.Equal(t, uint64(3), v.LastSequence())
}

func TestApplyThread(t *testing.T) {
	v := snapshotView(t)

	require.NoError(t, v.Apply(event(t, collab.TypeCommentAdded, 1, collab.Comment{ID: 2, AuthorID: "bob", Content: "second", Position: &collab.Position{Page: 1}})))
	require.NoError(t, v.Apply(event(t, collab.TypeCommentAdded, 2, collab.Comment{ID: 3, ParentID: 1, AuthorID: "bob", Content: "reply"})))
	require.NoError(t, v.Apply(event(t, collab.TypeCommentResolved, 3, collab.CommentResolvedPayload{CommentID: 1, ResolvedBy: "bob"})))

	require.Len(t, v.Comments, 2)
	assert.True(t, v.Comments[0].Resolved)
	require.Len(t, v.Comments[0].Replies, 1)
	assert.Equal(t, int64(3), v.Comments[0].Replies[0].ID)
	assert.False(t, v.Comments[1].Resolved)
}

func TestApplyReplyToUnknownParentIsIgnored(t *testing.T) {
	v := snapshotView(t)

	require.NoError(t, v.Apply(event(t, collab.TypeCommentAdded, 1, collab.Comment{ID: 9, ParentID: 42, AuthorID: "bob", Content: "lost"})))

	require.Len(t, v.Comments, 1)
	assert.Empty(t, v.Comments[0].Replies)
}

func TestApplyLock(t *testing.T) {
	v := snapshotView(t)

	require.NoError(t, v.Apply(event(t, collab.TypeLockReleased, 1, collab.LockPayload{Holder: "alice", Reason: "holder_left"})))
	assert.Empty(t, v.Lock.Holder)

	now := time.Now()
	require.NoError(t, v.Apply(event(t, collab.TypeLockAcquired, 2, collab.LockPayload{Holder: "bob", AcquiredAt: &now})))
	assert.Equal(t, "bob", v.Lock.Holder)
	require.NotNil(t, v.Lock.AcquiredAt)

	assert.Contains(t, v.Feed[len(v.Feed)-1], "Bob took the edit lock")
}

func TestApplyChatAndErrors(t *testing.T) {
	v := snapshotView(t)

	require.NoError(t, v.Apply(event(t, collab.TypeChatMessage, 1, collab.ChatMessage{UserID: "alice", DisplayName: "Alice", Content: "hey"})))
	assert.Len(t, v.Chat, 2)

	require.NoError(t, v.Apply(event(t, collab.TypeError, 0, collab.ErrorPayload{Error: "lock_held", Message: "document is locked", Holder: "alice"})))
	assert.Contains(t, v.Feed[len(v.Feed)-1], "held by Alice")
}

func TestApplyBadPayload(t *testing.T) {
	v := NewSessionView("doc1")

	err := v.Apply(wsMessage{Type: collab.TypeCommentAdded, Payload: json.RawMessage(`"nope"`)})
	assert.Error(t, err)
}

func TestFeedIsBounded(t *testing.T) {
	v := NewSessionView("doc1")

	for i := range maxFeedLines + 10 {
		v.Note("line %d", i)
	}

	assert.Len(t, v.Feed, maxFeedLines)
	assert.Contains(t, v.Feed[len(v.Feed)-1], "line 209")
}

func TestApplyContent(t *testing.T) {
	v := NewSessionView("doc1")

	require.NoError(t, v.Apply(event(t, collab.TypeSessionSnapshot, 0, collab.Snapshot{
		DocumentID:     "doc1",
		Participants:   []collab.Participant{{UserID: "alice", DisplayName: "Alice"}},
		Content:        "draft",
		ContentVersion: 3,
	})))
	assert.Equal(t, "draft", v.Content)
	assert.Equal(t, uint64(3), v.ContentVersion)

	require.NoError(t, v.Apply(event(t, collab.TypeContentUpdated, 1, collab.ContentUpdatedPayload{
		Content:   "final",
		Version:   4,
		UpdatedBy: "alice",
	})))
	assert.Equal(t, "final", v.Content)
	assert.Equal(t, uint64(4), v.ContentVersion)
	assert.Contains(t, v.Feed[len(v.Feed)-1], "Alice edited the document (v4)")
}
