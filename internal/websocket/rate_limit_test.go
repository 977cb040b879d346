package websocket

import (
	"testing"

	"codeberg.org/docsuite/server/internal/collab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// test cursor update rate limiting (30/second burst)
func TestCursorUpdateRateLimit(t *testing.T) {
	client := newTestClient("c-1", "doc-1", "alice", "editor", nil)

	for i := 0; i < maxCursorUpdatesPerSecond; i++ {
		assert.True(t, client.allow(collab.TypeCursorUpdate), "cursor update %d should have been allowed", i+1)
	}

	assert.False(t, client.allow(collab.TypeCursorUpdate), "cursor update over the burst should be limited")
}

// test command rate limiting (20/minute burst)
func TestCommandRateLimit(t *testing.T) {
	client := newTestClient("c-1", "doc-1", "alice", "editor", nil)

	for i := 0; i < maxCommandsPerMinute; i++ {
		assert.True(t, client.allow(collab.TypeChatMessage), "command %d should have been allowed", i+1)
	}

	assert.False(t, client.allow(collab.TypeCommentAdd))
	assert.False(t, client.allow(collab.TypeLockAcquire))

	// cursor budget is separate
	assert.True(t, client.allow(collab.TypeCursorUpdate))
}

func TestUnknownTypesBypassLimiter(t *testing.T) {
	client := newTestClient("c-1", "doc-1", "alice", "editor", nil)

	for i := 0; i < 100; i++ {
		assert.True(t, client.allow("something_else"))
	}
}

func TestCheckMessageRateLimited(t *testing.T) {
	client := newTestClient("c-1", "doc-1", "alice", "editor", nil)

	for i := 0; i < maxCursorUpdatesPerSecond; i++ {
		require.NoError(t, client.checkMessage(&Message{Type: collab.TypeCursorUpdate}))
	}

	// dropped cursor moves are silent
	assert.ErrorIs(t, client.checkMessage(&Message{Type: collab.TypeCursorUpdate}), ErrRateLimitExceeded)
	assert.Empty(t, drainFrames(t, client))

	for i := 0; i < maxCommandsPerMinute; i++ {
		require.NoError(t, client.checkMessage(&Message{Type: collab.TypeChatMessage}))
	}

	assert.ErrorIs(t, client.checkMessage(&Message{Type: collab.TypeChatMessage, RequestID: "r1"}), ErrRateLimitExceeded)

	frames := drainFrames(t, client)
	require.Len(t, frames, 1)
	assert.Equal(t, "r1", frames[0]["request_id"])
	assert.Equal(t, "too_many_requests", frames[0]["payload"].(map[string]any)["error"])
}

func TestViewerCannotTakeLock(t *testing.T) {
	client := newTestClient("c-1", "doc-1", "alice", "viewer", nil)

	assert.ErrorIs(t, client.checkMessage(&Message{Type: collab.TypeLockAcquire, RequestID: "r1"}), ErrReadOnly)
	assert.ErrorIs(t, client.checkMessage(&Message{Type: collab.TypeContentUpdate, RequestID: "r2"}), ErrReadOnly)
	assert.NoError(t, client.checkMessage(&Message{Type: collab.TypeCommentAdd}))

	frames := drainFrames(t, client)
	require.Len(t, frames, 2)
	assert.Equal(t, "forbidden", frames[0]["payload"].(map[string]any)["error"])
	assert.Equal(t, "r2", frames[1]["request_id"])
}

func TestContentUpdateRateLimit(t *testing.T) {
	client := newTestClient("c-1", "doc-1", "alice", "editor", nil)

	for i := 0; i < maxContentUpdatesPerSecond; i++ {
		require.NoError(t, client.checkMessage(&Message{Type: collab.TypeContentUpdate}))
	}

	// rejected edits are reported, unlike cursor moves
	assert.ErrorIs(t, client.checkMessage(&Message{Type: collab.TypeContentUpdate, RequestID: "r1"}), ErrRateLimitExceeded)

	frames := drainFrames(t, client)
	require.Len(t, frames, 1)
	assert.Equal(t, "too_many_requests", frames[0]["payload"].(map[string]any)["error"])

	// other budgets are untouched
	assert.True(t, client.allow(collab.TypeChatMessage))
}
