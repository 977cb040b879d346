package websocket

import (
	"context"
	"fmt"
	"testing"
	"time"

	"codeberg.org/docsuite/server/internal/collab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T, opts ...collab.Option) *Hub {
	t.Helper()

	manager := collab.NewManager(collab.NewRegistry(), opts...)
	return NewHub(manager, HubOptions{IdleTimeout: time.Minute})
}

func registerClient(t *testing.T, hub *Hub, client *Client) *collab.Snapshot {
	t.Helper()

	snapshot, err := hub.Register(context.Background(), client)
	require.NoError(t, err)

	return snapshot
}

func TestHubCreation(t *testing.T) {
	hub := NewHub(collab.NewManager(collab.NewRegistry()), HubOptions{})
	require.NotNil(t, hub)

	assert.Equal(t, defaultIdleTimeout, hub.opts.IdleTimeout)
	assert.Equal(t, defaultIdleTimeout/2, hub.opts.SweepInterval)
	assert.Equal(t, defaultSendQueueSize, hub.opts.SendQueueSize)
	assert.Equal(t, (defaultIdleTimeout*9)/10, hub.pingPeriod())
}

func TestHubRegisterClient(t *testing.T) {
	hub := newTestHub(t)

	client := newTestClient("test-client-1", "doc-1", "test-user", "editor", hub)
	snapshot := registerClient(t, hub, client)

	assert.Equal(t, "doc-1", snapshot.DocumentID)
	require.Len(t, snapshot.Participants, 1)
	assert.Equal(t, "test-user", snapshot.Participants[0].UserID)

	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.UserConnectionCount("test-user"))

	frames := drainFrames(t, client)
	require.Len(t, frames, 1)
	assert.Equal(t, "session_snapshot", frames[0]["type"])
}

func TestHubUnregisterClient(t *testing.T) {
	hub := newTestHub(t)

	alice := newTestClient("c-alice", "doc-1", "alice", "editor", hub)
	bob := newTestClient("c-bob", "doc-1", "bob", "editor", hub)
	registerClient(t, hub, alice)
	registerClient(t, hub, bob)
	drainFrames(t, alice)

	hub.Unregister(bob)
	hub.Unregister(bob)

	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 0, hub.UserConnectionCount("bob"))
	assert.True(t, bob.IsClosed())

	assert.Equal(t, []string{"participant_left"}, frameTypes(drainFrames(t, alice)))
}

func TestHubUserConnectionLimit(t *testing.T) {
	hub := newTestHub(t)

	for i := 0; i < maxConnectionsPerUser; i++ {
		client := NewClient(fmt.Sprintf("c-%d", i), fmt.Sprintf("doc-%d", i),
			collab.Identity{UserID: "busy-user"}, fmt.Sprintf("10.0.0.%d", i), nil, hub)
		registerClient(t, hub, client)
	}

	assert.ErrorIs(t, hub.CanAcceptConnection("busy-user", "10.0.1.1"), ErrTooManyConnections)

	extra := NewClient("c-extra", "doc-extra", collab.Identity{UserID: "busy-user"}, "10.0.1.1", nil, hub)
	_, err := hub.Register(context.Background(), extra)
	assert.ErrorIs(t, err, ErrTooManyConnections)
	assert.Equal(t, maxConnectionsPerUser, hub.ClientCount())

	assert.NoError(t, hub.CanAcceptConnection("other-user", "10.0.1.1"))
}

func TestHubIPConnectionLimit(t *testing.T) {
	hub := newTestHub(t)

	for i := 0; i < maxConnectionsPerIP; i++ {
		client := NewClient(fmt.Sprintf("c-%d", i), "doc-1",
			collab.Identity{UserID: fmt.Sprintf("user-%d", i)}, "192.168.1.1", nil, hub)
		registerClient(t, hub, client)
	}

	assert.ErrorIs(t, hub.CanAcceptConnection("new-user", "192.168.1.1"), ErrTooManyConnections)
	assert.NoError(t, hub.CanAcceptConnection("new-user", "192.168.1.2"))
}

func TestHubRegisterRejectedJoinReleasesSlot(t *testing.T) {
	hub := newTestHub(t, collab.WithJoinPolicy(collab.JoinReject))

	first := newTestClient("c-1", "doc-1", "alice", "editor", hub)
	registerClient(t, hub, first)

	second := newTestClient("c-2", "doc-1", "alice", "editor", hub)
	_, err := hub.Register(context.Background(), second)

	assert.ErrorIs(t, err, collab.ErrDuplicateParticipant)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.UserConnectionCount("alice"))
}

func TestHubSupersededClientIsClosed(t *testing.T) {
	hub := newTestHub(t)

	first := newTestClient("c-1", "doc-1", "alice", "editor", hub)
	registerClient(t, hub, first)
	drainFrames(t, first)

	second := newTestClient("c-2", "doc-1", "alice", "editor", hub)
	registerClient(t, hub, second)

	assert.True(t, first.IsClosed())
	assert.Equal(t, []string{"session_superseded"}, frameTypes(drainFrames(t, first)))

	// the read pump of the old socket unregisters it later; that must not evict the new one
	hub.Unregister(first)

	require.NoError(t, second.Send(&collab.Event{Type: collab.TypePong}))
	assert.False(t, second.IsClosed())
}

func TestHubSweepExpiresIdleClients(t *testing.T) {
	hub := newTestHub(t)

	client := newTestClient("c-1", "doc-1", "alice", "editor", hub)
	registerClient(t, hub, client)

	hub.sweep(time.Now().Add(time.Hour))

	assert.True(t, client.IsClosed())
}

func TestHubShutdownNotifiesClients(t *testing.T) {
	hub := newTestHub(t)
	go hub.Run()

	client := newTestClient("c-1", "doc-1", "alice", "editor", hub)
	registerClient(t, hub, client)

	// wait for Run to mark the hub running
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return hub.running
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, hub.Shutdown(ctx))
	require.NoError(t, hub.Shutdown(ctx))

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, []string{"session_snapshot", "server_shutdown"}, frameTypes(drainFrames(t, client)))
}
