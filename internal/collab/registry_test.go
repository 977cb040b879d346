package collab

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryConcurrentGetOrCreate(t *testing.T) {
	r := NewRegistry()

	const workers = 50
	sessions := make([]*Session, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sessions[i] = r.GetOrCreate("doc1")
		}()
	}
	wg.Wait()

	for _, s := range sessions {
		assert.Same(t, sessions[0], s)
	}
	assert.Equal(t, 1, r.Count())
}

func TestRegistryReplacesClosedSession(t *testing.T) {
	r := NewRegistry()

	first := r.GetOrCreate("doc1")
	require.True(t, r.RemoveIfEmpty("doc1"))
	assert.True(t, first.Closed())

	second := r.GetOrCreate("doc1")
	assert.NotSame(t, first, second)
	assert.False(t, second.Closed())
}

func TestRegistryIsolation(t *testing.T) {
	m1, _ := newTestManager()
	m2, _ := newTestManager()

	connect(t, m1, "doc1", "A")

	assert.Equal(t, 1, m1.Registry().Count())
	assert.Equal(t, 0, m2.Registry().Count())
}

func TestRegistrySessionsListing(t *testing.T) {
	m, _ := newTestManager()

	a, _ := connect(t, m, "doc-b", "A")
	connect(t, m, "doc-b", "B")
	connect(t, m, "doc-a", "C")
	require.NoError(t, m.OnMessage(a, command(t, TypeLockAcquire, nil)))

	summaries := m.Sessions()
	require.Len(t, summaries, 2)
	assert.Equal(t, "doc-a", summaries[0].DocumentID)
	assert.Equal(t, 1, summaries[0].Participants)
	assert.Equal(t, "doc-b", summaries[1].DocumentID)
	assert.Equal(t, 2, summaries[1].Participants)
	assert.Equal(t, "A", summaries[1].LockedBy)
}

// joins and leaves race with removal; every join must land in a live session
func TestRegistryJoinLeaveRace(t *testing.T) {
	m, _ := newTestManager()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := range 25 {
				conn := newFakeConn(fmt.Sprintf("c-%d-%d", i, j), 256)
				_, err := m.OnConnect(context.Background(), "doc1", Identity{UserID: fmt.Sprintf("u-%d", i)}, conn)
				if !assert.NoError(t, err) {
					return
				}

				m.OnDisconnect(conn)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, m.Registry().Count())
	assert.Equal(t, 0, m.Registry().SweepEmpty(time.Now().Add(time.Hour), 0))
}
