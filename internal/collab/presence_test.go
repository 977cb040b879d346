package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceJoinOrder(t *testing.T) {
	p := NewPresence()
	base := time.Now()

	for i, userID := range []string{"carol", "alice", "bob"} {
		_, err := p.Join(&Participant{UserID: userID, JoinedAt: base.Add(time.Duration(i) * time.Second)}, JoinSupersede)
		require.NoError(t, err)
	}

	list := p.List()
	require.Len(t, list, 3)
	assert.Equal(t, "carol", list[0].UserID)
	assert.Equal(t, "alice", list[1].UserID)
	assert.Equal(t, "bob", list[2].UserID)
}

func TestPresenceDuplicateJoin(t *testing.T) {
	tests := []struct {
		name     string
		policy   JoinPolicy
		wantErr  error
		wantPrev bool
	}{
		{"supersede replaces the older connection", JoinSupersede, nil, true},
		{"reject refuses the newer connection", JoinReject, ErrDuplicateParticipant, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPresence()
			oldConn := newFakeConn("old", 1)
			newConn := newFakeConn("new", 1)

			_, err := p.Join(&Participant{UserID: "alice", conn: oldConn}, tt.policy)
			require.NoError(t, err)
			_, err = p.Join(&Participant{UserID: "bob"}, tt.policy)
			require.NoError(t, err)

			prev, err := p.Join(&Participant{UserID: "alice", conn: newConn}, tt.policy)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, prev)
				current, _ := p.Get("alice")
				assert.Equal(t, "old", current.conn.ID())
				return
			}

			require.NoError(t, err)
			require.NotNil(t, prev)
			assert.Equal(t, "old", prev.conn.ID())
			assert.Equal(t, 2, p.Len())

			// the rejoined participant moves to the end of the join order
			list := p.List()
			assert.Equal(t, "bob", list[0].UserID)
			assert.Equal(t, "alice", list[1].UserID)
		})
	}
}

func TestPresenceUpdateCursor(t *testing.T) {
	p := NewPresence()
	now := time.Now()

	err := p.UpdateCursor("ghost", Position{X: 1, Y: 1, Page: 1}, now)
	assert.ErrorIs(t, err, ErrUnknownParticipant)

	_, err = p.Join(&Participant{UserID: "alice", JoinedAt: now}, JoinSupersede)
	require.NoError(t, err)
	assert.Nil(t, p.List()[0].Cursor)

	require.NoError(t, p.UpdateCursor("alice", Position{X: 1, Y: 2, Page: 1}, now.Add(time.Second)))
	require.NoError(t, p.UpdateCursor("alice", Position{X: 5, Y: 6, Page: 3}, now.Add(2*time.Second)))

	list := p.List()
	require.NotNil(t, list[0].Cursor)
	assert.Equal(t, Position{X: 5, Y: 6, Page: 3}, *list[0].Cursor)
	assert.Equal(t, now.Add(2*time.Second), list[0].LastActive)

	// the listing is detached from live state
	list[0].Cursor.X = 99
	assert.Equal(t, 5.0, p.List()[0].Cursor.X)
}

func TestPresenceLeaveIsIdempotent(t *testing.T) {
	p := NewPresence()
	_, err := p.Join(&Participant{UserID: "alice"}, JoinSupersede)
	require.NoError(t, err)

	_, left := p.Leave("alice")
	assert.True(t, left)

	_, left = p.Leave("alice")
	assert.False(t, left)
	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.List())
}

func TestPresenceIdle(t *testing.T) {
	p := NewPresence()
	now := time.Now()

	_, err := p.Join(&Participant{UserID: "stale", JoinedAt: now.Add(-2 * time.Minute)}, JoinSupersede)
	require.NoError(t, err)
	_, err = p.Join(&Participant{UserID: "fresh", JoinedAt: now.Add(-2 * time.Minute)}, JoinSupersede)
	require.NoError(t, err)

	p.Touch("fresh", now)

	idle := p.Idle(now.Add(-time.Minute))
	require.Len(t, idle, 1)
	assert.Equal(t, "stale", idle[0].UserID)
}
