package collab

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// in-memory Conn with a bounded queue, like the websocket client
type fakeConn struct {
	id     string
	events chan *Event

	mu     sync.Mutex
	closed bool
}

func newFakeConn(id string, size int) *fakeConn {
	return &fakeConn{
		id:     id,
		events: make(chan *Event, size),
	}
}

func (c *fakeConn) ID() string {
	return c.id
}

func (c *fakeConn) Send(ev *Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}

	select {
	case c.events <- ev:
		return nil
	default:
		c.closed = true
		return ErrSlowConsumer
	}
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// returns every queued event without blocking
func (c *fakeConn) drain() []*Event {
	var out []*Event

	for {
		select {
		case ev := <-c.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// returns the queued events of the given type
func (c *fakeConn) drainType(eventType string) []*Event {
	var out []*Event

	for _, ev := range c.drain() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}

	return out
}

func eventTypes(events []*Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}

	return out
}

func command(t *testing.T, cmdType string, payload any) Command {
	t.Helper()

	cmd := Command{Type: cmdType, RequestID: "req-" + cmdType}

	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		cmd.Payload = raw
	}

	return cmd
}

// a clock tests can move by hand
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// in-memory Archive
type memoryArchive struct {
	mu      sync.Mutex
	threads map[string][]*Comment
	records []ThreadRecord
	loadErr error
	loads   int
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{threads: make(map[string][]*Comment)}
}

func (a *memoryArchive) LoadThread(_ context.Context, documentID string) ([]*Comment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loads++

	if a.loadErr != nil {
		return nil, a.loadErr
	}

	return a.threads[documentID], nil
}

func (a *memoryArchive) Record(rec ThreadRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = append(a.records, rec)
}
