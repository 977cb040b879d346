package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/docsuite/server/internal/auth"
	"codeberg.org/docsuite/server/internal/config"
)

const testSecret = "test-secret-key-for-testing"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := config.FromEnv(func(key string) string {
		switch key {
		case "JWT_SECRET":
			return testSecret
		case "ENVIRONMENT":
			return "test"
		}
		return ""
	})
	require.NoError(t, err)

	srv, err := NewServer(cfg)
	require.NoError(t, err)

	srv.start()

	ts := httptest.NewServer(srv.router)
	t.Cleanup(func() {
		ts.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.shutdown(ctx)
	})

	return srv, ts
}

func TestHealthRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/health", "/health/ready", "/api/v1/ping", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close() //nolint:errcheck,gosec // test code

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

type wsPeer struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, ts *httptest.Server, documentID, userID string) *wsPeer {
	t.Helper()

	tok, err := auth.GenerateJWT(userID, strings.ToUpper(userID), "", auth.RoleEditor, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/documents/" + documentID + "/ws?token=" + tok

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close() //nolint:errcheck,gosec // test code

	t.Cleanup(func() {
		conn.Close() //nolint:errcheck,gosec // test code
	})

	return &wsPeer{t: t, conn: conn}
}

func (p *wsPeer) send(msgType, requestID, payload string) {
	p.t.Helper()

	frame := `{"type":"` + msgType + `","request_id":"` + requestID + `"`
	if payload != "" {
		frame += `,"payload":` + payload
	}
	frame += "}"

	require.NoError(p.t, p.conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

// reads frames until one of the wanted type arrives
func (p *wsPeer) expect(msgType string) map[string]any {
	p.t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	require.NoError(p.t, p.conn.SetReadDeadline(deadline))

	for {
		_, data, err := p.conn.ReadMessage()
		require.NoError(p.t, err, "waiting for %s", msgType)

		for _, part := range bytes.Split(data, []byte{'\n'}) {
			var frame map[string]any
			require.NoError(p.t, json.Unmarshal(part, &frame))

			if frame["type"] == msgType {
				return frame
			}
		}
	}
}

func TestWebSocketDocumentSession(t *testing.T) {
	_, ts := newTestServer(t)

	alice := dial(t, ts, "doc1", "alice")
	snapshot := alice.expect("session_snapshot")
	assert.Equal(t, "doc1", snapshot["document_id"])

	bob := dial(t, ts, "doc1", "bob")
	bob.expect("session_snapshot")
	joined := alice.expect("participant_joined")
	assert.Equal(t, "bob", joined["user_id"])

	alice.send("lock_acquire", "r1", "")
	acquired := bob.expect("lock_acquired")
	assert.Equal(t, "alice", acquired["payload"].(map[string]any)["holder"])

	bob.send("lock_acquire", "r2", "")
	denied := bob.expect("error")
	assert.Equal(t, "r2", denied["request_id"])
	assert.Equal(t, "lock_held", denied["payload"].(map[string]any)["error"])

	alice.send("comment_add", "r3", `{"content":"check this figure","position":{"x":1,"y":2,"page":1}}`)
	added := bob.expect("comment_added")
	assert.EqualValues(t, 1, added["payload"].(map[string]any)["id"])

	// alice drops; bob sees her leave and the lock released
	require.NoError(t, alice.conn.Close())

	bob.expect("participant_left")
	released := bob.expect("lock_released")
	assert.Equal(t, "holder_left", released["payload"].(map[string]any)["reason"])

	bob.send("lock_acquire", "r4", "")
	assert.Equal(t, "bob", bob.expect("lock_acquired")["payload"].(map[string]any)["holder"])
}

func TestWebSocketRejectsBadRequests(t *testing.T) {
	_, ts := newTestServer(t)

	base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/documents/"

	_, resp, err := websocket.DefaultDialer.Dial(base+"doc1/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"doc1/ws?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
