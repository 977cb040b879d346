package collaboration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/docsuite/server/internal/auth"
	"codeberg.org/docsuite/server/internal/collab"
)

const testSecret = "test-secret-key-for-testing"

type recordingConn struct {
	id     string
	mu     sync.Mutex
	events []*collab.Event
}

func (c *recordingConn) ID() string {
	return c.id
}

func (c *recordingConn) Send(ev *collab.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, ev)
	return nil
}

func (c *recordingConn) Close() {}

func (c *recordingConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Type)
	}

	return out
}

type stubArchive struct {
	comments []*collab.Comment
	err      error
}

func (a *stubArchive) LoadThread(context.Context, string) ([]*collab.Comment, error) {
	return a.comments, a.err
}

func newTestRouter(t *testing.T, manager *collab.Manager, archive ThreadLoader) *gin.Engine {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), manager, archive)

	return r
}

func token(t *testing.T, userID, role string) string {
	t.Helper()

	tok, err := auth.GenerateJWT(userID, userID, "", role, time.Hour)
	require.NoError(t, err)

	return tok
}

func do(r *gin.Engine, method, target, tok, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func joinDoc(t *testing.T, m *collab.Manager, documentID, userID string) *recordingConn {
	t.Helper()

	conn := &recordingConn{id: "c-" + userID}
	_, err := m.OnConnect(context.Background(), documentID, collab.Identity{UserID: userID, DisplayName: userID}, conn)
	require.NoError(t, err)

	return conn
}

func TestListSessions(t *testing.T) {
	m := collab.NewManager(collab.NewRegistry())
	r := newTestRouter(t, m, nil)
	tok := token(t, "alice", auth.RoleEditor)

	w := do(r, http.MethodGet, "/api/v1/sessions", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":[],"count":0,"pagination":{"total":0,"limit":50,"offset":0,"has_more":false}}`, w.Body.String())

	joinDoc(t, m, "doc1", "alice")
	joinDoc(t, m, "doc1", "bob")
	joinDoc(t, m, "doc2", "carol")

	w = do(r, http.MethodGet, "/api/v1/sessions", tok, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListSessionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "doc1", resp.Sessions[0].DocumentID)
	assert.Equal(t, 2, resp.Sessions[0].Participants)
	assert.Equal(t, 2, resp.Pagination.Total)

	w = do(r, http.MethodGet, "/api/v1/sessions?limit=1&offset=1", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "doc2", resp.Sessions[0].DocumentID)
	assert.False(t, resp.Pagination.HasMore)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/sessions", "", "").Code)
}

func TestGetSession(t *testing.T) {
	m := collab.NewManager(collab.NewRegistry())
	r := newTestRouter(t, m, nil)
	tok := token(t, "alice", auth.RoleEditor)

	w := do(r, http.MethodGet, "/api/v1/documents/doc1/session", tok, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "session_not_found")

	joinDoc(t, m, "doc1", "alice")

	w = do(r, http.MethodGet, "/api/v1/documents/doc1/session", tok, "")
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot collab.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, "doc1", snapshot.DocumentID)
	require.Len(t, snapshot.Participants, 1)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/documents/bad%20id/session", tok, "").Code)
}

func TestGetComments(t *testing.T) {
	archived := []*collab.Comment{{ID: 3, AuthorID: "bob", Content: "archived"}}

	tests := []struct {
		name       string
		live       bool
		archive    ThreadLoader
		wantStatus int
		wantSource string
		wantLen    int
	}{
		{"live session", true, &stubArchive{comments: archived}, http.StatusOK, SourceLive, 0},
		{"archived thread", false, &stubArchive{comments: archived}, http.StatusOK, SourceArchive, 1},
		{"no archive", false, nil, http.StatusOK, SourceNone, 0},
		{"archive failure", false, &stubArchive{err: errors.New("db down")}, http.StatusInternalServerError, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := collab.NewManager(collab.NewRegistry())
			r := newTestRouter(t, m, tt.archive)

			if tt.live {
				joinDoc(t, m, "doc1", "alice")
			}

			w := do(r, http.MethodGet, "/api/v1/documents/doc1/comments", token(t, "alice", auth.RoleEditor), "")
			require.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp CommentsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantSource, resp.Source)
			assert.Len(t, resp.Comments, tt.wantLen)
		})
	}
}

func TestNotify(t *testing.T) {
	m := collab.NewManager(collab.NewRegistry())
	r := newTestRouter(t, m, nil)

	service := token(t, "analysis", auth.RoleService)
	editor := token(t, "alice", auth.RoleEditor)
	body := `{"kind":"analysis_completed","data":{"score":0.93}}`

	// no live session
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/v1/documents/doc1/notifications", service, body).Code)

	conn := joinDoc(t, m, "doc1", "alice")

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/v1/documents/doc1/notifications", editor, body).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/documents/doc1/notifications", service, `{"data":{}}`).Code)

	w := do(r, http.MethodPost, "/api/v1/documents/doc1/notifications", service, body)
	require.Equal(t, http.StatusAccepted, w.Code)

	assert.Equal(t, []string{collab.TypeSessionSnapshot, collab.TypeNotification}, conn.types())
}
