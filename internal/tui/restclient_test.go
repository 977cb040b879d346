package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized","message":"authentication required"}`)) //nolint:errcheck,gosec
			return
		}

		switch r.URL.Path {
		case "/api/v1/sessions":
			w.Write([]byte(`{"sessions":[{"document_id":"doc1","participants":2,"locked_by":"alice"}],"count":1}`)) //nolint:errcheck,gosec
		case "/api/v1/documents/doc1/comments":
			w.Write([]byte(`{"document_id":"doc1","source":"archive","comments":[{"id":1,"author_id":"alice","content":"hi"}]}`)) //nolint:errcheck,gosec
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := NewRESTClient(srv.URL, "secret")
	require.NoError(t, err)

	sessions, err := client.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "doc1", sessions[0].DocumentID)
	assert.Equal(t, "alice", sessions[0].LockedBy)

	comments, source, err := client.Comments(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, "archive", source)
	require.Len(t, comments, 1)
	assert.Equal(t, "hi", comments[0].Content)

	unauthorized, err := NewRESTClient(srv.URL, "wrong")
	require.NoError(t, err)

	_, err = unauthorized.ListSessions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}
