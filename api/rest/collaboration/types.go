package collaboration

import (
	"context"
	"encoding/json"

	"codeberg.org/docsuite/server/api/rest/pagination"
	"codeberg.org/docsuite/server/internal/collab"
)

// live session access used by the handlers
type SessionReader interface {
	Snapshot(documentID string) (*collab.Snapshot, error)
	Sessions() []collab.SessionSummary
	Notify(documentID string, n collab.Notification) error
}

// archived thread access; nil when persistence is disabled
type ThreadLoader interface {
	LoadThread(ctx context.Context, documentID string) ([]*collab.Comment, error)
}

// where a comment listing came from
const (
	SourceLive    = "live"
	SourceArchive = "archive"
	SourceNone    = "none"
)

type ListSessionsResponse struct {
	Sessions   []collab.SessionSummary `json:"sessions"`
	Count      int                     `json:"count"`
	Pagination pagination.Meta         `json:"pagination"`
}

type CommentsResponse struct {
	DocumentID string            `json:"document_id"`
	Source     string            `json:"source"`
	Comments   []*collab.Comment `json:"comments"`
}

type NotifyRequest struct {
	Kind string          `json:"kind" binding:"required,max=64"`
	Data json.RawMessage `json:"data"`
}

type NotifyResponse struct {
	DocumentID string `json:"document_id"`
	Kind       string `json:"kind"`
	Delivered  bool   `json:"delivered"`
}
