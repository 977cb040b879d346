package comments

import (
	"context"
	"time"

	"codeberg.org/docsuite/server/internal/collab"
)

// repository interface for the archived comment threads
type Repository interface {
	// returns the thread of a document, top-level comments with their replies, in id order
	LoadThread(ctx context.Context, documentID string) ([]*collab.Comment, error)

	// stores a comment or reply; storing the same id twice is a no-op
	InsertComment(ctx context.Context, documentID string, comment *collab.Comment) error

	// marks a top-level comment resolved; the comment is stored resolved when no row exists yet
	ResolveComment(ctx context.Context, documentID string, comment *collab.Comment) error

	// creates the comments table if missing
	EnsureSchema(ctx context.Context) error
}

// one stored comment row; replies carry a parent id and no position
type Row struct {
	DocumentID string
	ID         int64
	ParentID   *int64
	AuthorID   string
	Content    string
	X          *float64
	Y          *float64
	Page       *int
	Resolved   bool
	CreatedAt  time.Time
}
