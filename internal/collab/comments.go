package collab

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// append-only comment log with single-level replies
// not safe for concurrent use, the owning session serializes access
type Thread struct {
	comments []*Comment
	byID     map[int64]*Comment
	lastID   int64
}

func NewThread() *Thread {
	return &Thread{
		byID: make(map[int64]*Comment),
	}
}

// appends a top-level comment and returns a copy of it
func (t *Thread) AddComment(authorID, content string, pos *Position, now time.Time) (*Comment, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	if err := validatePosition(pos); err != nil {
		return nil, err
	}

	anchor := *pos
	t.lastID++

	c := &Comment{
		ID:        t.lastID,
		AuthorID:  authorID,
		Content:   content,
		Position:  &anchor,
		CreatedAt: now,
	}

	t.comments = append(t.comments, c)
	t.byID[c.ID] = c

	return copyComment(c), nil
}

// appends a reply under a top-level comment and returns a copy of it
func (t *Thread) AddReply(commentID int64, authorID, content string, now time.Time) (*Comment, error) {
	parent, exists := t.byID[commentID]
	if !exists {
		return nil, ErrCommentNotFound
	}

	if parent.ParentID != 0 {
		return nil, ErrNestedReply
	}

	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	t.lastID++

	reply := &Comment{
		ID:        t.lastID,
		ParentID:  parent.ID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
	}

	parent.Replies = append(parent.Replies, reply)
	t.byID[reply.ID] = reply

	return copyComment(reply), nil
}

// marks a top-level comment resolved, changed is false if it already was
func (t *Thread) Resolve(commentID int64) (changed bool, err error) {
	c, exists := t.byID[commentID]
	if !exists {
		return false, ErrCommentNotFound
	}

	if c.ParentID != 0 {
		return false, ErrResolveReply
	}

	if c.Resolved {
		return false, nil
	}

	c.Resolved = true

	return true, nil
}

// returns a deep copy of the thread in creation order
func (t *Thread) List() []*Comment {
	list := make([]*Comment, 0, len(t.comments))

	for _, c := range t.comments {
		list = append(list, copyComment(c))
	}

	return list
}

// returns a copy of any comment or reply by id
func (t *Thread) Get(commentID int64) (*Comment, bool) {
	c, exists := t.byID[commentID]
	if !exists {
		return nil, false
	}

	return copyComment(c), true
}

// replaces the thread with archived comments, ids continue after the highest restored one
func (t *Thread) Restore(comments []*Comment) {
	t.comments = t.comments[:0]
	t.byID = make(map[int64]*Comment, len(comments))
	t.lastID = 0

	for _, c := range comments {
		top := copyComment(c)
		top.ParentID = 0

		t.comments = append(t.comments, top)
		t.byID[top.ID] = top
		t.lastID = max(t.lastID, top.ID)

		for _, reply := range top.Replies {
			reply.ParentID = top.ID
			reply.Replies = nil
			t.byID[reply.ID] = reply
			t.lastID = max(t.lastID, reply.ID)
		}
	}
}

func (t *Thread) Len() int {
	return len(t.comments)
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)

	if content == "" {
		return "", ErrEmptyContent
	}

	if n := utf8.RuneCountInString(content); n > maxContentLength {
		return "", fmt.Errorf("%w: got %d", ErrContentTooLong, n)
	}

	return content, nil
}

func validatePosition(pos *Position) error {
	if pos == nil || pos.Page < 1 {
		return ErrInvalidPosition
	}

	if math.IsNaN(pos.X) || math.IsInf(pos.X, 0) || math.IsNaN(pos.Y) || math.IsInf(pos.Y, 0) {
		return ErrInvalidPosition
	}

	return nil
}

func copyComment(c *Comment) *Comment {
	cp := *c

	if c.Position != nil {
		pos := *c.Position
		cp.Position = &pos
	}

	if c.Replies != nil {
		cp.Replies = make([]*Comment, 0, len(c.Replies))

		for _, reply := range c.Replies {
			cp.Replies = append(cp.Replies, copyComment(reply))
		}
	}

	return &cp
}
