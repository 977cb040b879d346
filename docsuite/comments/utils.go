package comments

import "codeberg.org/docsuite/server/internal/collab"

// converts a thread comment to its stored row, replies are not copied
func ToRow(documentID string, c *collab.Comment) Row {
	row := Row{
		DocumentID: documentID,
		ID:         c.ID,
		AuthorID:   c.AuthorID,
		Content:    c.Content,
		Resolved:   c.Resolved,
		CreatedAt:  c.CreatedAt,
	}

	if c.ParentID != 0 {
		parentID := c.ParentID
		row.ParentID = &parentID
	}

	if c.Position != nil {
		x, y, page := c.Position.X, c.Position.Y, c.Position.Page
		row.X, row.Y, row.Page = &x, &y, &page
	}

	return row
}

// assembles rows in id order into top-level comments with nested replies
// replies whose parent is missing are dropped
func BuildThread(rows []Row) []*collab.Comment {
	thread := make([]*collab.Comment, 0, len(rows))
	byID := make(map[int64]*collab.Comment, len(rows))

	for _, row := range rows {
		c := &collab.Comment{
			ID:        row.ID,
			AuthorID:  row.AuthorID,
			Content:   row.Content,
			Resolved:  row.Resolved,
			CreatedAt: row.CreatedAt,
		}

		if row.X != nil && row.Y != nil && row.Page != nil {
			c.Position = &collab.Position{X: *row.X, Y: *row.Y, Page: *row.Page}
		}

		if row.ParentID == nil {
			byID[c.ID] = c
			thread = append(thread, c)
			continue
		}

		parent, ok := byID[*row.ParentID]
		if !ok {
			continue
		}

		c.ParentID = parent.ID
		parent.Replies = append(parent.Replies, c)
	}

	return thread
}
