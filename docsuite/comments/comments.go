package comments

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/docsuite/server/internal/collab"
)

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// creates the comments table if missing
func (r *repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, querySchema); err != nil {
		return fmt.Errorf("failed to create comments table: %w", err)
	}

	return nil
}

// retrieves the archived thread for a document
func (r *repository) LoadThread(ctx context.Context, documentID string) ([]*collab.Comment, error) {
	rows, err := r.db.Query(ctx, queryLoadThread, documentID)
	if err != nil {
		return nil, err
	}

	stored, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Row, error) {
		var c Row
		err := row.Scan(
			&c.DocumentID,
			&c.ID,
			&c.ParentID,
			&c.AuthorID,
			&c.Content,
			&c.X,
			&c.Y,
			&c.Page,
			&c.Resolved,
			&c.CreatedAt,
		)
		return c, err
	})
	if err != nil {
		return nil, err
	}

	return BuildThread(stored), nil
}

// stores a comment or reply
func (r *repository) InsertComment(ctx context.Context, documentID string, comment *collab.Comment) error {
	row := ToRow(documentID, comment)

	_, err := r.db.Exec(
		ctx,
		queryInsertComment,
		row.DocumentID,
		row.ID,
		row.ParentID,
		row.AuthorID,
		row.Content,
		row.X,
		row.Y,
		row.Page,
		row.Resolved,
		row.CreatedAt,
	)

	return err
}

// marks a top-level comment resolved, storing it first if its insert has not landed yet
func (r *repository) ResolveComment(ctx context.Context, documentID string, comment *collab.Comment) error {
	row := ToRow(documentID, comment)

	_, err := r.db.Exec(
		ctx,
		queryResolveComment,
		row.DocumentID,
		row.ID,
		row.AuthorID,
		row.Content,
		row.X,
		row.Y,
		row.Page,
		row.CreatedAt,
	)

	return err
}
