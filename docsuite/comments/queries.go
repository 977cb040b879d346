package comments

const (
	querySchema = `
		CREATE TABLE IF NOT EXISTS document_comments (
			document_id TEXT NOT NULL,
			id BIGINT NOT NULL,
			parent_id BIGINT,
			author_id TEXT NOT NULL,
			content TEXT NOT NULL,
			x DOUBLE PRECISION,
			y DOUBLE PRECISION,
			page INTEGER,
			resolved BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (document_id, id)
		)
	`

	queryLoadThread = `
		SELECT document_id, id, parent_id, author_id, content, x, y, page, resolved, created_at
		FROM document_comments
		WHERE document_id = $1
		ORDER BY id ASC
	`

	queryInsertComment = `
		INSERT INTO document_comments (
			document_id, id, parent_id, author_id, content, x, y, page, resolved, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (document_id, id) DO NOTHING
	`

	// the row may not exist yet when its add record is still buffered in redis
	queryResolveComment = `
		INSERT INTO document_comments (
			document_id, id, parent_id, author_id, content, x, y, page, resolved, created_at
		)
		VALUES ($1, $2, NULL, $3, $4, $5, $6, $7, true, $8)
		ON CONFLICT (document_id, id) DO UPDATE
		SET resolved = true
		WHERE document_comments.parent_id IS NULL
	`
)
