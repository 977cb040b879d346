package buffer

import (
	"context"

	"codeberg.org/docsuite/server/internal/collab"
)

// redis key patterns
const (
	// document:{documentID}:thread - stores pending thread records as a JSON list
	keyDocumentThread = "document:%s:thread"

	// dirty_documents:thread - set of document IDs with unflushed thread records
	keyDirtyDocuments = "dirty_documents:thread"
)

// attempts at the optimistic flush transaction before giving up for this round
const maxFlushTxRetries = 3

// where the archive writes batches of records; SessionBuffer in production
type recordSink interface {
	AppendRecords(ctx context.Context, documentID string, records []collab.ThreadRecord) error
}

// moves a document's buffered records into the durable store
type documentFlusher interface {
	FlushDocument(ctx context.Context, documentID string) error
}
