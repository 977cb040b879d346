package buffer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codeberg.org/docsuite/server/docsuite/comments"
	"codeberg.org/docsuite/server/internal/collab"
	"codeberg.org/docsuite/server/internal/logger"
	"codeberg.org/docsuite/server/internal/metrics"
)

// handles periodic flushing of buffered thread records from Redis to Postgres
type Flusher struct {
	buffer   *SessionBuffer
	repo     comments.Repository
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// serializes flushes so a document is never written by two flushes at once
	mu sync.Mutex
}

// creates a new flusher that periodically flushes Redis to Postgres
func NewFlusher(buffer *SessionBuffer, repo comments.Repository, interval time.Duration) *Flusher {
	return &Flusher{
		buffer:   buffer,
		repo:     repo,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// begins the background flush loop
func (f *Flusher) Start() {
	f.wg.Add(1)
	go f.run()
	logger.Info("buffer flusher started", "interval", f.interval.String())
}

// gracefully stops the flusher and flushes any remaining data
func (f *Flusher) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopCh)
	})

	f.wg.Wait()
	logger.Info("buffer flusher stopped")
}

func (f *Flusher) run() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.flush()
		case <-f.stopCh:
			// final flush before stopping
			logger.Info("flushing remaining buffer data before shutdown")
			f.flush()
			return
		}
	}
}

func (f *Flusher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	documentIDs, err := f.buffer.DirtyDocuments(ctx)
	if err != nil {
		logger.ErrorErr(err, "failed to get dirty documents")
		return
	}

	if len(documentIDs) == 0 {
		return
	}

	logger.Debug("flushing thread records for documents", "count", len(documentIDs))

	for _, documentID := range documentIDs {
		if err := f.FlushDocument(ctx, documentID); err != nil {
			logger.ErrorErr(err, "failed to flush document thread", "document_id", documentID)
		}
	}
}

// immediately flushes all buffered records for a document
func (f *Flusher) FlushDocument(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.buffer.FlushRecords(ctx, documentID)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return nil
	}

	applied, err := applyRecords(ctx, f.repo, documentID, records)
	if err != nil {
		metrics.ArchiveFlushFailures.Inc()

		// re-add unapplied records so we retry next flush
		if requeueErr := f.buffer.RequeueRecords(ctx, documentID, records[applied:]); requeueErr != nil {
			logger.ErrorErr(requeueErr, "failed to requeue thread records",
				"document_id", documentID,
				"records", len(records)-applied,
			)
		}

		return err
	}

	metrics.ArchiveFlushes.Inc()
	logger.Debug("flushed thread records to postgres",
		"document_id", documentID,
		"records", len(records),
	)

	return nil
}

// writes records to the repository in order and returns how many were applied
func applyRecords(ctx context.Context, repo comments.Repository, documentID string, records []collab.ThreadRecord) (int, error) {
	for i, rec := range records {
		var err error

		switch rec.Op {
		case collab.RecordCommentAdded:
			err = repo.InsertComment(ctx, documentID, &rec.Comment)
		case collab.RecordCommentResolved:
			err = repo.ResolveComment(ctx, documentID, &rec.Comment)
		default:
			logger.Warn("skipping unknown thread record",
				"document_id", documentID,
				"op", rec.Op,
			)
			continue
		}

		if err != nil {
			return i, fmt.Errorf("failed to persist %s record for comment %d: %w", rec.Op, rec.Comment.ID, err)
		}
	}

	return len(records), nil
}
