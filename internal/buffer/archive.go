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

const (
	// time allowed for one batch write to redis or postgres
	writeTimeout = 5 * time.Second

	// pause before retrying a batch that neither store accepted
	retryDelay = time.Second
)

// persists comment threads through the redis buffer
// Record never blocks; records are written in order by a background worker
type Archive struct {
	sink    recordSink
	flusher documentFlusher
	repo    comments.Repository

	mu       sync.Mutex
	cond     *sync.Cond
	pending  []collab.ThreadRecord
	inflight bool
	closed   bool
	wg       sync.WaitGroup
}

// creates an archive that buffers in redis, flushes with flusher and reads from repo
func NewArchive(buffer *SessionBuffer, flusher *Flusher, repo comments.Repository) *Archive {
	return newArchive(buffer, flusher, repo)
}

func newArchive(sink recordSink, flusher documentFlusher, repo comments.Repository) *Archive {
	a := &Archive{
		sink:    sink,
		flusher: flusher,
		repo:    repo,
	}
	a.cond = sync.NewCond(&a.mu)

	a.wg.Add(1)
	go a.run()

	return a
}

// queues a thread change for persistence
func (a *Archive) Record(rec collab.ThreadRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		logger.Warn("thread record after archive close",
			"document_id", rec.DocumentID,
			"op", rec.Op,
		)
	}

	a.pending = append(a.pending, rec)
	a.cond.Broadcast()
}

// returns the persisted thread of a document, including records not yet flushed
func (a *Archive) LoadThread(ctx context.Context, documentID string) ([]*collab.Comment, error) {
	if err := a.Sync(ctx); err != nil {
		return nil, err
	}

	if a.flusher != nil {
		if err := a.flusher.FlushDocument(ctx, documentID); err != nil {
			return nil, fmt.Errorf("failed to flush document before load: %w", err)
		}
	}

	return a.repo.LoadThread(ctx, documentID)
}

// waits until every queued record has been handed to a store or ctx ends
func (a *Archive) Sync(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		a.mu.Lock()
		a.cond.Broadcast()
		a.mu.Unlock()
	})
	defer stop()

	a.mu.Lock()
	defer a.mu.Unlock()

	for len(a.pending) > 0 || a.inflight {
		if err := ctx.Err(); err != nil {
			return err
		}

		a.cond.Wait()
	}

	return nil
}

// stops the worker after the queue has drained
func (a *Archive) Close() {
	a.mu.Lock()
	a.closed = true
	a.cond.Broadcast()
	a.mu.Unlock()

	a.wg.Wait()
	logger.Info("thread archive stopped")
}

func (a *Archive) run() {
	defer a.wg.Done()

	for {
		a.mu.Lock()
		for len(a.pending) == 0 && !a.closed {
			a.cond.Wait()
		}

		if len(a.pending) == 0 && a.closed {
			a.mu.Unlock()
			return
		}

		batch := a.pending
		a.pending = nil
		a.inflight = true
		a.mu.Unlock()

		ok := a.write(batch)

		a.mu.Lock()
		if !ok {
			// keep the failed batch ahead of anything recorded since
			a.pending = append(batch, a.pending...)
		}
		a.inflight = false
		a.cond.Broadcast()
		closed := a.closed
		a.mu.Unlock()

		if !ok {
			if closed {
				logger.Error("dropping unpersisted thread records on shutdown", "records", len(batch))

				a.mu.Lock()
				a.pending = nil
				a.cond.Broadcast()
				a.mu.Unlock()

				return
			}

			time.Sleep(retryDelay)
		}
	}
}

// writes a batch grouped by document; falls back to postgres when redis fails
func (a *Archive) write(batch []collab.ThreadRecord) bool {
	for _, group := range groupByDocument(batch) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := a.sink.AppendRecords(ctx, group.documentID, group.records)
		cancel()

		if err == nil {
			continue
		}

		logger.ErrorErr(err, "failed to buffer thread records, writing to postgres",
			"document_id", group.documentID,
		)

		ctx, cancel = context.WithTimeout(context.Background(), writeTimeout)
		applied, err := applyRecords(ctx, a.repo, group.documentID, group.records)
		cancel()

		if err != nil {
			metrics.ArchiveFlushFailures.Inc()
			logger.ErrorErr(err, "failed to persist thread records",
				"document_id", group.documentID,
				"applied", applied,
			)

			return false
		}
	}

	return true
}

type documentRecords struct {
	documentID string
	records    []collab.ThreadRecord
}

// splits a batch per document, keeping record order within each document
func groupByDocument(batch []collab.ThreadRecord) []documentRecords {
	var groups []documentRecords
	index := make(map[string]int)

	for _, rec := range batch {
		i, ok := index[rec.DocumentID]
		if !ok {
			i = len(groups)
			index[rec.DocumentID] = i
			groups = append(groups, documentRecords{documentID: rec.DocumentID})
		}

		groups[i].records = append(groups[i].records, rec)
	}

	return groups
}
