package buffer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"codeberg.org/docsuite/server/internal/collab"
	"codeberg.org/docsuite/server/internal/logger"
)

// handles Redis-backed buffering for comment thread records
type SessionBuffer struct {
	client *redis.Client
}

// creates a new session buffer with Redis connection
func NewSessionBuffer(redisURL string) (*SessionBuffer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("connected to redis")

	return &SessionBuffer{
		client: client,
	}, nil
}

// closes the Redis connection
func (b *SessionBuffer) Close() error {
	return b.client.Close()
}

// returns the underlying Redis client for advanced operations
func (b *SessionBuffer) Client() *redis.Client {
	return b.client
}

// checks the Redis connection
func (b *SessionBuffer) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// appends records to the document's list and marks it dirty
func (b *SessionBuffer) AppendRecords(ctx context.Context, documentID string, records []collab.ThreadRecord) error {
	if len(records) == 0 {
		return nil
	}

	values, err := encodeRecords(records)
	if err != nil {
		return err
	}

	pipe := b.client.TxPipeline()
	pipe.RPush(ctx, fmt.Sprintf(keyDocumentThread, documentID), values...)
	pipe.SAdd(ctx, keyDirtyDocuments, documentID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to buffer thread records: %w", err)
	}

	return nil
}

// puts records back at the head of the document's list, keeping their order
func (b *SessionBuffer) RequeueRecords(ctx context.Context, documentID string, records []collab.ThreadRecord) error {
	if len(records) == 0 {
		return nil
	}

	values, err := encodeRecords(records)
	if err != nil {
		return err
	}

	// LPUSH inserts each value at the head in turn
	slices.Reverse(values)

	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, fmt.Sprintf(keyDocumentThread, documentID), values...)
	pipe.SAdd(ctx, keyDirtyDocuments, documentID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to requeue thread records: %w", err)
	}

	return nil
}

// returns all document IDs with unflushed records
func (b *SessionBuffer) DirtyDocuments(ctx context.Context) ([]string, error) {
	return b.client.SMembers(ctx, keyDirtyDocuments).Result()
}

// retrieves and clears the buffered records of a document
// an append racing with the flush aborts the transaction and it is retried
func (b *SessionBuffer) FlushRecords(ctx context.Context, documentID string) ([]collab.ThreadRecord, error) {
	key := fmt.Sprintf(keyDocumentThread, documentID)

	var raw []string

	txf := func(tx *redis.Tx) error {
		var err error

		raw, err = tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, keyDirtyDocuments, documentID)
			return nil
		})

		return err
	}

	var err error
	for range maxFlushTxRetries {
		err = b.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read thread records for flush: %w", err)
	}

	return decodeRecords(documentID, raw), nil
}

func encodeRecords(records []collab.ThreadRecord) ([]any, error) {
	values := make([]any, 0, len(records))

	for _, rec := range records {
		recJSON, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal thread record: %w", err)
		}

		values = append(values, recJSON)
	}

	return values, nil
}

func decodeRecords(documentID string, raw []string) []collab.ThreadRecord {
	records := make([]collab.ThreadRecord, 0, len(raw))

	for _, recJSON := range raw {
		var rec collab.ThreadRecord
		if err := json.Unmarshal([]byte(recJSON), &rec); err != nil {
			logger.ErrorErr(err, "failed to unmarshal buffered thread record", "document_id", documentID)
			continue
		}

		records = append(records, rec)
	}

	return records
}
