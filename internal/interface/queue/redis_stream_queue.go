package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fare-pipeline/internal/domain/repository"
)

// field holding the JSON message body
const bodyField = "body"

// RedisStreamQueue publishes scrape messages to a redis stream
type RedisStreamQueue struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamQueue creates a stream-backed queue. maxLen caps the stream
// approximately; 0 leaves it unbounded.
func NewRedisStreamQueue(client *redis.Client, stream string, maxLen int64) repository.RemoteQueue {
	return &RedisStreamQueue{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Send appends one message
func (q *RedisStreamQueue) Send(ctx context.Context, body []byte) error {
	args := &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{bodyField: string(body)},
	}
	if q.maxLen > 0 {
		args.MaxLen = q.maxLen
		args.Approx = true
	}
	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to add message to stream %s: %w", q.stream, err)
	}
	return nil
}

// PurgeAll drops the stream with every pending message. Consumer groups are
// recreated by consumers.
func (q *RedisStreamQueue) PurgeAll(ctx context.Context) error {
	if err := q.client.Del(ctx, q.stream).Err(); err != nil {
		return fmt.Errorf("failed to purge stream %s: %w", q.stream, err)
	}
	return nil
}

// Name returns the stream name
func (q *RedisStreamQueue) Name() string {
	return q.stream
}
