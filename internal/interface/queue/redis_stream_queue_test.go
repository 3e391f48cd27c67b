package queue

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStreamQueue_SendAndPurge(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := NewRedisStreamQueue(client, "scrape-tasks", 0)
	assert.Equal(t, "scrape-tasks", q.Name())

	require.NoError(t, q.Send(ctx, []byte(`{"id":"t1"}`)))
	require.NoError(t, q.Send(ctx, []byte(`{"id":"t2"}`)))

	msgs, err := client.XRange(ctx, "scrape-tasks", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, `{"id":"t1"}`, msgs[0].Values[bodyField])

	require.NoError(t, q.PurgeAll(ctx))
	n, err := client.XLen(ctx, "scrape-tasks").Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, q.PurgeAll(ctx), "purging an empty queue succeeds")
}
