package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/polygraphy/digest/internal/domain"
	"github.com/polygraphy/digest/internal/queue"
)

func newTestQueue(t *testing.T) (*queue.StreamsClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return queue.NewStreamsClientFromRedis(client, "digest:tasks"), mr
}

func newTestConsumer(t *testing.T, client *queue.StreamsClient, id string) *queue.Consumer {
	t.Helper()

	consumer, err := queue.NewConsumer(client, queue.ConsumerConfig{
		ConsumerGroup: "digest-workers",
		ConsumerID:    id,
		BlockTimeout:  10 * time.Millisecond,
		BatchSize:     10,
		ClaimMinIdle:  5 * time.Minute,
		MaxDeliveries: 3,
	})
	require.NoError(t, err)
	require.NoError(t, consumer.Initialize(context.Background()))

	return consumer
}

func TestProducerConsumer_RoundTrip(t *testing.T) {
	client, _ := newTestQueue(t)
	ctx := context.Background()

	consumer := newTestConsumer(t, client, "worker-1")
	producer := queue.NewProducer(client)

	require.NoError(t, producer.DispatchCrawl(ctx, "src-42"))

	tasks, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	task := tasks[0]
	require.Equal(t, domain.TaskKindProcessSource, task.Task.Kind)
	require.Equal(t, "src-42", task.Task.SourceID)
	require.NotEmpty(t, task.Task.ID)
	require.EqualValues(t, 1, task.DeliveryCount)

	require.NoError(t, consumer.Acknowledge(ctx, task))

	// Acknowledged work is gone.
	tasks, err = consumer.Read(ctx)
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestConsumer_ReclaimsAbandonedTasks(t *testing.T) {
	client, mr := newTestQueue(t)
	ctx := context.Background()

	crashed := newTestConsumer(t, client, "crashed-worker")
	producer := queue.NewProducer(client)

	require.NoError(t, producer.DispatchCrawl(ctx, "src-1"))

	// The first worker reads the task and dies without acknowledging.
	tasks, err := crashed.Read(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	survivor := newTestConsumer(t, client, "surviving-worker")

	// Not idle long enough yet.
	tasks, err = survivor.Read(ctx)
	require.NoError(t, err)
	require.Empty(t, tasks)

	// FastForward only moves TTLs; stream pending idle time follows the
	// clock set via SetTime.
	mr.SetTime(time.Now().UTC().Add(10 * time.Minute))

	tasks, err = survivor.Read(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "src-1", tasks[0].Task.SourceID)
	require.Greater(t, tasks[0].DeliveryCount, int64(1))
}

func TestConsumer_Exhausted(t *testing.T) {
	client, _ := newTestQueue(t)
	consumer := newTestConsumer(t, client, "worker-1")

	task := &queue.ConsumedTask{DeliveryCount: 3}
	require.False(t, consumer.Exhausted(task), "delivery count at the limit is still allowed")

	task.DeliveryCount = 4
	require.True(t, consumer.Exhausted(task))
}

func TestConsumer_SkipsUndecodableMessages(t *testing.T) {
	client, _ := newTestQueue(t)
	ctx := context.Background()

	consumer := newTestConsumer(t, client, "worker-1")

	_, err := client.XAdd(ctx, map[string]any{"task": "not json"})
	require.NoError(t, err)

	tasks, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Empty(t, tasks, "undecodable message is acknowledged away, not returned")
}

func TestInflightGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	guard := queue.NewInflightGuard(client, time.Minute)

	acquired, err := guard.Acquire(ctx, "src-1")
	require.NoError(t, err)
	require.True(t, acquired)

	// A second worker cannot take the same source.
	acquired, err = guard.Acquire(ctx, "src-1")
	require.NoError(t, err)
	require.False(t, acquired)

	// But a different source is fine.
	acquired, err = guard.Acquire(ctx, "src-2")
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, guard.Release(ctx, "src-1"))

	acquired, err = guard.Acquire(ctx, "src-1")
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestInflightGuard_LockExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	guard := queue.NewInflightGuard(client, time.Minute)

	acquired, err := guard.Acquire(ctx, "src-1")
	require.NoError(t, err)
	require.True(t, acquired)

	mr.FastForward(2 * time.Minute)

	acquired, err = guard.Acquire(ctx, "src-1")
	require.NoError(t, err)
	require.True(t, acquired, "a crashed worker's lock expires with its TTL")
}
