package queue_test

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/queue"
)

const eventsKind = "events"

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// run starts w and returns a channel closed once Run returns.
func run(ctx context.Context, w queue.Worker) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	return done
}

func invoiceTask(key string, attempts int) queue.Task {
	return queue.Task{
		Kind:           eventsKind,
		Payload:        []byte(`{"topic":"invoice.created","aggregateId":7}`),
		IdempotencyKey: key,
		MaxAttempts:    attempts,
	}
}

func TestDuplicateKeyIsEnqueuedOnce(t *testing.T) {
	client := newRedis(t)
	enq := queue.Enqueuer{R: client, Prefix: "admin", DedupTTL: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, enq.Enqueue(ctx, invoiceTask("evt-1", 3)))
	require.NoError(t, enq.Enqueue(ctx, invoiceTask("evt-1", 3)))
	require.NoError(t, enq.Enqueue(ctx, invoiceTask("evt-2", 3)))

	depth, err := client.ZCard(ctx, "admin:queue:events").Result()
	require.NoError(t, err)
	require.Equal(t, int64(2), depth)

	var seen atomic.Int32
	done := run(ctx, queue.Worker{
		R:                 client,
		Prefix:            "admin",
		Kind:              eventsKind,
		Concurrency:       1,
		VisibilityTimeout: time.Second,
		RetryBase:         10 * time.Millisecond,
		Handler: func(_ context.Context, task queue.Task) error {
			if task.Kind != eventsKind {
				return errors.New("unexpected kind " + task.Kind)
			}
			if seen.Add(1) == 2 {
				cancel()
			}
			return nil
		},
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not drain the queue")
	}
	require.Equal(t, int32(2), seen.Load())
}

func TestFailedTaskIsRetried(t *testing.T) {
	client := newRedis(t)
	enq := queue.Enqueuer{R: client, Prefix: "retry"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, enq.Enqueue(ctx, invoiceTask("r1", 3)))

	var attempts atomic.Int32
	run(ctx, queue.Worker{
		R:                 client,
		Prefix:            "retry",
		Kind:              eventsKind,
		Concurrency:       1,
		VisibilityTimeout: time.Second,
		RetryBase:         5 * time.Millisecond,
		RetryJitter:       0.1,
		Handler: func(context.Context, queue.Task) error {
			if attempts.Add(1) == 1 {
				return errors.New("kafka unavailable")
			}
			cancel()
			return nil
		},
	})

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not retry in time")
	}
	require.GreaterOrEqual(t, attempts.Load(), int32(2))
}

func TestTaskPastSoftDeadlineIsRedelivered(t *testing.T) {
	client := newRedis(t)
	enq := queue.Enqueuer{R: client, Prefix: "vis", DedupTTL: time.Minute, MaxAttempts: 3}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := make(chan int, 2)
	log := zerolog.New(io.Discard)
	done := run(ctx, queue.Worker{
		R:                 client,
		Prefix:            "vis",
		Kind:              eventsKind,
		Concurrency:       1,
		VisibilityTimeout: 150 * time.Millisecond,
		SoftDeadline:      80 * time.Millisecond,
		RetryBase:         20 * time.Millisecond,
		Store:             newMemoryStore(),
		Logger:            &log,
		Handler: func(jobCtx context.Context, task queue.Task) error {
			attempts <- task.Attempt
			if task.Attempt == 1 {
				<-jobCtx.Done()
				return jobCtx.Err()
			}
			cancel()
			return nil
		},
	})

	require.NoError(t, enq.Enqueue(context.Background(), invoiceTask("slow-1", 3)))

	require.Eventually(t, func() bool { return len(attempts) >= 2 }, 2*time.Second, 20*time.Millisecond)
	require.Equal(t, 1, <-attempts)
	require.Equal(t, 2, <-attempts)
	<-done

	depth, err := client.ZCard(context.Background(), "vis:queue:events").Result()
	require.NoError(t, err)
	require.Zero(t, depth)
}

func TestExhaustedTaskLandsInDeadLetterStore(t *testing.T) {
	client := newRedis(t)
	store := newMemoryStore()
	enq := queue.Enqueuer{R: client, Prefix: "dlq", MaxAttempts: 2}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := zerolog.New(io.Discard)
	done := run(ctx, queue.Worker{
		R:                 client,
		Prefix:            "dlq",
		Kind:              eventsKind,
		Concurrency:       1,
		VisibilityTimeout: 120 * time.Millisecond,
		RetryBase:         20 * time.Millisecond,
		Store:             store,
		Logger:            &log,
		Handler: func(context.Context, queue.Task) error {
			return errors.New("telegram rejected message")
		},
	})

	require.NoError(t, enq.Enqueue(context.Background(), invoiceTask("dead-1", 2)))

	require.Eventually(t, func() bool {
		count, err := store.CountQueueDlq(context.Background(), eventsKind)
		return err == nil && count == 1
	}, 2*time.Second, 20*time.Millisecond)

	for _, entry := range store.snapshot() {
		require.Equal(t, eventsKind, entry.Kind)
		require.Equal(t, "dead-1", entry.IdempotencyKey)
		require.Equal(t, 2, entry.Attempts)
		require.NotNil(t, entry.LastError)
		require.Contains(t, *entry.LastError, "telegram rejected")
	}

	cancel()
	<-done
}
