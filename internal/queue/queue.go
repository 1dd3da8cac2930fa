// Package queue implements a Redis sorted-set job queue with a visibility
// timeout, retries with backoff and a Postgres-backed dead letter queue.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-admin/internal/resilience"
)

const defaultMaxAttempts = 10

// Task represents a job to be processed asynchronously.
type Task struct {
	Kind           string
	Payload        []byte
	IdempotencyKey string
	MaxAttempts    int
	Delay          time.Duration
	// Attempt is 1 on first delivery. On Enqueue it seeds the counter so a
	// replayed task keeps its history.
	Attempt int
}

// Enqueuer publishes tasks to Redis backed queues.
type Enqueuer struct {
	R           *redis.Client
	Prefix      string
	DedupTTL    time.Duration
	MaxAttempts int
}

// Enqueue inserts the task into the queue. If an idempotency key is supplied the
// task is only enqueued once within the configured deduplication window.
func (e Enqueuer) Enqueue(ctx context.Context, t Task) error {
	if e.R == nil {
		return errors.New("queue: redis client not configured")
	}
	kind := sanitizeKind(t.Kind)
	if kind == "" {
		return errors.New("queue: task kind is required")
	}
	msg := taskMessage{
		Kind:        kind,
		Key:         t.IdempotencyKey,
		Payload:     t.Payload,
		Attempt:     max(t.Attempt, 0),
		MaxAttempts: t.MaxAttempts,
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = e.MaxAttempts
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = defaultMaxAttempts
	}
	msg.AvailableAt = time.Now().Add(t.Delay).UnixNano()

	k := keys{prefix: e.Prefix}
	if msg.Key != "" {
		ttl := e.DedupTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		ok, err := e.R.SetNX(ctx, k.dedup(kind, msg.Key), "1", ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := e.R.ZAdd(ctx, k.queue(kind), redis.Z{Score: float64(msg.AvailableAt), Member: raw}).Err(); err != nil {
		return err
	}
	observeDepth(ctx, e.R, k, kind)
	return nil
}

func sanitizeKind(kind string) string {
	for i := 0; i < len(kind); i++ {
		c := kind[i]
		if c >= 'a' && c <= 'z' {
			continue
		}
		if c >= '0' && c <= '9' {
			continue
		}
		if c == '-' || c == '_' || c == ':' || c == '.' {
			continue
		}
		return ""
	}
	return kind
}

// Worker consumes tasks for a specific kind.
type Worker struct {
	R                 *redis.Client
	Prefix            string
	Kind              string
	Concurrency       int
	VisibilityTimeout time.Duration
	// SoftDeadline bounds a single handler call. Zero means the handler
	// runs until the worker context ends.
	SoftDeadline time.Duration
	Handler      func(context.Context, Task) error
	RetryBase    time.Duration
	RetryJitter  float64
	// Store receives tasks that exhausted their attempts. When nil they are
	// kept in a Redis list only.
	Store  Store
	Logger *zerolog.Logger
}

// Run starts processing tasks until the context is cancelled. Active tasks are
// tracked in a processing set to enable redelivery when workers crash.
func (w Worker) Run(ctx context.Context) error {
	if w.R == nil {
		return errors.New("queue: worker redis client not configured")
	}
	if w.Handler == nil {
		return errors.New("queue: worker handler not configured")
	}
	kind := sanitizeKind(w.Kind)
	if kind == "" {
		return errors.New("queue: worker kind is required")
	}
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	visibility := w.VisibilityTimeout
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	retryBase := w.RetryBase
	if retryBase <= 0 {
		retryBase = 200 * time.Millisecond
	}

	k := keys{prefix: w.Prefix}
	queueKey := k.queue(kind)
	processingKey := k.processing(kind)
	log := w.logger().With().Str("kind", kind).Logger()

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	requeueTicker := time.NewTicker(visibilityTick(visibility))
	defer requeueTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-requeueTicker.C:
			if err := w.requeueExpired(ctx, processingKey, queueKey); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		default:
		}

		res, err := w.R.ZPopMin(ctx, queueKey, 1).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if errors.Is(err, redis.Nil) {
				sleep(ctx, 50*time.Millisecond)
				continue
			}
			return err
		}
		if len(res) == 0 {
			sleep(ctx, 50*time.Millisecond)
			continue
		}
		member, ok := res[0].Member.(string)
		if !ok {
			continue
		}
		msg, err := decodeMessage(member)
		if err != nil {
			log.Warn().Err(err).Msg("queue_drop_malformed")
			continue
		}
		now := time.Now().UnixNano()
		if msg.AvailableAt > now {
			// not due yet, push back and wait
			w.R.ZAdd(ctx, queueKey, redis.Z{Score: float64(msg.AvailableAt), Member: member})
			sleep(ctx, min(time.Duration(msg.AvailableAt-now), 50*time.Millisecond))
			continue
		}

		msg.Attempt++
		rawBytes, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		raw := string(rawBytes)
		deadline := time.Now().Add(visibility).UnixNano()
		if err := w.R.ZAdd(ctx, processingKey, redis.Z{Score: float64(deadline), Member: raw}).Err(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil
		}
		wg.Add(1)
		go func(raw string, m taskMessage) {
			defer func() { <-sem }()
			defer wg.Done()
			w.process(ctx, log, queueKey, processingKey, raw, m, retryBase)
		}(raw, msg)
	}
}

func (w Worker) process(ctx context.Context, log zerolog.Logger, queueKey, processingKey, raw string, m taskMessage, retryBase time.Duration) {
	jobCtx, cancel := context.WithCancel(ctx)
	if w.SoftDeadline > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, w.SoftDeadline)
	}
	defer cancel()

	task := Task{
		Kind:           m.Kind,
		Payload:        m.Payload,
		IdempotencyKey: m.Key,
		MaxAttempts:    m.MaxAttempts,
		Attempt:        m.Attempt,
	}
	err := w.Handler(jobCtx, task)

	// Bookkeeping must land even when the handler cancelled the worker.
	bg := context.WithoutCancel(ctx)
	if err != nil {
		log.Warn().Err(err).Int("attempt", m.Attempt).Int("max_attempts", m.MaxAttempts).Str("key", m.Key).Msg("queue_task_failed")
		w.handleFailure(bg, queueKey, processingKey, raw, m, retryBase, err)
		return
	}
	w.ack(bg, processingKey, raw, m)
	QueueProcessedTotal.WithLabelValues(queueLabel(m.Kind), "success").Inc()
}

func (w Worker) handleFailure(ctx context.Context, queueKey, processingKey, raw string, msg taskMessage, base time.Duration, cause error) {
	k := keys{prefix: w.Prefix}
	if raw != "" {
		_ = w.R.ZRem(ctx, processingKey, raw).Err()
	}
	if msg.MaxAttempts > 0 && msg.Attempt >= msg.MaxAttempts {
		w.moveToDLQ(ctx, k, msg, cause)
		QueueProcessedTotal.WithLabelValues(queueLabel(msg.Kind), "dlq").Inc()
		return
	}
	QueueProcessedTotal.WithLabelValues(queueLabel(msg.Kind), "retry").Inc()
	delay := resilience.Backoff(base, msg.Attempt, w.RetryJitter)
	msg.AvailableAt = time.Now().Add(delay).UnixNano()
	rawBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = w.R.ZAdd(ctx, queueKey, redis.Z{Score: float64(msg.AvailableAt), Member: string(rawBytes)}).Err()
}

func (w Worker) moveToDLQ(ctx context.Context, k keys, msg taskMessage, cause error) {
	rawBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}
	log := w.logger()
	if w.Store != nil {
		var lastErr *string
		if cause != nil {
			s := cause.Error()
			lastErr = &s
		}
		id, err := w.Store.InsertQueueDlq(ctx, DLQEntry{
			Kind:           msg.Kind,
			IdempotencyKey: msg.Key,
			Payload:        rawBytes,
			Attempts:       msg.Attempt,
			LastError:      lastErr,
			CreatedAt:      time.Now().UTC(),
		})
		if err != nil {
			log.Error().Err(err).Str("kind", msg.Kind).Msg("queue_dlq_persist_failed")
			_ = w.R.LPush(ctx, k.dlq(msg.Kind), rawBytes).Err()
		} else {
			log.Warn().Str("kind", msg.Kind).Str("dlq_id", id.String()).Int("attempts", msg.Attempt).Msg("queue_task_dead_lettered")
		}
		if n, err := w.Store.CountQueueDlq(ctx, msg.Kind); err == nil {
			QueueDLQSize.WithLabelValues(queueLabel(msg.Kind)).Set(float64(n))
		}
	} else {
		_ = w.R.LPush(ctx, k.dlq(msg.Kind), rawBytes).Err()
	}
	if msg.Key != "" {
		_ = w.R.Del(ctx, k.dedup(msg.Kind, msg.Key)).Err()
	}
}

func (w Worker) ack(ctx context.Context, processingKey, raw string, msg taskMessage) {
	if raw != "" {
		_ = w.R.ZRem(ctx, processingKey, raw).Err()
	}
	if msg.Key != "" {
		_ = w.R.Del(ctx, keys{prefix: w.Prefix}.dedup(msg.Kind, msg.Key)).Err()
	}
}

func (w Worker) requeueExpired(ctx context.Context, processingKey, queueKey string) error {
	now := float64(time.Now().UnixNano())
	due, err := w.R.ZRangeByScore(ctx, processingKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%f", now)}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	for _, raw := range due {
		msg, err := decodeMessage(raw)
		if err != nil {
			continue
		}
		removed, err := w.R.ZRem(ctx, processingKey, raw).Result()
		if err != nil || removed == 0 {
			continue
		}
		msg.AvailableAt = time.Now().UnixNano()
		encoded, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		_ = w.R.ZAdd(ctx, queueKey, redis.Z{Score: float64(msg.AvailableAt), Member: encoded}).Err()
		QueueProcessedTotal.WithLabelValues(queueLabel(msg.Kind), "requeued").Inc()
	}
	return nil
}

func (w Worker) logger() *zerolog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

func visibilityTick(visibility time.Duration) time.Duration {
	tick := visibility / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	if tick > time.Second {
		tick = time.Second
	}
	return tick
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

type keys struct {
	prefix string
}

func (k keys) queue(kind string) string {
	if k.prefix == "" {
		return fmt.Sprintf("queue:%s", kind)
	}
	return fmt.Sprintf("%s:queue:%s", k.prefix, kind)
}

func (k keys) processing(kind string) string {
	if k.prefix == "" {
		return fmt.Sprintf("queue:%s:processing", kind)
	}
	return fmt.Sprintf("%s:%s:processing", k.prefix, kind)
}

func (k keys) dlq(kind string) string {
	if k.prefix == "" {
		return fmt.Sprintf("queue:%s:dlq", kind)
	}
	return fmt.Sprintf("%s:%s:dlq", k.prefix, kind)
}

func (k keys) dedup(kind, key string) string {
	if k.prefix == "" {
		return fmt.Sprintf("queue:dedup:%s:%s", kind, key)
	}
	return fmt.Sprintf("%s:dedup:%s:%s", k.prefix, kind, key)
}

func decodeMessage(raw string) (taskMessage, error) {
	var msg taskMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return taskMessage{}, err
	}
	if msg.Kind == "" {
		return taskMessage{}, errors.New("queue: message without kind")
	}
	return msg, nil
}

type taskMessage struct {
	Kind        string `json:"kind"`
	Key         string `json:"key,omitempty"`
	Payload     []byte `json:"payload"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	AvailableAt int64  `json:"available_at"`
}
