package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/events"
	"github.com/noah-isme/toko-admin/internal/lock"
	"github.com/noah-isme/toko-admin/internal/queue"
	"github.com/noah-isme/toko-admin/internal/resilience"
)

type recordingSink struct {
	name  string
	mu    sync.Mutex
	calls []events.Envelope
	fail  error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(_ context.Context, env events.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, env)
	return s.fail
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func emitTask(t *testing.T, topic string) queue.Task {
	t.Helper()
	pub := &capturePublisher{}
	bus := &events.Bus{Queue: pub}
	_, err := bus.Emit(context.Background(), topic, 11, map[string]int{"n": 1})
	require.NoError(t, err)
	return pub.tasks[0]
}

func TestDispatcherDeliversToEverySink(t *testing.T) {
	_, client := newRedis(t)
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	d := &events.Dispatcher{
		Sinks:  []events.Sink{a, nil, b},
		Locker: lock.Locker{R: client},
		Ledger: events.RedisLedger{R: client, Prefix: "test"},
	}
	require.NoError(t, d.Handle(context.Background(), emitTask(t, events.TopicShopCreated)))
	require.Equal(t, 1, a.count())
	require.Equal(t, 1, b.count())
	require.Equal(t, events.TopicShopCreated, a.calls[0].Topic)
}

func TestDispatcherRetriesOnlyFailedSinks(t *testing.T) {
	_, client := newRedis(t)
	ok := &recordingSink{name: "ok"}
	flaky := &recordingSink{name: "flaky", fail: errors.New("boom")}
	d := &events.Dispatcher{
		Sinks:  []events.Sink{ok, flaky},
		Ledger: events.RedisLedger{R: client, Prefix: "test"},
	}
	task := emitTask(t, events.TopicInvoiceCreated)

	err := d.Handle(context.Background(), task)
	require.ErrorContains(t, err, "sink flaky")

	flaky.fail = nil
	require.NoError(t, d.Handle(context.Background(), task))
	require.Equal(t, 1, ok.count())
	require.Equal(t, 2, flaky.count())
}

func TestDispatcherReportsInFlight(t *testing.T) {
	mr, client := newRedis(t)
	task := emitTask(t, events.TopicCustomerCreated)
	env, err := events.Decode(task.Payload)
	require.NoError(t, err)
	require.NoError(t, mr.Set("events:"+env.ID.String(), "other"))

	sink := &recordingSink{name: "s"}
	d := &events.Dispatcher{Sinks: []events.Sink{sink}, Locker: lock.Locker{R: client}}
	err = d.Handle(context.Background(), task)
	require.ErrorIs(t, err, events.ErrInFlight)
	require.Zero(t, sink.count())
}

func TestDispatcherRejectsGarbage(t *testing.T) {
	d := &events.Dispatcher{}
	require.Error(t, d.Handle(context.Background(), queue.Task{Payload: []byte("x")}))
}

type fakeWriter struct {
	fails int
	msgs  []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.fails > 0 {
		w.fails--
		return errors.New("broker unavailable")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaSinkRetriesAndKeysByAggregate(t *testing.T) {
	w := &fakeWriter{fails: 1}
	sink := &events.KafkaSink{
		Writer: w,
		Retry:  resilience.Retry{MaxAttempts: 3, BaseBackoff: time.Millisecond},
	}
	env := events.Envelope{ID: uuid.New(), Topic: events.TopicProductCreated, AggregateID: 3, OccurredAt: time.Now()}
	require.NoError(t, sink.Deliver(context.Background(), env))
	require.Len(t, w.msgs, 1)
	require.Equal(t, "product.created:3", string(w.msgs[0].Key))
	require.Equal(t, "topic", w.msgs[0].Headers[0].Key)
	require.Equal(t, env.ID.String(), string(w.msgs[0].Headers[1].Value))
	require.Equal(t, "kafka", sink.Name())
}

func TestKafkaSinkGivesUpWhenBreakerOpens(t *testing.T) {
	w := &fakeWriter{fails: 10}
	sink := &events.KafkaSink{
		Writer: w,
		Retry: resilience.Retry{
			Breaker:     resilience.NewBreaker(1, 0.5, time.Minute),
			MaxAttempts: 5,
			BaseBackoff: time.Millisecond,
		},
	}
	err := sink.Deliver(context.Background(), events.Envelope{ID: uuid.New(), Topic: events.TopicShopDeleted, AggregateID: 1})
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, 9, w.fails)
}
