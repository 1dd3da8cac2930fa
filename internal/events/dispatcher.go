package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-admin/internal/lock"
	"github.com/noah-isme/toko-admin/internal/obs"
	"github.com/noah-isme/toko-admin/internal/queue"
)

// ErrInFlight is returned when another worker is delivering the same event.
var ErrInFlight = errors.New("events: delivery in flight")

// Sink receives delivered envelopes.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, env Envelope) error
}

// Locker guards a single delivery. lock.Locker implements it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Ledger remembers which sinks already accepted an event so a retried task
// only goes to the sinks that failed.
type Ledger interface {
	Delivered(ctx context.Context, eventID, sink string) (bool, error)
	MarkDelivered(ctx context.Context, eventID, sink string) error
}

// Dispatcher is the queue handler for event envelopes.
type Dispatcher struct {
	Sinks   []Sink
	Locker  Locker
	LockTTL time.Duration
	Ledger  Ledger
	Logger  zerolog.Logger
}

// Handle decodes the task and delivers it to every sink. Any sink failure
// fails the task so the queue retries it.
func (d *Dispatcher) Handle(ctx context.Context, task queue.Task) error {
	env, err := Decode(task.Payload)
	if err != nil {
		return err
	}
	if d.Locker == nil {
		return d.deliver(ctx, env)
	}
	err = d.Locker.TryLock(ctx, "events:"+env.ID.String(), d.LockTTL, func(ctx context.Context) error {
		return d.deliver(ctx, env)
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		return ErrInFlight
	}
	return err
}

func (d *Dispatcher) deliver(ctx context.Context, env Envelope) error {
	var joined error
	id := env.ID.String()
	for _, sink := range d.Sinks {
		if sink == nil {
			continue
		}
		name := sink.Name()
		if d.Ledger != nil {
			done, err := d.Ledger.Delivered(ctx, id, name)
			if err != nil {
				d.Logger.Warn().Err(err).Str("sink", name).Str("event_id", id).Msg("event_ledger_read_failed")
			} else if done {
				continue
			}
		}
		start := time.Now()
		err := sink.Deliver(ctx, env)
		obs.ObserveDelivery(name, obs.DurationMillis(time.Since(start)), err)
		if err != nil {
			d.Logger.Warn().Err(err).Str("sink", name).Str("topic", env.Topic).Str("event_id", id).Msg("event_delivery_failed")
			joined = errors.Join(joined, fmt.Errorf("events: sink %s: %w", name, err))
			continue
		}
		if d.Ledger != nil {
			if err := d.Ledger.MarkDelivered(ctx, id, name); err != nil {
				d.Logger.Warn().Err(err).Str("sink", name).Str("event_id", id).Msg("event_ledger_write_failed")
			}
		}
	}
	return joined
}

// RedisLedger stores delivery marks as expiring keys.
type RedisLedger struct {
	R      *redis.Client
	Prefix string
	TTL    time.Duration
}

func (l RedisLedger) key(eventID, sink string) string {
	return l.Prefix + ":delivered:" + eventID + ":" + sink
}

// Delivered implements Ledger.
func (l RedisLedger) Delivered(ctx context.Context, eventID, sink string) (bool, error) {
	n, err := l.R.Exists(ctx, l.key(eventID, sink)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkDelivered implements Ledger.
func (l RedisLedger) MarkDelivered(ctx context.Context, eventID, sink string) error {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return l.R.Set(ctx, l.key(eventID, sink), "1", ttl).Err()
}
