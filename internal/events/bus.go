// Package events turns admin mutations into envelopes on the Redis queue and
// delivers them to downstream sinks from the worker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/obs"
	"github.com/noah-isme/toko-admin/internal/queue"
	"github.com/noah-isme/toko-admin/internal/tenant"
)

// DefaultKind is the queue kind envelopes are enqueued under.
const DefaultKind = "events"

// Envelope is the wire form of a domain event.
type Envelope struct {
	ID          uuid.UUID       `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID int64           `json:"aggregateId"`
	ShopID      int64           `json:"shopId,omitempty"`
	Actor       string          `json:"actor,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Payload     json.RawMessage `json:"payload"`
}

// Key is the partition key used by ordered sinks.
func (e Envelope) Key() string {
	return e.Topic + ":" + strconv.FormatInt(e.AggregateID, 10)
}

// Publisher accepts queue tasks. queue.Enqueuer implements it.
type Publisher interface {
	Enqueue(ctx context.Context, t queue.Task) error
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, topic string, aggregateID int64, payload any) (Envelope, error)
}

// Bus builds envelopes and hands them to the queue.
type Bus struct {
	Queue       Publisher
	Kind        string
	MaxAttempts int
	Now         func() time.Time
}

// Emit enqueues one event. The envelope id doubles as the queue idempotency
// key so a retried Emit is delivered once.
func (b *Bus) Emit(ctx context.Context, topic string, aggregateID int64, payload any) (Envelope, error) {
	if b == nil || b.Queue == nil {
		return Envelope{}, errors.New("events: queue not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Envelope{}, errors.New("events: topic is required")
	}
	if aggregateID <= 0 {
		return Envelope{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: encode payload: %w", err)
	}
	env := Envelope{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		OccurredAt:  b.now().UTC(),
		Payload:     encoded,
	}
	if shopID, ok := tenant.ShopID(ctx); ok {
		env.ShopID = shopID
	}
	if actor, ok := common.UserID(ctx); ok {
		env.Actor = actor
	}
	body, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: encode envelope: %w", err)
	}
	err = b.Queue.Enqueue(ctx, queue.Task{
		Kind:           b.kind(),
		Payload:        body,
		IdempotencyKey: env.ID.String(),
		MaxAttempts:    b.MaxAttempts,
	})
	obs.ObserveEmit(topic, err)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: enqueue %s: %w", topic, err)
	}
	return env, nil
}

func (b *Bus) kind() string {
	if b.Kind == "" {
		return DefaultKind
	}
	return b.Kind
}

func (b *Bus) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Decode parses an envelope produced by Emit.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("events: decode envelope: %w", err)
	}
	if env.ID == uuid.Nil || env.Topic == "" {
		return Envelope{}, errors.New("events: envelope missing id or topic")
	}
	return env, nil
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		return rawJSON(v)
	case json.RawMessage:
		return rawJSON(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return []byte("{}"), nil
		}
		return rawJSON([]byte(v))
	default:
		return json.Marshal(v)
	}
}

func rawJSON(v []byte) ([]byte, error) {
	if len(v) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(v) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), v...), nil
}
