package events

import (
	"context"

	"github.com/rs/zerolog"
)

// Publish emits through em after a mutation has committed. A nil emitter is a
// no-op and failures are only logged.
func Publish(ctx context.Context, em Emitter, log zerolog.Logger, topic string, aggregateID int64, payload any) {
	if em == nil {
		return
	}
	if _, err := em.Emit(ctx, topic, aggregateID, payload); err != nil {
		log.Warn().Err(err).Str("topic", topic).Int64("aggregate_id", aggregateID).Msg("event_emit_failed")
	}
}
