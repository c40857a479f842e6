// Package nop provides the publisher used when no event stream is configured.
package nop

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/loom/pkg/eventstream"
	"github.com/papercomputeco/loom/pkg/logger"
)

// Publisher drops turn events after noting them at debug level.
type Publisher struct {
	log *slog.Logger
}

// NewPublisher returns a Publisher logging to log, which may be nil.
func NewPublisher(log *slog.Logger) *Publisher {
	return &Publisher{log: logger.OrNop(log)}
}

func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.log.DebugContext(ctx, "turn completed",
		"event_id", event.EventID,
		"conversation_id", event.Turn.ConversationID,
		"steps", event.Turn.Steps,
		"duration_ms", event.RequestMeta.DurationMs,
		"compacted", event.RequestMeta.Compacted,
	)
	return nil
}

func (p *Publisher) Close() error {
	return nil
}
