// Package eventstream publishes completed conversation turns to an event
// stream backend for downstream consumers (analytics, audit, replay).
package eventstream

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/loom/pkg/llm"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a turn resolves to a final reply.
	EventTypeTurnCompleted = "loom.turn.completed"
)

// ErrNilTurnEvent is returned by publishers handed a nil event.
var ErrNilTurnEvent = errors.New("nil turn event")

// Publisher delivers turn events to a backend. Publishing is best effort for
// the engine: a failure is logged, never surfaced to the caller of a turn.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnCompletedEvent) error
	Close() error
}

// TurnCompletedEvent is a transport-neutral event payload for a completed turn.
type TurnCompletedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	RequestMeta   TurnRequestMeta `json:"request_meta"`
	Turn          llm.Turn        `json:"turn"`
}

// EventSource identifies where the turn ran.
type EventSource struct {
	Surface  string `json:"surface,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// TurnRequestMeta captures turn lifecycle metadata for the event.
type TurnRequestMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Compacted   bool      `json:"compacted"`
}

// NewTurnCompletedEvent builds a v1 event for turn.
func NewTurnCompletedEvent(turn llm.Turn, source EventSource, started time.Time, compacted bool) *TurnCompletedEvent {
	now := time.Now().UTC()
	return &TurnCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnCompleted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     now,
		Source:        source,
		RequestMeta: TurnRequestMeta{
			StartedAt:   started.UTC(),
			CompletedAt: now,
			DurationMs:  now.Sub(started).Milliseconds(),
			Compacted:   compacted,
		},
		Turn: turn,
	}
}
