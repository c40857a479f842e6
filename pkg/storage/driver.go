// Package storage defines the persistence contracts of the runtime: a
// namespaced long-term store for extracted memories and a checkpoint log
// holding each conversation's short-term state.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/papercomputeco/loom/pkg/llm"
)

// Namespace scopes long-term items to one memory kind of one user.
type Namespace struct {
	Kind   string `json:"kind"`
	UserID string `json:"user_id"`
}

func (n Namespace) String() string {
	return n.Kind + "/" + n.UserID
}

// Item is a stored long-term record.
type Item struct {
	Namespace Namespace       `json:"namespace"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Driver is the long-term store.
//
// Put replaces the value of an existing key and keeps its creation time.
// Search returns every item of a namespace ordered by creation time.
type Driver interface {
	// Get retrieves the item at key. Returns NotFoundError when absent.
	Get(ctx context.Context, ns Namespace, key string) (*Item, error)

	// Put upserts value at key.
	Put(ctx context.Context, ns Namespace, key string, value json.RawMessage) error

	// Search lists all items in ns, oldest first.
	Search(ctx context.Context, ns Namespace) ([]*Item, error)

	// Close releases any resources held by the driver.
	Close() error
}

// CheckpointStore is the durable per-conversation log.
type CheckpointStore interface {
	// Load returns the state of conversationID, or an empty state when the
	// conversation has never been saved.
	Load(ctx context.Context, conversationID string) (*llm.ConversationState, error)

	// Save atomically replaces the stored state of state.ConversationID.
	Save(ctx context.Context, state *llm.ConversationState) error

	// Close releases any resources held by the store.
	Close() error
}

// Store is implemented by backends serving both contracts.
type Store interface {
	Driver
	Load(ctx context.Context, conversationID string) (*llm.ConversationState, error)
	Save(ctx context.Context, state *llm.ConversationState) error
}
