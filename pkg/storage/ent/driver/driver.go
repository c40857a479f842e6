// Package entdriver implements the storage contracts on top of ent's
// dialect-aware SQL builder. It is database-agnostic and embedded by the
// sqlite and postgres drivers.
package entdriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/storage"
	"github.com/papercomputeco/loom/pkg/storage/ent/schema"
)

// EntDriver provides storage operations using an ent SQL driver.
type EntDriver struct {
	Driver *entsql.Driver
}

// New migrates the schema on drv and returns an EntDriver using it.
func New(ctx context.Context, drv *entsql.Driver) (*EntDriver, error) {
	if err := schema.Create(ctx, drv); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &EntDriver{Driver: drv}, nil
}

func (ed *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(ed.Driver.Dialect())
}

// Get retrieves the item at key in ns.
func (ed *EntDriver) Get(ctx context.Context, ns storage.Namespace, key string) (*storage.Item, error) {
	query, args := ed.builder().
		Select("key", "value", "created_at", "updated_at").
		From(entsql.Table(schema.MemoriesTable)).
		Where(entsql.And(
			entsql.EQ("kind", ns.Kind),
			entsql.EQ("user_id", ns.UserID),
			entsql.EQ("key", key),
		)).
		Limit(1).
		Query()

	items, err := ed.queryItems(ctx, ns, query, args)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, storage.NotFoundError{Namespace: ns, Key: key}
	}

	return items[0], nil
}

// Put upserts value at key in ns. The creation time of an existing row is
// preserved.
func (ed *EntDriver) Put(ctx context.Context, ns storage.Namespace, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("invalid JSON value for %s/%s", ns, key)
	}

	now := time.Now().UTC()
	query, args := ed.builder().
		Insert(schema.MemoriesTable).
		Columns("kind", "user_id", "key", "value", "created_at", "updated_at").
		Values(ns.Kind, ns.UserID, key, string(value), now, now).
		OnConflict(
			entsql.ConflictColumns("kind", "user_id", "key"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("value")
				u.SetExcluded("updated_at")
			}),
		).
		Query()

	var res sql.Result
	if err := ed.Driver.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("could not upsert item: %w", err)
	}

	return nil
}

// Search lists every item in ns ordered by creation time, then insertion.
func (ed *EntDriver) Search(ctx context.Context, ns storage.Namespace) ([]*storage.Item, error) {
	query, args := ed.builder().
		Select("key", "value", "created_at", "updated_at").
		From(entsql.Table(schema.MemoriesTable)).
		Where(entsql.And(
			entsql.EQ("kind", ns.Kind),
			entsql.EQ("user_id", ns.UserID),
		)).
		OrderBy("created_at", "id").
		Query()

	return ed.queryItems(ctx, ns, query, args)
}

func (ed *EntDriver) queryItems(ctx context.Context, ns storage.Namespace, query string, args []any) ([]*storage.Item, error) {
	rows := &entsql.Rows{}
	if err := ed.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*storage.Item
	for rows.Next() {
		var (
			key, value string
			created    time.Time
			updated    time.Time
		)
		if err := rows.Scan(&key, &value, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, &storage.Item{
			Namespace: ns,
			Key:       key,
			Value:     json.RawMessage(value),
			CreatedAt: created,
			UpdatedAt: updated,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}

// Load returns the checkpointed state of conversationID, or an empty state.
func (ed *EntDriver) Load(ctx context.Context, conversationID string) (*llm.ConversationState, error) {
	query, args := ed.builder().
		Select("summary", "messages", "updated_at").
		From(entsql.Table(schema.CheckpointsTable)).
		Where(entsql.EQ("conversation_id", conversationID)).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := ed.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to query checkpoint: %w", err)
	}
	defer rows.Close()

	state := llm.NewConversationState(conversationID)
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read checkpoint: %w", err)
		}
		return state, nil
	}

	var (
		summary, messages string
		updated           time.Time
	)
	if err := rows.Scan(&summary, &messages, &updated); err != nil {
		return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
	}
	if err := json.Unmarshal([]byte(messages), &state.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint messages: %w", err)
	}
	state.Summary = summary
	state.UpdatedAt = updated

	return state, nil
}

// Save replaces the checkpoint of state.ConversationID in one statement.
func (ed *EntDriver) Save(ctx context.Context, state *llm.ConversationState) error {
	if state == nil || state.ConversationID == "" {
		return fmt.Errorf("cannot save checkpoint without a conversation id")
	}

	msgs := state.Messages
	if msgs == nil {
		msgs = []llm.Message{}
	}
	encoded, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	updated := state.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	query, args := ed.builder().
		Insert(schema.CheckpointsTable).
		Columns("conversation_id", "summary", "messages", "updated_at").
		Values(state.ConversationID, state.Summary, string(encoded), updated).
		OnConflict(
			entsql.ConflictColumns("conversation_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	var res sql.Result
	if err := ed.Driver.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("could not save checkpoint: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (ed *EntDriver) Close() error {
	return ed.Driver.Close()
}
