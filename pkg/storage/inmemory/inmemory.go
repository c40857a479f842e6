// Package inmemory provides a map-backed storage driver for tests and
// ephemeral sessions.
package inmemory

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/storage"
)

// Driver implements storage.Store using in-memory maps.
type Driver struct {
	// mu guards items and checkpoints
	mu sync.RWMutex

	// items maps a namespace to its keyed records
	items map[storage.Namespace]map[string]*entry

	// seq numbers inserts so Search keeps insertion order on CreatedAt ties
	seq uint64

	now func() time.Time

	// checkpoints maps a conversation id to its last saved state
	checkpoints map[string]*llm.ConversationState
}

type entry struct {
	item *storage.Item
	seq  uint64
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock sets the clock stamped on items. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

// NewDriver creates a new in-memory store.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		items:       make(map[storage.Namespace]map[string]*entry),
		checkpoints: make(map[string]*llm.ConversationState),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Get retrieves the item at key in ns.
func (s *Driver) Get(_ context.Context, ns storage.Namespace, key string) (*storage.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.items[ns][key]
	if !ok {
		return nil, storage.NotFoundError{Namespace: ns, Key: key}
	}

	return copyItem(e.item), nil
}

// Put upserts value at key in ns.
func (s *Driver) Put(_ context.Context, ns storage.Namespace, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("invalid JSON value for %s/%s", ns, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.items[ns]
	if !ok {
		bucket = make(map[string]*entry)
		s.items[ns] = bucket
	}

	now := s.now().UTC()
	if existing, ok := bucket[key]; ok {
		existing.item.Value = slices.Clone(value)
		existing.item.UpdatedAt = now
		return nil
	}

	s.seq++
	bucket[key] = &entry{
		item: &storage.Item{
			Namespace: ns,
			Key:       key,
			Value:     slices.Clone(value),
			CreatedAt: now,
			UpdatedAt: now,
		},
		seq: s.seq,
	}
	return nil
}

// Search lists every item in ns, oldest first.
func (s *Driver) Search(_ context.Context, ns storage.Namespace) ([]*storage.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*entry, 0, len(s.items[ns]))
	for _, e := range s.items[ns] {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b *entry) int {
		if c := a.item.CreatedAt.Compare(b.item.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	result := make([]*storage.Item, 0, len(entries))
	for _, e := range entries {
		result = append(result, copyItem(e.item))
	}
	return result, nil
}

// Load returns a copy of the saved state of conversationID.
func (s *Driver) Load(_ context.Context, conversationID string) (*llm.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.checkpoints[conversationID]
	if !ok {
		return llm.NewConversationState(conversationID), nil
	}

	return state.Clone(), nil
}

// Save stores a copy of state.
func (s *Driver) Save(_ context.Context, state *llm.ConversationState) error {
	if state == nil || state.ConversationID == "" {
		return errors.New("cannot save checkpoint without a conversation id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints[state.ConversationID] = state.Clone()
	return nil
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}

func copyItem(item *storage.Item) *storage.Item {
	c := *item
	c.Value = slices.Clone(item.Value)
	return &c
}
