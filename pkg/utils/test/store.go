package testutils

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/storage"
	"github.com/papercomputeco/loom/pkg/storage/inmemory"
)

// ErrStoreDown is returned by FlakyStore when a failure flag is set.
var ErrStoreDown = errors.New("mock store unavailable")

// FlakyStore wraps an in-memory store and fails selected operations on demand.
type FlakyStore struct {
	*inmemory.Driver

	// FailPut causes Put to return ErrStoreDown.
	FailPut bool

	// FailSearch causes Get and Search to return ErrStoreDown.
	FailSearch bool

	// FailSave causes Save to return ErrStoreDown.
	FailSave bool

	// Saves counts successful Save calls.
	Saves int
}

// NewFlakyStore creates a FlakyStore with no failures enabled.
func NewFlakyStore() *FlakyStore {
	return &FlakyStore{Driver: inmemory.NewDriver()}
}

func (s *FlakyStore) Get(ctx context.Context, ns storage.Namespace, key string) (*storage.Item, error) {
	if s.FailSearch {
		return nil, ErrStoreDown
	}
	return s.Driver.Get(ctx, ns, key)
}

func (s *FlakyStore) Put(ctx context.Context, ns storage.Namespace, key string, value json.RawMessage) error {
	if s.FailPut {
		return ErrStoreDown
	}
	return s.Driver.Put(ctx, ns, key, value)
}

func (s *FlakyStore) Search(ctx context.Context, ns storage.Namespace) ([]*storage.Item, error) {
	if s.FailSearch {
		return nil, ErrStoreDown
	}
	return s.Driver.Search(ctx, ns)
}

func (s *FlakyStore) Save(ctx context.Context, state *llm.ConversationState) error {
	if s.FailSave {
		return ErrStoreDown
	}
	s.Saves++
	return s.Driver.Save(ctx, state)
}
