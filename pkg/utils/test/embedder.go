// Package testutils holds test doubles shared across package suites.
package testutils

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// MockEmbedder derives a stable vector from each text, so equal texts embed
// equally and different texts almost never do.
type MockEmbedder struct {
	// Dims is the vector length. Zero means 3.
	Dims int

	// FailOn makes Embed fail for exactly this text.
	FailOn string

	mu    sync.Mutex
	texts []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}
	return m.Vector(text), nil
}

// Vector is the embedding Embed returns for text.
func (m *MockEmbedder) Vector(text string) []float32 {
	dims := m.Dims
	if dims == 0 {
		dims = 3
	}

	v := make([]float32, dims)
	for i := range v {
		h := fnv.New32a()
		fmt.Fprintf(h, "%d:%s", i, text)
		v[i] = float32(h.Sum32()%1000) / 1000
	}
	return v
}

// Texts returns every text passed to Embed, in call order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

func (m *MockEmbedder) Close() error {
	return nil
}
