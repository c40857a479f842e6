package testutils

import (
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/loom/pkg/vector"
)

// MockVectorDriver is a test vector driver. Query returns Results when set,
// otherwise the stored documents of the queried user in insertion order.
type MockVectorDriver struct {
	mu        sync.Mutex
	documents []vector.Document

	// Results overrides Query output when non-nil.
	Results []vector.QueryResult

	// FailAdd causes Add to return an error.
	FailAdd error

	// LastQuery records the options of the most recent Query.
	LastQuery vector.QueryOptions
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		documents: make([]vector.Document, 0),
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAdd != nil {
		return m.FailAdd
	}
	for _, doc := range docs {
		m.documents = slices.DeleteFunc(m.documents, func(d vector.Document) bool { return d.ID == doc.ID })
		m.documents = append(m.documents, doc)
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, opts vector.QueryOptions) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := m.Results
	if results == nil {
		results = make([]vector.QueryResult, 0, len(m.documents))
		for _, d := range m.documents {
			if opts.UserID != "" && d.UserID != opts.UserID {
				continue
			}
			results = append(results, vector.QueryResult{Document: d, Score: 1})
		}
	}
	m.LastQuery = opts

	topK := opts.TopK
	if topK <= 0 {
		topK = vector.DefaultTopK
	}
	if len(results) > topK {
		return results[:topK], nil
	}
	return results, nil
}

// Documents returns a copy of every stored document.
func (m *MockVectorDriver) Documents() []vector.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.documents)
}

func (m *MockVectorDriver) Close() error {
	return nil
}
