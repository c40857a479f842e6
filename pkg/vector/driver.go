// Package vector provides interfaces and implementations for vector storage
// of conversation history embeddings.
package vector

import "context"

// DefaultTopK is used when a query asks for no particular number of results.
const DefaultTopK = 10

// Document represents an indexed message with its embedding and metadata.
type Document struct {
	// ID is the message id.
	ID string

	ConversationID string

	// UserID partitions the index. Queries never cross users.
	UserID string

	Role    string
	Content string

	// Embedding is the vector representation of Content.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// QueryOptions narrows a nearest-neighbour query.
type QueryOptions struct {
	// TopK is the maximum number of results. Zero means DefaultTopK.
	TopK int

	// UserID restricts results to one user's messages. Empty searches all.
	UserID string
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings. A document whose ID is
	// already stored replaces it.
	Add(ctx context.Context, docs []Document) error

	// Query finds the most similar documents to embedding, closest first.
	Query(ctx context.Context, embedding []float32, opts QueryOptions) ([]QueryResult, error)

	// Close releases any resources held by the driver.
	Close() error
}
