// Package ollama implements embeddings.Embedder over Ollama's /api/embed.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/papercomputeco/loom/pkg/embeddings"
	"github.com/papercomputeco/loom/pkg/llm/provider/wire"
	"github.com/papercomputeco/loom/pkg/vector"
)

const (
	// DefaultEmbeddingModel is used when no model is configured.
	DefaultEmbeddingModel = "embeddinggemma"

	// DefaultBaseURL is the local Ollama daemon.
	DefaultBaseURL = "http://localhost:11434"
)

// Embedder calls Ollama's embedding endpoint.
type Embedder struct {
	url    string
	model  string
	client *http.Client
}

var _ embeddings.Embedder = (*Embedder)(nil)

// EmbedderConfig holds configuration for the Ollama embedder.
type EmbedderConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	HTTPClient *http.Client
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbedder creates a new embedder using Ollama's embedding API.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		url:    strings.TrimSuffix(baseURL, "/") + "/api/embed",
		model:  model,
		client: wire.NewClient(cfg.HTTPClient),
	}, nil
}

// Embed converts text into a vector embedding. Errors wrap
// vector.ErrEmbedding and carry the fault kind of the HTTP failure.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := wire.PostJSON(ctx, e.client, e.url, nil, embedRequest{Model: e.model, Input: text}, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrEmbedding, err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: ollama returned no embeddings for model %s", vector.ErrEmbedding, e.model)
	}

	return resp.Embeddings[0], nil
}

func (e *Embedder) Close() error {
	return nil
}
