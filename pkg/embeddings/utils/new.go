// Package embeddingutils builds an embeddings.Embedder from configuration.
package embeddingutils

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/loom/pkg/embeddings"
	"github.com/papercomputeco/loom/pkg/embeddings/ollama"
)

type NewEmbedderOpts struct {
	// ProviderType is matched case-insensitively. Empty selects ollama.
	ProviderType string
	TargetURL    string
	Model        string
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch strings.ToLower(o.ProviderType) {
	case "", "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q (supported: ollama)", o.ProviderType)
	}
}
