// Package provider builds llm.Model clients for the supported model APIs
// and decorates them with retries.
package provider

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/loom/pkg/llm/provider/ollama"
	"github.com/papercomputeco/loom/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Ollama}
}

// KeySource looks up a stored API key by provider name.
// *credentials.Manager satisfies it.
type KeySource interface {
	GetKey(provider string) (string, error)
}

// Config selects and configures a model client.
type Config struct {
	// Provider is one of SupportedProviders.
	Provider string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Model is the provider's model name. Empty selects its default.
	Model string

	// APIKey takes precedence over Keys and the environment.
	APIKey string

	// Keys is consulted when APIKey is empty.
	Keys KeySource

	Temperature *float64
	MaxTokens   int
	HTTPClient  *http.Client
}

// Named is a model that reports its model name.
type Named interface {
	llm.Model
	Name() string
}

// New creates the client for cfg.Provider.
func New(cfg Config) (Named, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch name {
	case OpenAI:
		return openai.New(openai.Config{
			BaseURL:     cfg.BaseURL,
			APIKey:      resolveAPIKey(cfg, name),
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			HTTPClient:  cfg.HTTPClient,
		}), nil

	case Anthropic:
		key := resolveAPIKey(cfg, name)
		if key == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("no API key for %s: set %s or store one with 'loom auth set'", name, EnvVar(name))
		}
		return anthropic.New(anthropic.Config{
			BaseURL:     cfg.BaseURL,
			APIKey:      key,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			HTTPClient:  cfg.HTTPClient,
		}), nil

	case Ollama:
		return ollama.New(ollama.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			HTTPClient:  cfg.HTTPClient,
		}), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", cfg.Provider, SupportedProviders())
	}
}

// EnvVar returns the environment variable holding the API key of provider.
func EnvVar(provider string) string {
	switch provider {
	case OpenAI:
		return "OPENAI_API_KEY"
	case Anthropic:
		return "ANTHROPIC_API_KEY"
	}
	return ""
}

// resolveAPIKey resolves in order: explicit key, key source, environment.
func resolveAPIKey(cfg Config, provider string) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	if cfg.Keys != nil {
		if key, err := cfg.Keys.GetKey(provider); err == nil && key != "" {
			return key
		}
	}
	if env := EnvVar(provider); env != "" {
		return os.Getenv(env)
	}
	return ""
}
