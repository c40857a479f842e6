package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Config represents the persistent loom configuration stored as config.toml
// in the .loom/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Model       ModelConfig       `toml:"model"`
	Agent       AgentConfig       `toml:"agent"`
	API         APIConfig         `toml:"api"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// StorageConfig selects the checkpoint and long-term store backend.
type StorageConfig struct {
	// Driver is "sqlite", "postgres" or "inmemory".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// ModelConfig holds the chat model provider settings.
type ModelConfig struct {
	Provider string `toml:"provider,omitempty"`

	// Target is the provider base URL. Empty uses the provider's default.
	Target string `toml:"target,omitempty"`

	// Name is the model name. Empty uses the provider's default.
	Name        string  `toml:"name,omitempty"`
	APIKey      string  `toml:"api_key,omitempty"`
	Temperature float64 `toml:"temperature,omitempty"`
	MaxAttempts uint    `toml:"max_attempts,omitempty"`
}

// AgentConfig holds executor settings.
type AgentConfig struct {
	CompactionThreshold uint   `toml:"compaction_threshold,omitempty"`
	MaxSteps            uint   `toml:"max_steps,omitempty"`
	UserID              string `toml:"user_id,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// VectorStoreConfig holds vector store settings. An empty provider disables
// message indexing.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// EventStreamConfig holds turn event publishing settings.
type EventStreamConfig struct {
	// Provider is "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of broker addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// enumKey is a string key restricted to choices. The empty string is always
// accepted and means "use the default".
func enumKey(name string, field func(c *Config) *string, choices ...string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			v = strings.ToLower(v)
			if v != "" && !slices.Contains(choices, v) {
				return fmt.Errorf("invalid value for %s: %q (supported: %s)", name, v, strings.Join(choices, ", "))
			}
			*field(c) = v
			return nil
		},
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			if v == "" {
				*field(c) = 0
				return nil
			}
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver":       enumKey("storage.driver", func(c *Config) *string { return &c.Storage.Driver }, "sqlite", "postgres", "inmemory"),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"model.provider": enumKey("model.provider", func(c *Config) *string { return &c.Model.Provider }, "ollama", "openai", "anthropic"),
	"model.target":   stringKey(func(c *Config) *string { return &c.Model.Target }),
	"model.name":     stringKey(func(c *Config) *string { return &c.Model.Name }),
	"model.api_key":  stringKey(func(c *Config) *string { return &c.Model.APIKey }),
	"model.temperature": {
		get: func(c *Config) string {
			if c.Model.Temperature == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Model.Temperature, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			if v == "" {
				c.Model.Temperature = 0
				return nil
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for model.temperature: %w", err)
			}
			if f < 0 || f > 2 {
				return fmt.Errorf("invalid value for model.temperature: %v is outside [0, 2]", f)
			}
			c.Model.Temperature = f
			return nil
		},
	},
	"model.max_attempts": uintKey("model.max_attempts", func(c *Config) *uint { return &c.Model.MaxAttempts }),

	"agent.compaction_threshold": uintKey("agent.compaction_threshold", func(c *Config) *uint { return &c.Agent.CompactionThreshold }),
	"agent.max_steps":            uintKey("agent.max_steps", func(c *Config) *uint { return &c.Agent.MaxSteps }),
	"agent.user_id":              stringKey(func(c *Config) *string { return &c.Agent.UserID }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"vector_store.provider": stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":   stringKey(func(c *Config) *string { return &c.VectorStore.Target }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),

	"eventstream.provider": enumKey("eventstream.provider", func(c *Config) *string { return &c.EventStream.Provider }, "nop", "kafka"),
	"eventstream.brokers":  stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
}

// orderedKeys matches the TOML section layout.
var orderedKeys = []string{
	"storage.driver",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"model.provider",
	"model.target",
	"model.name",
	"model.api_key",
	"model.temperature",
	"model.max_attempts",
	"agent.compaction_threshold",
	"agent.max_steps",
	"agent.user_id",
	"api.listen",
	"vector_store.provider",
	"vector_store.target",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
}
