package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/loom/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the LOOM_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (LOOM_MODEL_PROVIDER, LOOM_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("LOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper decodes the layered configuration into a Config.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Driver:      v.GetString("storage.driver"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Model: ModelConfig{
			Provider:    v.GetString("model.provider"),
			Target:      v.GetString("model.target"),
			Name:        v.GetString("model.name"),
			APIKey:      v.GetString("model.api_key"),
			Temperature: v.GetFloat64("model.temperature"),
			MaxAttempts: v.GetUint("model.max_attempts"),
		},
		Agent: AgentConfig{
			CompactionThreshold: v.GetUint("agent.compaction_threshold"),
			MaxSteps:            v.GetUint("agent.max_steps"),
			UserID:              v.GetString("agent.user_id"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		VectorStore: VectorStoreConfig{
			Provider: v.GetString("vector_store.provider"),
			Target:   v.GetString("vector_store.target"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  v.GetString("eventstream.brokers"),
			Topic:    v.GetString("eventstream.topic"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
//
// model.temperature has no default so that viper.IsSet reports whether the
// user chose one; providers keep their own default otherwise.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.target", d.Model.Target)
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.api_key", d.Model.APIKey)
	v.SetDefault("model.max_attempts", d.Model.MaxAttempts)

	v.SetDefault("agent.compaction_threshold", d.Agent.CompactionThreshold)
	v.SetDefault("agent.max_steps", d.Agent.MaxSteps)
	v.SetDefault("agent.user_id", d.Agent.UserID)

	v.SetDefault("api.listen", d.API.Listen)

	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)
}
