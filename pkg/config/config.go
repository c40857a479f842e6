package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/loom/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// CurrentV is the config.toml layout this build reads and writes.
	CurrentV = 0
)

// Configer reads and writes config.toml in a resolved .loom/ directory.
type Configer struct {
	path string
}

func NewConfiger(override string) (*Configer, error) {
	path, err := dotdir.NewManager().Path(override, configFile)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	return &Configer{path: path}, nil
}

func (c *Configer) GetTarget() string {
	return c.path
}

// LoadConfig reads config.toml and fills every unset field from
// NewDefaultConfig, so callers always get a complete Config. A missing file
// yields the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// SaveConfig replaces config.toml with cfg.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := dotdir.WriteFile(c.path, buf.Bytes()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SetConfigValue validates value for key and persists it.
func (c *Configer) SetConfigValue(key, value string) error {
	info, err := lookupKey(key)
	if err != nil {
		return err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := info.set(cfg, value); err != nil {
		return err
	}
	return c.SaveConfig(cfg)
}

// UnsetConfigValue clears key so it falls back to its default.
func (c *Configer) UnsetConfigValue(key string) error {
	return c.SetConfigValue(key, "")
}

// DefaultConfigValue returns the built-in default of key, "" when it has none.
func DefaultConfigValue(key string) (string, error) {
	info, err := lookupKey(key)
	if err != nil {
		return "", err
	}
	return info.get(NewDefaultConfig()), nil
}

// GetConfigValue returns the effective value of key, defaults included.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, err := lookupKey(key)
	if err != nil {
		return "", err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}
	return info.get(cfg), nil
}

func lookupKey(key string) (configKeyInfo, error) {
	info, ok := configKeys[key]
	if !ok {
		return configKeyInfo{}, fmt.Errorf("unknown config key: %q", key)
	}
	return info, nil
}

// ValidConfigKeys returns all supported keys in config.toml section order.
func ValidConfigKeys() []string {
	return append([]string(nil), orderedKeys...)
}

func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

// ParseConfigTOML decodes config.toml. An absent version reads as CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}
	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	fill(&cfg.Storage.Driver, d.Storage.Driver)

	fill(&cfg.Model.Provider, d.Model.Provider)
	fill(&cfg.Model.MaxAttempts, d.Model.MaxAttempts)

	fill(&cfg.Agent.CompactionThreshold, d.Agent.CompactionThreshold)
	fill(&cfg.Agent.MaxSteps, d.Agent.MaxSteps)
	fill(&cfg.Agent.UserID, d.Agent.UserID)

	fill(&cfg.API.Listen, d.API.Listen)

	fill(&cfg.VectorStore.Provider, d.VectorStore.Provider)

	fill(&cfg.Embedding.Provider, d.Embedding.Provider)
	fill(&cfg.Embedding.Target, d.Embedding.Target)
	fill(&cfg.Embedding.Model, d.Embedding.Model)
	fill(&cfg.Embedding.Dimensions, d.Embedding.Dimensions)

	fill(&cfg.EventStream.Provider, d.EventStream.Provider)
	fill(&cfg.EventStream.Topic, d.EventStream.Topic)
}

func fill[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}

// presets are the model sections "loom init --preset" writes.
var presets = map[string]ModelConfig{
	"ollama": {
		Provider: "ollama",
		Target:   "http://localhost:11434",
		Name:     "llama3.2",
	},
	"openai": {
		Provider: "openai",
		Target:   "https://api.openai.com",
		Name:     "gpt-4o-mini",
	},
	"anthropic": {
		Provider: "anthropic",
		Target:   "https://api.anthropic.com",
		Name:     "claude-haiku-4-5-20251001",
	},
}

// PresetConfig returns the defaults with the model section of preset name.
func PresetConfig(name string) (*Config, error) {
	model, ok := presets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	cfg := NewDefaultConfig()
	model.MaxAttempts = cfg.Model.MaxAttempts
	cfg.Model = model
	return cfg, nil
}

func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "ollama"}
}
