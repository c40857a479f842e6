package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --provider
// on both "loom chat" and "loom serve").
type Flag struct {
	// Name is the long flag name (e.g. "provider").
	Name string

	// Shorthand is the one-letter short flag (e.g. "p"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "model.provider").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagProvider            = "provider"
	FlagModel               = "model"
	FlagModelTarget         = "model-target"
	FlagStorageDriver       = "storage"
	FlagSQLite              = "sqlite"
	FlagPostgresDSN         = "postgres-dsn"
	FlagUserID              = "user"
	FlagMaxSteps            = "max-steps"
	FlagCompactionThreshold = "compaction-threshold"
	FlagAPIListen           = "listen"
	FlagVectorStoreProv     = "vector-store-provider"
	FlagVectorStoreTgt      = "vector-store-target"
	FlagEmbeddingProv       = "embedding-provider"
	FlagEmbeddingTgt        = "embedding-target"
	FlagEmbeddingModel      = "embedding-model"
	FlagEmbeddingDims       = "embedding-dimensions"
	FlagEventStreamProv     = "eventstream-provider"
	FlagEventStreamBrokers  = "eventstream-brokers"
	FlagEventStreamTopic    = "eventstream-topic"
)

// Flags is the registry shared by every loom command.
var Flags = FlagSet{
	FlagProvider:            {Name: "provider", Shorthand: "p", ViperKey: "model.provider", Description: "Model provider (openai, anthropic, ollama)"},
	FlagModel:               {Name: "model", Shorthand: "m", ViperKey: "model.name", Description: "Model name (default: provider's default)"},
	FlagModelTarget:         {Name: "model-target", ViperKey: "model.target", Description: "Model provider base URL"},
	FlagStorageDriver:       {Name: "storage", ViperKey: "storage.driver", Description: "Storage driver (sqlite, postgres, inmemory)"},
	FlagSQLite:              {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database (default: .loom/loom.sqlite)"},
	FlagPostgresDSN:         {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagUserID:              {Name: "user", Shorthand: "u", ViperKey: "agent.user_id", Description: "User whose long-term memory is used"},
	FlagMaxSteps:            {Name: "max-steps", ViperKey: "agent.max_steps", Description: "Maximum model decisions per turn"},
	FlagCompactionThreshold: {Name: "compaction-threshold", ViperKey: "agent.compaction_threshold", Description: "Message count above which history is summarized"},
	FlagAPIListen:           {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for API server to listen on"},
	FlagVectorStoreProv:     {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider (sqlite, or empty to disable indexing)"},
	FlagVectorStoreTgt:      {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store path (default: .loom/vectors.sqlite)"},
	FlagEmbeddingProv:       {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider"},
	FlagEmbeddingTgt:        {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:      {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:       {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagEventStreamProv:     {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Turn event publisher (nop, kafka)"},
	FlagEventStreamBrokers:  {Name: "eventstream-brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka brokers"},
	FlagEventStreamTopic:    {Name: "eventstream-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for turn events"},
}

// UintFlags lists the registry keys that hold uint values.
var UintFlags = map[string]bool{
	FlagMaxSteps:            true,
	FlagCompactionThreshold: true,
	FlagEmbeddingDims:       true,
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFlags registers every registry key on cmd, picking the flag type from
// UintFlags. Values are read back through viper after BindRegisteredFlags.
func AddFlags(cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, key := range registryKeys {
		if UintFlags[key] {
			AddUintFlag(cmd, fs, key, new(uint))
			continue
		}
		AddStringFlag(cmd, fs, key, new(string))
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
