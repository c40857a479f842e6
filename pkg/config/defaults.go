package config

const (
	defaultStorageDriver = "sqlite"

	defaultModelProvider    = "ollama"
	defaultModelMaxAttempts = 4

	defaultCompactionThreshold = 10
	defaultMaxSteps            = 8
	defaultUserID              = "default"

	defaultAPIListen = ":8081"

	defaultVectorProvider = "sqlite"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768
	defaultEmbeddingTarget     = "http://localhost:11434"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "loom.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Model: ModelConfig{
			Provider:    defaultModelProvider,
			MaxAttempts: defaultModelMaxAttempts,
		},
		Agent: AgentConfig{
			CompactionThreshold: defaultCompactionThreshold,
			MaxSteps:            defaultMaxSteps,
			UserID:              defaultUserID,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
