package config

const (
	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultLLMProvider    = "upstage"
	defaultLLMModel       = "solar-1-mini-chat"
	defaultLLMTemperature = 0.3

	defaultHistoryWindow = 10

	defaultEmbeddingProvider   = "openai"
	defaultEmbeddingModel      = "text-embedding-3-small"
	defaultEmbeddingDimensions = 1536

	defaultVectorProvider   = "sqlite-vec"
	defaultVectorCollection = "reviews"
	defaultIndexDir         = "index"

	defaultSubjectsPath = "subjects.json"

	defaultStorageDriver = "inmemory"

	defaultTopK        = 5
	defaultCallTimeout = "30s"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "tabletalk.turns"

	defaultTelemetryEndpoint = "localhost:4318"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		LLM: LLMConfig{
			Provider:    defaultLLMProvider,
			Model:       defaultLLMModel,
			Temperature: defaultLLMTemperature,
		},
		Router: RouterConfig{
			HistoryWindow: defaultHistoryWindow,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
			IndexDir:   defaultIndexDir,
		},
		Subjects: SubjectsConfig{
			Path: defaultSubjectsPath,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Orchestrator: OrchestratorConfig{
			TopK:        defaultTopK,
			CallTimeout: defaultCallTimeout,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Telemetry: TelemetryConfig{
			Endpoint: defaultTelemetryEndpoint,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
