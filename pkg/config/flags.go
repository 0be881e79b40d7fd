package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --index-dir
// on both "tabletalk serve" and "tabletalk ingest").
type Flag struct {
	// Name is the long flag name (e.g. "index-dir").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "vector_store.index_dir").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling the Add*Flag helpers and
// BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen          = "listen"
	FlagLLMProvider     = "llm-provider"
	FlagLLMTarget       = "llm-target"
	FlagLLMModel        = "llm-model"
	FlagTemperature     = "temperature"
	FlagRouterModel     = "router-model"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagCollection      = "collection"
	FlagIndexDir        = "index-dir"
	FlagSubjects        = "subjects"
	FlagStorageDriver   = "storage"
	FlagSQLite          = "sqlite"
	FlagPostgresDSN     = "postgres-dsn"
	FlagRedisURL        = "redis-url"
	FlagStorageTTL      = "storage-ttl"
	FlagTopK            = "top-k"
	FlagCallTimeout     = "call-timeout"
	FlagEventStream     = "eventstream"
	FlagKafkaBrokers    = "kafka-brokers"
	FlagKafkaTopic      = "kafka-topic"
	FlagTelemetry       = "otel"
	FlagTelemetryTgt    = "otel-endpoint"
	FlagAPITarget       = "api-target"
)

// Flags is the registry shared by every tabletalk command.
var Flags = FlagSet{
	FlagListen:          {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the turn API to listen on"},
	FlagLLMProvider:     {Name: "llm-provider", ViperKey: "llm.provider", Description: "Generation provider (upstage, openai, anthropic, ollama, gemini)"},
	FlagLLMTarget:       {Name: "llm-target", ViperKey: "llm.target", Description: "Generation provider base URL"},
	FlagLLMModel:        {Name: "llm-model", ViperKey: "llm.model", Description: "Generation model"},
	FlagTemperature:     {Name: "temperature", ViperKey: "llm.temperature", Description: "Answer sampling temperature"},
	FlagRouterModel:     {Name: "router-model", ViperKey: "router.model", Description: "Classification model (default: --llm-model)"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (openai, ollama, gemini)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider base URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensions"},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Evidence index backend (sqlite-vec, chroma, qdrant)"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Remote evidence index URL"},
	FlagCollection:      {Name: "collection", ViperKey: "vector_store.collection", Description: "Remote evidence collection name"},
	FlagIndexDir:        {Name: "index-dir", ViperKey: "vector_store.index_dir", Description: "sqlite-vec evidence index directory"},
	FlagSubjects:        {Name: "subjects", ViperKey: "subjects.path", Description: "Path to subjects.json"},
	FlagStorageDriver:   {Name: "storage", ViperKey: "storage.driver", Description: "Thread checkpoint storage (inmemory, sqlite, postgres, redis)"},
	FlagSQLite:          {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite checkpoint database"},
	FlagPostgresDSN:     {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagRedisURL:        {Name: "redis-url", ViperKey: "storage.redis_url", Description: "Redis URL"},
	FlagStorageTTL:      {Name: "storage-ttl", ViperKey: "storage.ttl", Description: "Expire idle threads after this duration"},
	FlagTopK:            {Name: "top-k", Shorthand: "k", ViperKey: "orchestrator.top_k", Description: "Reviews retrieved per grounded answer"},
	FlagCallTimeout:     {Name: "call-timeout", ViperKey: "orchestrator.call_timeout", Description: "Timeout for each model or index call"},
	FlagEventStream:     {Name: "eventstream", ViperKey: "eventstream.provider", Description: "Turn event publisher (nop, kafka)"},
	FlagKafkaBrokers:    {Name: "kafka-brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka brokers"},
	FlagKafkaTopic:      {Name: "kafka-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for turn events"},
	FlagTelemetry:       {Name: "otel", ViperKey: "telemetry.enabled", Description: "Export OpenTelemetry traces"},
	FlagTelemetryTgt:    {Name: "otel-endpoint", ViperKey: "telemetry.endpoint", Description: "OTLP/HTTP collector endpoint"},
	FlagAPITarget:       {Name: "api-target", ViperKey: "client.api_target", Description: "tabletalk API server URL"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
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

	defaultVal := defaults().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFloatFlag registers a float64 flag on cmd from the given FlagSet.
func AddFloatFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *float64) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	cmd.Flags().Float64Var(target, def.Name, defaults().GetFloat64(def.ViperKey), def.Description)
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	cmd.Flags().BoolVar(target, def.Name, defaults().GetBool(def.ViperKey), def.Description)
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

// defaults returns a viper holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
