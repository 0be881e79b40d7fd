package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent tabletalk configuration stored as
// config.toml in the .tabletalk/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version      int                `toml:"version"`
	API          APIConfig          `toml:"api"`
	LLM          LLMConfig          `toml:"llm"`
	Router       RouterConfig       `toml:"router"`
	Embedding    EmbeddingConfig    `toml:"embedding"`
	VectorStore  VectorStoreConfig  `toml:"vector_store"`
	Subjects     SubjectsConfig     `toml:"subjects"`
	Storage      StorageConfig      `toml:"storage"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	EventStream  EventStreamConfig  `toml:"eventstream"`
	Telemetry    TelemetryConfig    `toml:"telemetry"`
	Client       ClientConfig       `toml:"client"`
}

// APIConfig holds turn API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// LLMConfig selects the answer generator. An empty APIKey or Target falls
// back to UPSTAGE_*/OPENAI_* environment variables for OpenAI-compatible
// providers.
type LLMConfig struct {
	Provider    string  `toml:"provider,omitempty"`
	Target      string  `toml:"target,omitempty"`
	APIKey      string  `toml:"api_key,omitempty"`
	Model       string  `toml:"model,omitempty"`
	Temperature float64 `toml:"temperature,omitempty"`
}

// RouterConfig tunes the turn classifier.
type RouterConfig struct {
	// Model overrides llm.model for classification only.
	Model         string `toml:"model,omitempty"`
	HistoryWindow int    `toml:"history_window,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// VectorStoreConfig locates the evidence index. IndexDir is used by the
// sqlite-vec provider, Target and Collection by the remote ones.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
	IndexDir   string `toml:"index_dir,omitempty"`
}

// SubjectsConfig locates the subject lookup file.
type SubjectsConfig struct {
	Path string `toml:"path,omitempty"`
}

// StorageConfig selects the thread checkpoint backend.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	RedisURL    string `toml:"redis_url,omitempty"`

	// TTL is a duration string such as "24h". Empty keeps threads forever.
	TTL string `toml:"ttl,omitempty"`
}

// OrchestratorConfig tunes turn execution.
type OrchestratorConfig struct {
	TopK int `toml:"top_k,omitempty"`

	// CallTimeout bounds each external call, as a duration string.
	CallTimeout string `toml:"call_timeout,omitempty"`
}

// EventStreamConfig selects the turn event publisher.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled,omitempty"`
	Endpoint string `toml:"endpoint,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// tabletalk server (tabletalk chat, tabletalk search).
// Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
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

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
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
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatFloat(*field(c), 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if v != "" {
				if _, err := time.ParseDuration(v); err != nil {
					return fmt.Errorf("invalid value for %s: %w", name, err)
				}
			}
			*field(c) = v
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"llm.provider":    stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.target":      stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.api_key":     stringKey(func(c *Config) *string { return &c.LLM.APIKey }),
	"llm.model":       stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.temperature": floatKey("llm.temperature", func(c *Config) *float64 { return &c.LLM.Temperature }),

	"router.model":          stringKey(func(c *Config) *string { return &c.Router.Model }),
	"router.history_window": intKey("router.history_window", func(c *Config) *int { return &c.Router.HistoryWindow }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.api_key":    stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.index_dir":  stringKey(func(c *Config) *string { return &c.VectorStore.IndexDir }),

	"subjects.path": stringKey(func(c *Config) *string { return &c.Subjects.Path }),

	"storage.driver":       stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"storage.redis_url":    stringKey(func(c *Config) *string { return &c.Storage.RedisURL }),
	"storage.ttl":          durationKey("storage.ttl", func(c *Config) *string { return &c.Storage.TTL }),

	"orchestrator.top_k":        intKey("orchestrator.top_k", func(c *Config) *int { return &c.Orchestrator.TopK }),
	"orchestrator.call_timeout": durationKey("orchestrator.call_timeout", func(c *Config) *string { return &c.Orchestrator.CallTimeout }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers":  stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),

	"telemetry.enabled":  boolKey("telemetry.enabled", func(c *Config) *bool { return &c.Telemetry.Enabled }),
	"telemetry.endpoint": stringKey(func(c *Config) *string { return &c.Telemetry.Endpoint }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),
}

// orderedKeys is the display order of configKeys, following the TOML layout.
var orderedKeys = []string{
	"api.listen",
	"llm.provider",
	"llm.target",
	"llm.api_key",
	"llm.model",
	"llm.temperature",
	"router.model",
	"router.history_window",
	"embedding.provider",
	"embedding.target",
	"embedding.api_key",
	"embedding.model",
	"embedding.dimensions",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"vector_store.index_dir",
	"subjects.path",
	"storage.driver",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"storage.redis_url",
	"storage.ttl",
	"orchestrator.top_k",
	"orchestrator.call_timeout",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
	"telemetry.enabled",
	"telemetry.endpoint",
	"client.api_target",
}

// secretKeys are masked by `tabletalk config list`.
var secretKeys = map[string]bool{
	"llm.api_key":          true,
	"embedding.api_key":    true,
	"storage.postgres_dsn": true,
	"storage.redis_url":    true,
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}
