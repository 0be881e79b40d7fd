package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/tabletalk/pkg/dotdir"
)

// EnvPrefix prefixes every environment override, e.g. TABLETALK_LLM_MODEL.
const EnvPrefix = "TABLETALK"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the TABLETALK_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (TABLETALK_API_LISTEN, TABLETALK_LLM_MODEL, etc.)
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

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for _, key := range ValidConfigKeys() {
		v.SetDefault(key, configKeys[key].get(d))
	}

	// typed defaults so GetInt/GetFloat64/GetUint do not parse ""
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("router.history_window", d.Router.HistoryWindow)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("orchestrator.top_k", d.Orchestrator.TopK)
	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
}

// APIKey returns the configured key for key, or the first non-empty
// fallback environment variable.
func APIKey(v *viper.Viper, key string, fallbackEnv ...string) string {
	if s := v.GetString(key); s != "" {
		return s
	}
	for _, env := range fallbackEnv {
		if s := os.Getenv(env); s != "" {
			return s
		}
	}
	return ""
}
