// Package config provides configuration loading, defaults, validation, and
// credential persistence for molkit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all molkit settings.
const envPrefix = "MOLKIT"

// configDirName is the per-user directory under os.UserConfigDir where the
// persisted configuration (including credentials) lives.
const configDirName = "molkit"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys declares every configuration key to viper with a zero default.
// Without this, AutomaticEnv cannot resolve MOLKIT_* variables for keys that
// appear in no config file.  Real defaults are applied later by ApplyDefaults
// so that file, env, and code defaults layer in the expected order.
func registerKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port", "server.mode", "server.read_timeout", "server.write_timeout",
		"server.shutdown_timeout", "server.rate_limit_rps", "server.rate_limit_burst",
		"pubchem.base_url", "pubchem.max_rps", "pubchem.max_rpm", "pubchem.request_timeout",
		"ai.api_key", "ai.base_url", "ai.embed_model", "ai.infer_model", "ai.call_timeout",
		"search.index_path", "search.metric", "search.top_k", "search.candidate_k",
		"search.structure_candidate_k", "search.sim_threshold", "search.fingerprint_bits",
		"ingest.raw_dir", "ingest.parsed_dir", "ingest.index_path", "ingest.concurrency",
		"redis.addr", "redis.password", "redis.db", "redis.default_ttl", "redis.key_prefix",
		"log.level", "log.format", "log.output_paths",
	} {
		v.SetDefault(key, nil)
	}
}

// Load reads the YAML file at configPath, merges MOLKIT_* environment
// overrides, applies defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadDefault loads the per-user config file when it exists and falls back to
// environment variables plus defaults otherwise.  This is what the CLI uses
// when --config is not given.
func LoadDefault() (*Config, error) {
	path, err := UserConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// LoadFromEnv builds a Config entirely from MOLKIT_* environment variables
// and defaults, with no config file required.
//
// Naming convention: MOLKIT_<SECTION>_<FIELD>, e.g. MOLKIT_AI_API_KEY,
// MOLKIT_SEARCH_TOP_K.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch monitors configPath and invokes onChange with each successfully
// parsed and validated Config.  Invalid intermediate states are skipped so a
// half-written file cannot break a running process.  Non-blocking.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// UserConfigPath returns the canonical per-user config file location,
// creating the parent directory when necessary.
func UserConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: cannot determine user config dir: %w", err)
	}
	dir := filepath.Join(base, configDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("config: cannot create %s: %w", dir, err)
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// SaveCredentials persists the AI service credentials into the per-user
// config file, preserving any other settings already stored there.  Empty
// arguments leave the corresponding stored value untouched.
func SaveCredentials(apiKey, baseURL string) (string, error) {
	path, err := UserConfigPath()
	if err != nil {
		return "", err
	}

	v := newViper()
	v.SetConfigFile(path)
	_ = v.ReadInConfig() // a missing file is fine; we create it below

	if apiKey != "" {
		v.Set("ai.api_key", apiKey)
	}
	if baseURL != "" {
		v.Set("ai.base_url", baseURL)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return path, nil
}
