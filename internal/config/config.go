// Package config defines all configuration structures for molkit.  No I/O or
// parsing logic lives in this file, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/robotu/molkit/internal/infrastructure/logging"
)

// ServerConfig holds HTTP API server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

// PubChemConfig holds parameters for the rate-limited PubChem REST client.
// The defaults respect PubChem's published usage policy (5 requests per
// second and 400 per minute, 30 s per-request cap).
type PubChemConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	MaxRPS         int           `mapstructure:"max_rps"`
	MaxRPM         int           `mapstructure:"max_rpm"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AIConfig holds parameters for the embedding and generative-model clients.
// The endpoint is OpenAI-compatible; BaseURL may point at any gateway that
// speaks the same protocol.
type AIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	EmbedModel  string        `mapstructure:"embed_model"`
	InferModel  string        `mapstructure:"infer_model"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// SearchConfig holds retrieval defaults for the local search engine.
type SearchConfig struct {
	IndexPath string `mapstructure:"index_path"`

	// Metric selects the vector similarity applied at load and search:
	// "cosine" | "dot".  It must match the metric the embedding model was
	// trained for.
	Metric string `mapstructure:"metric"`

	TopK       int `mapstructure:"top_k"`
	CandidateK int `mapstructure:"candidate_k"`

	// StructureCandidateK is the broadened candidate count used by
	// structure-refined search before Tanimoto gating.
	StructureCandidateK int `mapstructure:"structure_candidate_k"`

	// SimThreshold is the minimum max-Tanimoto a candidate must reach to
	// survive structure refinement.
	SimThreshold float64 `mapstructure:"sim_threshold"`

	// FingerprintBits is the fixed width of stored binary fingerprints.
	FingerprintBits int `mapstructure:"fingerprint_bits"`
}

// IngestConfig holds parameters for the PubChem ingestion pipeline.
type IngestConfig struct {
	RawDir      string `mapstructure:"raw_dir"`
	ParsedDir   string `mapstructure:"parsed_dir"`
	IndexPath   string `mapstructure:"index_path"`
	Concurrency int    `mapstructure:"concurrency"`
}

// RedisConfig holds parameters for the optional name-resolution cache.
// An empty Addr disables caching entirely.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
}

// Config is the root configuration object.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	PubChem PubChemConfig  `mapstructure:"pubchem"`
	AI      AIConfig       `mapstructure:"ai"`
	Search  SearchConfig   `mapstructure:"search"`
	Ingest  IngestConfig   `mapstructure:"ingest"`
	Redis   RedisConfig    `mapstructure:"redis"`
	Log     logging.Config `mapstructure:"log"`
}

// Validate checks cross-field consistency.  Defaults are assumed to have been
// applied already.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535], got %d", c.Server.Port)
	}
	if c.PubChem.MaxRPS <= 0 || c.PubChem.MaxRPM <= 0 {
		return fmt.Errorf("pubchem rate limits must be positive")
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Search.CandidateK < c.Search.TopK {
		return fmt.Errorf("search.candidate_k (%d) must be >= search.top_k (%d)",
			c.Search.CandidateK, c.Search.TopK)
	}
	if c.Search.StructureCandidateK < c.Search.TopK {
		return fmt.Errorf("search.structure_candidate_k (%d) must be >= search.top_k (%d)",
			c.Search.StructureCandidateK, c.Search.TopK)
	}
	if c.Search.SimThreshold < 0 || c.Search.SimThreshold > 1 {
		return fmt.Errorf("search.sim_threshold must be in [0, 1], got %f", c.Search.SimThreshold)
	}
	switch c.Search.Metric {
	case "cosine", "dot":
	default:
		return fmt.Errorf("search.metric must be \"cosine\" or \"dot\", got %q", c.Search.Metric)
	}
	if c.Search.FingerprintBits <= 0 {
		return fmt.Errorf("search.fingerprint_bits must be positive, got %d", c.Search.FingerprintBits)
	}
	if c.Ingest.Concurrency <= 0 {
		return fmt.Errorf("ingest.concurrency must be positive, got %d", c.Ingest.Concurrency)
	}
	return nil
}
