package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultPubChemBaseURL, cfg.PubChem.BaseURL)
	assert.Equal(t, DefaultMaxRPS, cfg.PubChem.MaxRPS)
	assert.Equal(t, DefaultMaxRPM, cfg.PubChem.MaxRPM)
	assert.Equal(t, 30*time.Second, cfg.PubChem.RequestTimeout)

	assert.Equal(t, DefaultTopK, cfg.Search.TopK)
	assert.Equal(t, DefaultCandidateK, cfg.Search.CandidateK)
	assert.Equal(t, DefaultStructureCandidateK, cfg.Search.StructureCandidateK)
	assert.Equal(t, DefaultSimThreshold, cfg.Search.SimThreshold)
	assert.Equal(t, "cosine", cfg.Search.Metric)
	assert.Equal(t, DefaultFingerprintBits, cfg.Search.FingerprintBits)

	assert.Equal(t, DefaultIngestConcurrency, cfg.Ingest.Concurrency)
	assert.Equal(t, "info", cfg.Log.Level)

	require.NoError(t, cfg.Validate())
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Search.TopK = 25
	cfg.Search.CandidateK = 500
	cfg.PubChem.MaxRPS = 2
	ApplyDefaults(cfg)

	assert.Equal(t, 25, cfg.Search.TopK)
	assert.Equal(t, 500, cfg.Search.CandidateK)
	assert.Equal(t, 2, cfg.PubChem.MaxRPS)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		ApplyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"bad_port", func(c *Config) { c.Server.Port = -1 }, "server.port"},
		{"zero_rps", func(c *Config) { c.PubChem.MaxRPS = -5 }, "rate limits"},
		{"top_k_negative", func(c *Config) { c.Search.TopK = -1 }, "top_k"},
		{"candidate_k_below_top_k", func(c *Config) { c.Search.CandidateK = 5 }, "candidate_k"},
		{"structure_k_below_top_k", func(c *Config) { c.Search.StructureCandidateK = 3 }, "structure_candidate_k"},
		{"threshold_out_of_range", func(c *Config) { c.Search.SimThreshold = 1.5 }, "sim_threshold"},
		{"bad_metric", func(c *Config) { c.Search.Metric = "manhattan" }, "metric"},
		{"bad_concurrency", func(c *Config) { c.Ingest.Concurrency = -2 }, "concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
search:
  top_k: 5
  candidate_k: 50
  sim_threshold: 0.8
  metric: dot
pubchem:
  max_rps: 3
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, 50, cfg.Search.CandidateK)
	assert.Equal(t, 0.8, cfg.Search.SimThreshold)
	assert.Equal(t, "dot", cfg.Search.Metric)
	assert.Equal(t, 3, cfg.PubChem.MaxRPS)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset fields still carry defaults.
	assert.Equal(t, DefaultMaxRPM, cfg.PubChem.MaxRPM)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  metric: manhattan\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MOLKIT_SEARCH_TOP_K", "7")
	t.Setenv("MOLKIT_AI_API_KEY", "test-key")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.TopK)
	assert.Equal(t, "test-key", cfg.AI.APIKey)
}
