package config

import "time"

// Default values mirroring the PubChem usage policy and the retrieval
// parameters the search engine was tuned with.
const (
	DefaultPubChemBaseURL = "https://pubchem.ncbi.nlm.nih.gov"
	DefaultMaxRPS         = 5
	DefaultMaxRPM         = 400
	DefaultRequestTimeout = 30 * time.Second

	DefaultEmbedModel  = "text-embedding-3-small"
	DefaultInferModel  = "gpt-4o-mini"
	DefaultCallTimeout = 60 * time.Second

	DefaultTopK                = 10
	DefaultCandidateK          = 100
	DefaultStructureCandidateK = 300
	DefaultSimThreshold        = 0.70
	DefaultFingerprintBits     = 2048

	DefaultIndexPath = "data/molecules.jsonl"
	DefaultRawDir    = "data/downloaded_data"
	DefaultParsedDir = "data/parsed"

	DefaultIngestConcurrency = 5
)

// ApplyDefaults fills every unset field of cfg with its platform default.
// Explicitly configured values are never overwritten.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = 20
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = 40
	}

	if cfg.PubChem.BaseURL == "" {
		cfg.PubChem.BaseURL = DefaultPubChemBaseURL
	}
	if cfg.PubChem.MaxRPS == 0 {
		cfg.PubChem.MaxRPS = DefaultMaxRPS
	}
	if cfg.PubChem.MaxRPM == 0 {
		cfg.PubChem.MaxRPM = DefaultMaxRPM
	}
	if cfg.PubChem.RequestTimeout == 0 {
		cfg.PubChem.RequestTimeout = DefaultRequestTimeout
	}

	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = DefaultEmbedModel
	}
	if cfg.AI.InferModel == "" {
		cfg.AI.InferModel = DefaultInferModel
	}
	if cfg.AI.CallTimeout == 0 {
		cfg.AI.CallTimeout = DefaultCallTimeout
	}

	if cfg.Search.IndexPath == "" {
		cfg.Search.IndexPath = DefaultIndexPath
	}
	if cfg.Search.Metric == "" {
		cfg.Search.Metric = "cosine"
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = DefaultTopK
	}
	if cfg.Search.CandidateK == 0 {
		cfg.Search.CandidateK = DefaultCandidateK
	}
	if cfg.Search.StructureCandidateK == 0 {
		cfg.Search.StructureCandidateK = DefaultStructureCandidateK
	}
	if cfg.Search.SimThreshold == 0 {
		cfg.Search.SimThreshold = DefaultSimThreshold
	}
	if cfg.Search.FingerprintBits == 0 {
		cfg.Search.FingerprintBits = DefaultFingerprintBits
	}

	if cfg.Ingest.RawDir == "" {
		cfg.Ingest.RawDir = DefaultRawDir
	}
	if cfg.Ingest.ParsedDir == "" {
		cfg.Ingest.ParsedDir = DefaultParsedDir
	}
	if cfg.Ingest.IndexPath == "" {
		cfg.Ingest.IndexPath = DefaultIndexPath
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = DefaultIngestConcurrency
	}

	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 24 * time.Hour
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "molkit:"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
