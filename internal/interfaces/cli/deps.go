package cli

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotu/molkit/internal/infrastructure/ai"
	"github.com/robotu/molkit/internal/infrastructure/cache"
	"github.com/robotu/molkit/internal/infrastructure/monitoring"
	"github.com/robotu/molkit/internal/infrastructure/pubchem"
	"github.com/robotu/molkit/internal/search"
)

// buildSearchEngine assembles the full retrieval pipeline from configuration:
// AI client, loaded vector index, rate-limited resolver with its optional
// Redis cache, and the orchestrator.  reg may be nil to skip metrics.
func buildSearchEngine(cc *CLIContext, reg prometheus.Registerer) (*search.LocalSearch, error) {
	cfg := cc.Config

	aiClient, err := ai.NewClient(cfg.AI, cc.Logger)
	if err != nil {
		return nil, err
	}

	index, err := search.NewVectorIndex(search.Metric(cfg.Search.Metric), cc.Logger)
	if err != nil {
		return nil, err
	}
	if err := index.LoadFile(cfg.Search.IndexPath); err != nil {
		return nil, err
	}

	var (
		metrics    *monitoring.SearchMetrics
		apiMetrics *monitoring.IngestMetrics
	)
	if reg != nil {
		metrics = monitoring.NewSearchMetrics(reg)
		apiMetrics = monitoring.NewIngestMetrics(reg)
	}

	resolver := cache.NewCachedResolver(cfg.Redis,
		pubchem.NewClient(cfg.PubChem, cc.Logger, apiMetrics), cc.Logger)

	return search.NewLocalSearch(index, aiClient, aiClient, resolver, search.Params{
		TopK:                cfg.Search.TopK,
		CandidateK:          cfg.Search.CandidateK,
		StructureCandidateK: cfg.Search.StructureCandidateK,
		SimThreshold:        cfg.Search.SimThreshold,
		FingerprintBits:     cfg.Search.FingerprintBits,
	}, cc.Logger, metrics)
}
