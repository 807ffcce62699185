package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/robotu/molkit/internal/domain/molecule"
	"github.com/robotu/molkit/internal/infrastructure/logging"
	"github.com/robotu/molkit/internal/infrastructure/monitoring"
	"github.com/robotu/molkit/pkg/errors"
)

// Embedder turns free text into a fixed-dimension vector.  A nil vector or an
// error means no embedding is available; the search layer treats both as a
// recoverable "no results" outcome.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ScaffoldInferrer produces the raw generative-model output from which
// reference compound names are parsed.
type ScaffoldInferrer interface {
	Infer(ctx context.Context, query string) (string, error)
}

// NameResolver maps a compound name to its identifier.
type NameResolver interface {
	ResolveName(ctx context.Context, name string) (int64, error)
}

// StructureHit extends Hit with the maximum Tanimoto similarity against the
// resolved reference fingerprints.
type StructureHit struct {
	Record     *molecule.Record
	Score      float64
	Similarity float64
}

// Params carries the retrieval defaults LocalSearch falls back to when a
// request leaves them unset.
type Params struct {
	TopK                int
	CandidateK          int
	StructureCandidateK int
	SimThreshold        float64
	FingerprintBits     int
}

// Options parameterizes one semantic search call.
type Options struct {
	// TopK is the number of results returned; 0 uses the configured default.
	TopK int

	// CandidateK is the broad candidate count retrieved from the vector
	// index before filtering; 0 uses the configured default.  It is clamped
	// to at least TopK.
	CandidateK int

	// Filter is applied to every candidate; nil or empty disables filtering.
	Filter Filter
}

// StructureOptions parameterizes one structure-refined search call.
type StructureOptions struct {
	Options

	// SimThreshold is the minimum max-Tanimoto a candidate must reach;
	// 0 uses the configured default.
	SimThreshold float64
}

// LocalSearch composes the vector index, metadata filtering, and chemical
// similarity scoring into the three escalating retrieval modes: semantic,
// metadata-filtered, and structure-refined.  It holds no per-call state
// beyond the loaded index and is safe for concurrent use.
type LocalSearch struct {
	index    *VectorIndex
	embedder Embedder
	inferrer ScaffoldInferrer
	resolver NameResolver
	params   Params
	logger   logging.Logger
	metrics  *monitoring.SearchMetrics
}

// NewLocalSearch wires the retrieval pipeline.  index and embedder are
// required; inferrer and resolver may be nil when structure-refined search is
// not used.  metrics may be nil.
func NewLocalSearch(
	index *VectorIndex,
	embedder Embedder,
	inferrer ScaffoldInferrer,
	resolver NameResolver,
	params Params,
	logger logging.Logger,
	metrics *monitoring.SearchMetrics,
) (*LocalSearch, error) {
	if index == nil {
		return nil, errors.InvalidParam("vector index is required")
	}
	if embedder == nil {
		return nil, errors.InvalidParam("embedder is required")
	}
	if params.TopK <= 0 {
		params.TopK = 10
	}
	if params.CandidateK < params.TopK {
		params.CandidateK = 100
	}
	if params.StructureCandidateK < params.TopK {
		params.StructureCandidateK = 300
	}
	if params.SimThreshold <= 0 {
		params.SimThreshold = 0.70
	}
	if params.FingerprintBits <= 0 {
		params.FingerprintBits = 2048
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LocalSearch{
		index:    index,
		embedder: embedder,
		inferrer: inferrer,
		resolver: resolver,
		params:   params,
		logger:   logger.Named("search"),
		metrics:  metrics,
	}, nil
}

// WithMetrics attaches search metrics and returns the receiver for chaining.
func (s *LocalSearch) WithMetrics(m *monitoring.SearchMetrics) *LocalSearch {
	s.metrics = m
	return s
}

// SearchBySemantics runs semantic search: the query text is embedded, the
// index is scanned for a broad candidate set, the metadata filter prunes it
// preserving order, and the result is truncated to TopK.
//
// An embedding failure (service error or empty vector) degrades to an empty
// result list rather than an error.
func (s *LocalSearch) SearchBySemantics(ctx context.Context, query string, opts Options) ([]Hit, error) {
	topK, candidateK, err := s.resolveCounts(opts.TopK, opts.CandidateK, s.params.CandidateK)
	if err != nil {
		return nil, err
	}
	queryID := uuid.NewString()
	log := s.logger.With(logging.String("query_id", queryID))

	hits, err := s.semanticCandidates(ctx, query, candidateK, opts.Filter, log)
	if err != nil {
		return nil, err
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}

	log.Info("semantic search complete",
		logging.Int("top_k", topK),
		logging.Int("results", len(hits)))
	s.metrics.ObserveSearch(monitoring.SearchModeSemantic, len(hits))
	return hits, nil
}

// SearchByStructure runs structure-refined search: reference compounds are
// inferred from the query, resolved to stored fingerprints, and a broadened
// semantic candidate set is gated by maximum Tanimoto similarity against
// them.  Survivors are re-sorted by semantic relevance (stable) and truncated
// to TopK.
//
// When zero reference fingerprints resolve, the search fails closed with an
// empty result set: the caller explicitly asked for structure-aware
// filtering, and returning unfiltered semantic hits would silently drop that
// guarantee.
func (s *LocalSearch) SearchByStructure(ctx context.Context, query string, opts StructureOptions) ([]StructureHit, error) {
	topK, candidateK, err := s.resolveCounts(opts.TopK, opts.CandidateK, s.params.StructureCandidateK)
	if err != nil {
		return nil, err
	}
	threshold := opts.SimThreshold
	if threshold <= 0 {
		threshold = s.params.SimThreshold
	}
	if threshold > 1 {
		return nil, errors.InvalidParam(fmt.Sprintf("sim threshold must be in (0, 1], got %v", threshold))
	}

	queryID := uuid.NewString()
	log := s.logger.With(logging.String("query_id", queryID))

	refs := s.referenceFingerprints(ctx, query, log)
	if len(refs) == 0 {
		// Fail closed: nothing to refine against.
		log.Warn("no reference fingerprints resolved, returning empty result")
		s.metrics.ObserveSearch(monitoring.SearchModeStructure, 0)
		return []StructureHit{}, nil
	}

	candidates, err := s.semanticCandidates(ctx, query, candidateK, opts.Filter, log)
	if err != nil {
		return nil, err
	}

	kept := make([]StructureHit, 0, len(candidates))
	for _, hit := range candidates {
		fp := hit.Record.Fingerprint(s.params.FingerprintBits)
		var maxSim float64
		for _, ref := range refs {
			if sim := molecule.Tanimoto(fp, ref); sim > maxSim {
				maxSim = sim
			}
		}
		if maxSim >= threshold {
			kept = append(kept, StructureHit{
				Record:     hit.Record,
				Score:      hit.Score,
				Similarity: maxSim,
			})
		}
	}

	// Ranking stays semantic; similarity only gates.  The stable sort keeps
	// index order on ties, never similarity order.
	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].Score > kept[b].Score
	})
	if len(kept) > topK {
		kept = kept[:topK]
	}

	log.Info("structure-refined search complete",
		logging.Int("references", len(refs)),
		logging.Float64("threshold", threshold),
		logging.Int("results", len(kept)))
	s.metrics.ObserveSearch(monitoring.SearchModeStructure, len(kept))
	return kept, nil
}

// semanticCandidates embeds the query and returns the filtered candidate
// list, order preserved.  Embedding failures degrade to an empty list.
func (s *LocalSearch) semanticCandidates(ctx context.Context, query string, candidateK int, filter Filter, log logging.Logger) ([]Hit, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil || len(vec) == 0 {
		if err != nil {
			log.Warn("embedding unavailable, degrading to empty result", logging.Err(err))
		} else {
			log.Warn("embedding service returned an empty vector")
		}
		s.metrics.IncEmbeddingFailure()
		return []Hit{}, nil
	}

	hits, err := s.index.Search(vec, candidateK)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchFailed, "vector index search")
	}
	if len(filter) == 0 {
		return hits, nil
	}

	filtered := hits[:0:0]
	for _, hit := range hits {
		if filter.Passes(hit.Record) {
			filtered = append(filtered, hit)
		}
	}
	return filtered, nil
}

// referenceFingerprints runs scaffold inference and resolves each returned
// name to a stored fingerprint.  Failures are isolated per name: a name that
// cannot be resolved, is absent from the index, or has no stored fingerprint
// is logged and skipped.
func (s *LocalSearch) referenceFingerprints(ctx context.Context, query string, log logging.Logger) []molecule.BitVector {
	if s.inferrer == nil || s.resolver == nil {
		log.Warn("structure search requested without inferrer or resolver configured")
		return nil
	}

	raw, err := s.inferrer.Infer(ctx, query)
	if err != nil {
		log.Warn("scaffold inference failed", logging.Err(err))
		s.metrics.IncInferenceFailure()
		return nil
	}
	names := ParseScaffoldNames(raw)
	if len(names) == 0 {
		log.Warn("scaffold inference produced no usable reference names")
		return nil
	}

	refs := make([]molecule.BitVector, 0, len(names))
	for _, name := range names {
		cid, err := s.resolver.ResolveName(ctx, name)
		if err != nil {
			log.Warn("reference name resolution failed",
				logging.String("name", name), logging.Err(err))
			s.metrics.IncResolutionFailure()
			continue
		}
		rec, ok := s.index.LookupCID(cid)
		if !ok {
			log.Warn("resolved reference not present in index",
				logging.String("name", name), logging.Int64("cid", cid))
			continue
		}
		if !rec.HasFingerprint() {
			log.Warn("reference record has no stored fingerprint",
				logging.String("name", name), logging.Int64("cid", cid))
			continue
		}
		refs = append(refs, rec.Fingerprint(s.params.FingerprintBits))
	}
	return refs
}

// resolveCounts applies defaults and validates TopK / CandidateK.
func (s *LocalSearch) resolveCounts(topK, candidateK, defaultCandidateK int) (int, int, error) {
	if topK == 0 {
		topK = s.params.TopK
	}
	if topK <= 0 {
		return 0, 0, errors.InvalidParam(fmt.Sprintf("top_k must be positive, got %d", topK))
	}
	if candidateK == 0 {
		candidateK = defaultCandidateK
	}
	if candidateK < topK {
		candidateK = topK
	}
	return topK, candidateK, nil
}
