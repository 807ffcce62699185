// Package search implements the local retrieval engine: an in-memory vector
// index over molecule embeddings, metadata filtering, and the orchestrated
// semantic and structure-refined search modes.
package search

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/robotu/molkit/internal/domain/molecule"
	"github.com/robotu/molkit/internal/infrastructure/logging"
	"github.com/robotu/molkit/pkg/errors"
)

// Metric selects the vector similarity applied consistently across load and
// search.  It must match the metric the embedding model was trained for.
type Metric string

const (
	// MetricCosine scores by cosine similarity; vectors are L2-normalized at
	// load time so search reduces to an inner product.
	MetricCosine Metric = "cosine"

	// MetricDot scores by raw inner product.
	MetricDot Metric = "dot"
)

// IsValid reports whether the metric is supported.
func (m Metric) IsValid() bool {
	return m == MetricCosine || m == MetricDot
}

// Hit is one search result: a record and its relevance score.
type Hit struct {
	Record *molecule.Record
	Score  float64
}

// VectorIndex holds every loaded molecule record and answers top-K nearest
// neighbour queries by brute-force scan.  At the corpus sizes this pipeline
// targets (hundreds to low thousands of records) a scan outperforms the
// constant factors of an approximate structure.
//
// The index is immutable after Load: concurrent Search and LookupCID calls
// are safe without locking.  Rebuilding requires constructing a new index.
type VectorIndex struct {
	metric Metric
	logger logging.Logger

	mu      sync.RWMutex // guards the load-once transition only
	loaded  bool
	dim     int
	records []*molecule.Record
	vectors [][]float32 // normalized copies under MetricCosine
	byCID   map[int64]*molecule.Record
}

// NewVectorIndex constructs an empty index using the given metric.
func NewVectorIndex(metric Metric, logger logging.Logger) (*VectorIndex, error) {
	if !metric.IsValid() {
		return nil, errors.InvalidParam(fmt.Sprintf("unsupported vector metric %q", metric))
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &VectorIndex{
		metric: metric,
		logger: logger.Named("index"),
	}, nil
}

// LoadFile reads the line-delimited record file at path and builds the index.
func (ix *VectorIndex) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexLoad, "index source unavailable").WithDetail(path)
	}
	defer f.Close()
	return ix.Load(f)
}

// Load reads one JSON record per line from r and builds the in-memory index.
// The vector dimension is fixed by the first record; a record whose vector
// length differs fails the whole load, as does an empty source.  On failure
// no partial index is retained.
func (ix *VectorIndex) Load(r io.Reader) error {
	var (
		records []*molecule.Record
		vectors [][]float32
		byCID   = make(map[int64]*molecule.Record)
		dim     int
		lineNo  int
	)

	scanner := bufio.NewScanner(r)
	// Embedding vectors make for long lines; the default 64 KiB cap is not
	// enough for high-dimensional models.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		rec, err := molecule.DecodeRecord(line)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeIndexLoad,
				fmt.Sprintf("record at line %d is malformed", lineNo))
		}

		if dim == 0 {
			dim = len(rec.Vector)
		} else if len(rec.Vector) != dim {
			return errors.Newf(errors.ErrCodeIndexDimMismatch,
				"record at line %d has vector dimension %d, index dimension is %d",
				lineNo, len(rec.Vector), dim)
		}

		vec := rec.Vector
		if ix.metric == MetricCosine {
			vec = l2Normalize(vec)
		}

		records = append(records, rec)
		vectors = append(vectors, vec)
		byCID[rec.CID] = rec
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexLoad, "reading index source")
	}
	if len(records) == 0 {
		return errors.New(errors.ErrCodeIndexEmpty,
			"index source is empty, cannot infer vector dimension")
	}

	ix.mu.Lock()
	ix.dim = dim
	ix.records = records
	ix.vectors = vectors
	ix.byCID = byCID
	ix.loaded = true
	ix.mu.Unlock()

	ix.logger.Info("vector index loaded",
		logging.Int("records", len(records)),
		logging.Int("dimension", dim),
		logging.String("metric", string(ix.metric)))
	return nil
}

// Search returns up to k hits ranked by decreasing similarity to query.
// Fewer than k hits are returned when the index holds fewer records.  Equal
// scores preserve load order (stable sort).
func (ix *VectorIndex) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, errors.InvalidParam(fmt.Sprintf("k must be positive, got %d", k))
	}

	ix.mu.RLock()
	loaded, dim := ix.loaded, ix.dim
	records, vectors := ix.records, ix.vectors
	ix.mu.RUnlock()

	if !loaded {
		return nil, errors.New(errors.ErrCodeIndexLoad, "index has not been loaded")
	}
	if len(query) != dim {
		return nil, errors.InvalidParam(fmt.Sprintf(
			"query vector dimension %d does not match index dimension %d", len(query), dim))
	}

	q := query
	if ix.metric == MetricCosine {
		q = l2Normalize(query)
	}

	hits := make([]Hit, len(records))
	for i, vec := range vectors {
		hits[i] = Hit{Record: records[i], Score: dot(q, vec)}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// LookupCID returns the loaded record for a compound identifier, serving
// fingerprint lookups during structure-refined search.
func (ix *VectorIndex) LookupCID(cid int64) (*molecule.Record, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.byCID[cid]
	return rec, ok
}

// Len returns the number of loaded records.
func (ix *VectorIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Dimension returns the fixed vector dimension, 0 before load.
func (ix *VectorIndex) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// l2Normalize returns a unit-length copy of v; an all-zero vector is returned
// unchanged.
func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
