package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotu/molkit/internal/domain/molecule"
	"github.com/robotu/molkit/pkg/errors"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

type fakeInferrer struct {
	out string
	err error
}

func (f *fakeInferrer) Infer(context.Context, string) (string, error) {
	return f.out, f.err
}

type fakeResolver struct {
	cids map[string]int64
}

func (f *fakeResolver) ResolveName(_ context.Context, name string) (int64, error) {
	cid, ok := f.cids[name]
	if !ok {
		return 0, errors.NotFound(fmt.Sprintf("no compound named %q", name))
	}
	return cid, nil
}

func seqBits(from, to int) []int {
	bits := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		bits = append(bits, i)
	}
	return bits
}

// testCorpus builds the three-compound index used across the orchestrator
// tests.  Records 1 and 2 share 15 of 16 fingerprint bits (Tanimoto 0.9375);
// record 3 shares none with record 1.
func testCorpus(t *testing.T) *VectorIndex {
	t.Helper()
	return loadedIndex(t, MetricCosine,
		&molecule.Record{
			CID: 1, Name: "alpha", Vector: []float32{1, 0, 0},
			FingerprintBits: seqBits(0, 15),
			Meta:            map[string]interface{}{"mw": 180.16, "solubility_tag": "moderately soluble"},
		},
		&molecule.Record{
			CID: 2, Name: "beta", Vector: []float32{0.95, 0.05, 0},
			FingerprintBits: seqBits(0, 16),
			Meta:            map[string]interface{}{"mw": 206.28, "solubility_tag": "poorly soluble"},
		},
		&molecule.Record{
			CID: 3, Name: "gamma", Vector: []float32{0.9, 0.1, 0},
			FingerprintBits: []int{15},
			Meta:            map[string]interface{}{"mw": 500.0, "solubility_tag": "very soluble"},
		},
	)
}

func newTestSearch(t *testing.T, ix *VectorIndex, emb Embedder, inf ScaffoldInferrer, res NameResolver) *LocalSearch {
	t.Helper()
	s, err := NewLocalSearch(ix, emb, inf, res, Params{
		TopK:                10,
		CandidateK:          100,
		StructureCandidateK: 300,
		SimThreshold:        0.70,
		FingerprintBits:     16,
	}, nil, nil)
	require.NoError(t, err)
	return s
}

func TestSearchBySemantics(t *testing.T) {
	s := newTestSearch(t, testCorpus(t), &fakeEmbedder{vec: []float32{1, 0, 0}}, nil, nil)

	hits, err := s.SearchBySemantics(context.Background(), "aromatic ring", Options{})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, int64(1), hits[0].Record.CID)
	assert.Equal(t, int64(2), hits[1].Record.CID)
	assert.Equal(t, int64(3), hits[2].Record.CID)
}

func TestSearchBySemantics_TopKTruncation(t *testing.T) {
	s := newTestSearch(t, testCorpus(t), &fakeEmbedder{vec: []float32{1, 0, 0}}, nil, nil)

	hits, err := s.SearchBySemantics(context.Background(), "q", Options{TopK: 2})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].Record.CID)

	// TopK above the corpus size returns everything.
	hits, err = s.SearchBySemantics(context.Background(), "q", Options{TopK: 50})
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestSearchBySemantics_EmbeddingFailureDegrades(t *testing.T) {
	corpus := testCorpus(t)

	s := newTestSearch(t, corpus, &fakeEmbedder{err: errors.External("embedding service down")}, nil, nil)
	hits, err := s.SearchBySemantics(context.Background(), "q", Options{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	s = newTestSearch(t, corpus, &fakeEmbedder{vec: nil}, nil, nil)
	hits, err = s.SearchBySemantics(context.Background(), "q", Options{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchBySemantics_FilterPreservesOrder(t *testing.T) {
	s := newTestSearch(t, testCorpus(t), &fakeEmbedder{vec: []float32{1, 0, 0}}, nil, nil)

	hits, err := s.SearchBySemantics(context.Background(), "q", Options{
		Filter: Filter{"mw": Range(100, 300)},
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].Record.CID)
	assert.Equal(t, int64(2), hits[1].Record.CID)
}

func TestSearchBySemantics_FilterMissingFieldExcludes(t *testing.T) {
	ix := loadedIndex(t, MetricCosine,
		&molecule.Record{CID: 1, Vector: []float32{1, 0}, Meta: map[string]interface{}{"mw": 100.0}},
		&molecule.Record{CID: 2, Vector: []float32{1, 0}, Meta: map[string]interface{}{"xlogp": 2.0}},
	)
	s := newTestSearch(t, ix, &fakeEmbedder{vec: []float32{1, 0}}, nil, nil)

	hits, err := s.SearchBySemantics(context.Background(), "q", Options{
		Filter: Filter{"mw": Range(0, 1000)},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].Record.CID)
}

func TestSearchBySemantics_SolubilityFilter(t *testing.T) {
	s := newTestSearch(t, testCorpus(t), &fakeEmbedder{vec: []float32{1, 0, 0}}, nil, nil)

	hits, err := s.SearchBySemantics(context.Background(), "q", Options{
		Filter: Filter{"solubility_tag": Equals("poorly soluble")},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].Record.CID)
}

func TestSearchBySemantics_InvalidTopK(t *testing.T) {
	s := newTestSearch(t, testCorpus(t), &fakeEmbedder{vec: []float32{1, 0, 0}}, nil, nil)
	_, err := s.SearchBySemantics(context.Background(), "q", Options{TopK: -1})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestSearchByStructure(t *testing.T) {
	s := newTestSearch(t, testCorpus(t),
		&fakeEmbedder{vec: []float32{1, 0, 0}},
		&fakeInferrer{out: `{"canonical_names": ["alpha"]}`},
		&fakeResolver{cids: map[string]int64{"alpha": 1}},
	)

	hits, err := s.SearchByStructure(context.Background(), "like alpha", StructureOptions{})
	require.NoError(t, err)

	// Record 3 shares one bit of sixteen with the reference and falls below
	// the 0.70 gate; records 1 and 2 pass and keep semantic order.
	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].Record.CID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.Equal(t, int64(2), hits[1].Record.CID)
	assert.InDelta(t, 15.0/16.0, hits[1].Similarity, 1e-9)
	assert.True(t, hits[0].Score >= hits[1].Score)
}

func TestSearchByStructure_MaxOverReferences(t *testing.T) {
	s := newTestSearch(t, testCorpus(t),
		&fakeEmbedder{vec: []float32{1, 0, 0}},
		&fakeInferrer{out: `{"canonical_names": ["alpha", "gamma"]}`},
		&fakeResolver{cids: map[string]int64{"alpha": 1, "gamma": 3}},
	)

	hits, err := s.SearchByStructure(context.Background(), "q", StructureOptions{})
	require.NoError(t, err)

	// With gamma as a second reference every record reaches similarity 1.0
	// against at least one reference.
	require.Len(t, hits, 3)
	for _, h := range hits {
		assert.InDelta(t, 1.0, h.Similarity, 1e-9)
	}
	assert.Equal(t, int64(1), hits[0].Record.CID)
	assert.Equal(t, int64(2), hits[1].Record.CID)
	assert.Equal(t, int64(3), hits[2].Record.CID)
}

func TestSearchByStructure_FailsClosedWithoutReferences(t *testing.T) {
	corpus := testCorpus(t)
	emb := &fakeEmbedder{vec: []float32{1, 0, 0}}

	cases := []struct {
		name string
		inf  ScaffoldInferrer
		res  NameResolver
	}{
		{"inference error", &fakeInferrer{err: errors.External("model unavailable")}, &fakeResolver{}},
		{"unusable output", &fakeInferrer{out: "no idea"}, &fakeResolver{}},
		{"nothing resolves", &fakeInferrer{out: `{"canonical_names": ["unknownium"]}`}, &fakeResolver{}},
		{"resolved cid not indexed", &fakeInferrer{out: `{"canonical_names": ["x"]}`},
			&fakeResolver{cids: map[string]int64{"x": 999}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSearch(t, corpus, emb, tc.inf, tc.res)
			hits, err := s.SearchByStructure(context.Background(), "q", StructureOptions{})
			require.NoError(t, err)
			assert.Empty(t, hits)
		})
	}
}

func TestSearchByStructure_PartialResolutionStillRuns(t *testing.T) {
	// One of two names fails to resolve; the survivor carries the search.
	s := newTestSearch(t, testCorpus(t),
		&fakeEmbedder{vec: []float32{1, 0, 0}},
		&fakeInferrer{out: `{"canonical_names": ["unknownium", "alpha"]}`},
		&fakeResolver{cids: map[string]int64{"alpha": 1}},
	)

	hits, err := s.SearchByStructure(context.Background(), "q", StructureOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].Record.CID)
}

func TestSearchByStructure_ThresholdOverride(t *testing.T) {
	s := newTestSearch(t, testCorpus(t),
		&fakeEmbedder{vec: []float32{1, 0, 0}},
		&fakeInferrer{out: `{"canonical_names": ["alpha"]}`},
		&fakeResolver{cids: map[string]int64{"alpha": 1}},
	)

	// A strict threshold keeps only the exact match.
	hits, err := s.SearchByStructure(context.Background(), "q", StructureOptions{
		SimThreshold: 0.99,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].Record.CID)

	_, err = s.SearchByStructure(context.Background(), "q", StructureOptions{SimThreshold: 1.5})
	require.Error(t, err)
}

func TestSearchByStructure_FilterApplies(t *testing.T) {
	s := newTestSearch(t, testCorpus(t),
		&fakeEmbedder{vec: []float32{1, 0, 0}},
		&fakeInferrer{out: `{"canonical_names": ["alpha"]}`},
		&fakeResolver{cids: map[string]int64{"alpha": 1}},
	)

	hits, err := s.SearchByStructure(context.Background(), "q", StructureOptions{
		Options: Options{Filter: Filter{"mw": Range(200, 300)}},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].Record.CID)
}

func TestNewLocalSearch_Validation(t *testing.T) {
	_, err := NewLocalSearch(nil, &fakeEmbedder{}, nil, nil, Params{}, nil, nil)
	require.Error(t, err)

	ix, err := NewVectorIndex(MetricCosine, nil)
	require.NoError(t, err)
	_, err = NewLocalSearch(ix, nil, nil, nil, Params{}, nil, nil)
	require.Error(t, err)
}
