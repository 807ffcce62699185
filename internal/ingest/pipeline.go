package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robotu/molkit/internal/config"
	"github.com/robotu/molkit/internal/domain/molecule"
	"github.com/robotu/molkit/internal/infrastructure/logging"
	"github.com/robotu/molkit/internal/infrastructure/monitoring"
	"github.com/robotu/molkit/internal/infrastructure/pubchem"
	"github.com/robotu/molkit/pkg/errors"
)

// Fetcher is the PubChem surface the pipeline needs.
type Fetcher interface {
	FetchView(ctx context.Context, cid int64) (json.RawMessage, error)
	FetchRecord3D(ctx context.Context, cid int64) (json.RawMessage, error)
	FetchProperties(ctx context.Context, cid int64) (*pubchem.Properties, error)
	FetchSynonyms(ctx context.Context, cid int64) ([]string, error)
}

// Embedder turns the composed summary into the record's search vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Summarizer optionally rewrites the templated summary into prose before
// embedding.  A failure falls back to the template.
type Summarizer interface {
	Summarize(ctx context.Context, factSheet string) (string, error)
}

// Report summarizes one pipeline run.
type Report struct {
	Requested int
	Processed int
	Failed    int
	IndexPath string

	// Failures maps each failed CID to its error message.
	Failures map[int64]string
}

// Pipeline drives ingestion: fetch, parse, tag, embed, write.  One compound
// failing never aborts the run; failures are reported per CID.
type Pipeline struct {
	fetcher    Fetcher
	embedder   Embedder
	summarizer Summarizer
	cfg        config.IngestConfig
	fpBits     int
	fpRadius   int
	logger     logging.Logger
	metrics    *monitoring.IngestMetrics
}

// NewPipeline wires the ingestion pipeline.  metrics may be nil.
func NewPipeline(fetcher Fetcher, embedder Embedder, cfg config.IngestConfig, fpBits int, logger logging.Logger, metrics *monitoring.IngestMetrics) (*Pipeline, error) {
	if fetcher == nil || embedder == nil {
		return nil, errors.InvalidParam("fetcher and embedder are required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = config.DefaultIngestConcurrency
	}
	if cfg.IndexPath == "" {
		cfg.IndexPath = config.DefaultIndexPath
	}
	if fpBits <= 0 {
		fpBits = config.DefaultFingerprintBits
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Pipeline{
		fetcher:  fetcher,
		embedder: embedder,
		cfg:      cfg,
		fpBits:   fpBits,
		fpRadius: 2,
		logger:   logger.Named("ingest"),
		metrics:  metrics,
	}, nil
}

// WithSummarizer enables model-written summaries and returns the receiver for
// chaining.
func (p *Pipeline) WithSummarizer(s Summarizer) *Pipeline {
	p.summarizer = s
	return p
}

// Run ingests the given CIDs and writes the resulting records, input order
// preserved, to the configured index path.
func (p *Pipeline) Run(ctx context.Context, cids []int64) (*Report, error) {
	if len(cids) == 0 {
		return nil, errors.InvalidParam("no CIDs to ingest")
	}
	for _, dir := range []string{p.cfg.RawDir, p.cfg.ParsedDir, filepath.Dir(p.cfg.IndexPath)} {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeIngestWriteFailed, "create output directory").WithDetail(dir)
		}
	}

	report := &Report{
		Requested: len(cids),
		IndexPath: p.cfg.IndexPath,
		Failures:  make(map[int64]string),
	}
	records := make([]*molecule.Record, len(cids))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, cid := range cids {
		i, cid := i, cid
		g.Go(func() error {
			rec, err := p.processCompound(gctx, cid)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Context errors abort the whole run; everything else is an
				// isolated per-compound failure.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.logger.Error("compound ingestion failed",
					logging.Int64("cid", cid), logging.Err(err))
				p.metrics.IncFailed()
				report.Failed++
				report.Failures[cid] = err.Error()
				return nil
			}
			records[i] = rec
			p.metrics.IncProcessed()
			report.Processed++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIngestFetchFailed, "ingestion aborted")
	}

	kept := records[:0:0]
	for _, rec := range records {
		if rec != nil {
			kept = append(kept, rec)
		}
	}
	if err := WriteRecords(p.cfg.IndexPath, kept); err != nil {
		return nil, err
	}

	p.logger.Info("ingestion complete",
		logging.Int("requested", report.Requested),
		logging.Int("processed", report.Processed),
		logging.Int("failed", report.Failed),
		logging.String("index", report.IndexPath))
	return report, nil
}

// processCompound fetches and assembles one index record.
func (p *Pipeline) processCompound(ctx context.Context, cid int64) (*molecule.Record, error) {
	props, err := p.fetcher.FetchProperties(ctx, cid)
	if err != nil {
		return nil, err
	}

	synonyms, err := p.fetcher.FetchSynonyms(ctx, cid)
	if err != nil {
		p.logger.Warn("synonyms unavailable", logging.Int64("cid", cid), logging.Err(err))
	}

	var view *ViewData
	rawView, err := p.fetcher.FetchView(ctx, cid)
	if err != nil {
		p.logger.Warn("annotated record unavailable", logging.Int64("cid", cid), logging.Err(err))
	} else {
		if p.cfg.RawDir != "" {
			p.writeSideFile(filepath.Join(p.cfg.RawDir, fmt.Sprintf("cid_%d.json", cid)), rawView)
		}
		view, err = ParseView(rawView)
		if err != nil {
			p.logger.Warn("annotated record unparseable", logging.Int64("cid", cid), logging.Err(err))
		}
	}
	if view == nil {
		view = &ViewData{}
	}

	// The 3D conformer record is archive-only; many compounds simply have
	// none.
	if p.cfg.RawDir != "" {
		if raw3d, err := p.fetcher.FetchRecord3D(ctx, cid); err != nil {
			p.logger.Debug("3d record unavailable", logging.Int64("cid", cid), logging.Err(err))
		} else {
			p.writeSideFile(filepath.Join(p.cfg.RawDir, fmt.Sprintf("cid_%d_3d.json", cid)), raw3d)
		}
	}

	name := preferredName(synonyms, view.Title, props)
	hazard := HazardTag(view.GHSCodes)
	solubility := SolubilityTag(props.XLogP)
	summary := BuildSummary(name, cid, props.MolecularFormula, props.MolecularWeight,
		hazard, solubility, view.Description)
	if p.summarizer != nil {
		if prose, err := p.summarizer.Summarize(ctx, summary); err != nil {
			p.logger.Warn("model summary failed, keeping template",
				logging.Int64("cid", cid), logging.Err(err))
		} else if prose != "" {
			summary = prose
		}
	}

	vector, err := p.embedder.Embed(ctx, summary)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "summary embedding")
	}

	rec := &molecule.Record{
		CID:    cid,
		Name:   name,
		SMILES: props.CanonicalSMILES,
		Vector: vector,
		Meta:   p.buildMeta(props, synonyms, view, hazard, solubility, summary),
	}

	if props.CanonicalSMILES != "" {
		fp, err := molecule.MorganFingerprint(props.CanonicalSMILES, p.fpRadius, p.fpBits)
		if err != nil {
			p.logger.Warn("fingerprint computation failed",
				logging.Int64("cid", cid), logging.Err(err))
		} else {
			rec.FingerprintBits = fp.Indices()
			p.metrics.IncFingerprintFallback()
		}
	}

	if p.cfg.ParsedDir != "" {
		if line, err := molecule.EncodeRecord(rec); err == nil {
			p.writeSideFile(filepath.Join(p.cfg.ParsedDir, fmt.Sprintf("cid_%d.json", cid)), line)
		}
	}
	return rec, nil
}

func (p *Pipeline) buildMeta(props *pubchem.Properties, synonyms []string, view *ViewData, hazard, solubility, summary string) map[string]interface{} {
	meta := map[string]interface{}{
		"formula":          props.MolecularFormula,
		"iupac_name":       props.IUPACName,
		"charge":           props.Charge,
		"h_bond_donors":    props.HBondDonorCount,
		"h_bond_acceptors": props.HBondAcceptorCount,
		"hazard_tag":       hazard,
		"solubility_tag":   solubility,
		"summary":          summary,
		"source":           "PubChem",
		"fetched":          time.Now().UTC().Format(time.RFC3339),
	}
	if mw, err := strconv.ParseFloat(props.MolecularWeight, 64); err == nil {
		meta["mw"] = mw
	}
	if props.XLogP != nil {
		meta["xlogp"] = *props.XLogP
	}
	if props.TPSA != nil {
		meta["tpsa"] = *props.TPSA
	}
	if props.IsomericSMILES != "" && props.IsomericSMILES != props.CanonicalSMILES {
		meta["isomeric_smiles"] = props.IsomericSMILES
	}
	if props.InChIKey != "" {
		meta["inchikey"] = props.InChIKey
	}
	if cas := CASFromSynonyms(synonyms); cas != "" {
		meta["cas"] = cas
	}
	if len(synonyms) > 0 {
		n := len(synonyms)
		if n > 5 {
			n = 5
		}
		meta["synonyms"] = synonyms[:n]
	}
	if len(view.GHSCodes) > 0 {
		meta["ghs_codes"] = view.GHSCodes
	}
	if view.FlashPoint != nil {
		meta["flash_point"] = *view.FlashPoint
	}
	if view.LD50 != nil {
		meta["ld50"] = *view.LD50
	}
	if view.Enthalpy != nil {
		meta["standard_enthalpy"] = *view.Enthalpy
	}
	if view.Entropy != nil {
		meta["entropy"] = *view.Entropy
	}
	if view.HeatCapacity != nil {
		meta["heat_capacity"] = *view.HeatCapacity
	}
	if len(view.SpectraSections) > 0 {
		meta["spectra_sections"] = view.SpectraSections
	}
	if view.ReleaseDate != "" {
		meta["source_version"] = view.ReleaseDate
	}
	return meta
}

// preferredName picks the best display name: first synonym, then the record
// title from either API.
func preferredName(synonyms []string, viewTitle string, props *pubchem.Properties) string {
	if len(synonyms) > 0 && synonyms[0] != "" {
		return synonyms[0]
	}
	if viewTitle != "" {
		return viewTitle
	}
	if props.Title != "" {
		return props.Title
	}
	return props.IUPACName
}

// writeSideFile persists a debugging artifact; failures are logged, never
// fatal.
func (p *Pipeline) writeSideFile(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		p.logger.Warn("side file write failed",
			logging.String("path", path), logging.Err(err))
	}
}
