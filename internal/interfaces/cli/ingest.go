package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/robotu/molkit/internal/infrastructure/ai"
	"github.com/robotu/molkit/internal/infrastructure/pubchem"
	"github.com/robotu/molkit/internal/ingest"
	"github.com/robotu/molkit/pkg/errors"
)

var (
	ingestCIDs        string
	ingestFile        string
	ingestRawDir      string
	ingestParsedDir   string
	ingestIndexPath   string
	ingestConcurrency int
	ingestLLMSummary  bool
)

// NewIngestCmd creates the ingest command.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [cid...]",
		Short: "Fetch compounds from PubChem and build the local index",
		Long:  "Fetches properties, synonyms, and annotated records for each compound,\nderives hazard and solubility tags, embeds a retrieval summary, and writes\nthe result as one index record per compound.",
		RunE:  runIngest,
	}
	cmd.Flags().StringVar(&ingestCIDs, "cids", "", "comma-separated CID list (alternative to positional args)")
	cmd.Flags().StringVar(&ingestFile, "file", "", "file with one CID per line")
	cmd.Flags().StringVar(&ingestRawDir, "raw-dir", "", "directory for raw PUG-View archives (default from config)")
	cmd.Flags().StringVar(&ingestParsedDir, "parsed-dir", "", "directory for parsed per-compound records (default from config)")
	cmd.Flags().StringVar(&ingestIndexPath, "jsonl", "", "output index file (default from config)")
	cmd.Flags().IntVar(&ingestConcurrency, "concurrency", 0, "parallel compound workers (default from config)")
	cmd.Flags().BoolVar(&ingestLLMSummary, "llm-summary", false, "rewrite the templated summary with the inference model before embedding")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestFile != "" {
		fromFile, err := readCIDFile(ingestFile)
		if err != nil {
			return err
		}
		args = append(args, fromFile...)
	}
	cids, err := parseCIDs(args, ingestCIDs)
	if err != nil {
		return err
	}

	cc := GetCLIContext(cmd.Context())
	cfg := cc.Config
	if ingestConcurrency > 0 {
		cfg.Ingest.Concurrency = ingestConcurrency
	}
	if ingestRawDir != "" {
		cfg.Ingest.RawDir = ingestRawDir
	}
	if ingestParsedDir != "" {
		cfg.Ingest.ParsedDir = ingestParsedDir
	}
	if ingestIndexPath != "" {
		cfg.Ingest.IndexPath = ingestIndexPath
	}
	if cfg.Ingest.IndexPath == "" {
		cfg.Ingest.IndexPath = cfg.Search.IndexPath
	}

	aiClient, err := ai.NewClient(cfg.AI, cc.Logger)
	if err != nil {
		return err
	}
	fetcher := pubchem.NewClient(cfg.PubChem, cc.Logger, nil)

	pipeline, err := ingest.NewPipeline(fetcher, aiClient, cfg.Ingest,
		cfg.Search.FingerprintBits, cc.Logger, nil)
	if err != nil {
		return err
	}
	if ingestLLMSummary {
		pipeline.WithSummarizer(aiClient)
	}

	report, err := pipeline.Run(cmd.Context(), cids)
	if err != nil {
		return err
	}

	PrintSuccess("ingested %d/%d compounds into %s",
		report.Processed, report.Requested, report.IndexPath)
	if report.Failed > 0 {
		printFailures(report.Failures)
	}
	return nil
}

func parseCIDs(args []string, flagValue string) ([]int64, error) {
	raw := append([]string{}, args...)
	if flagValue != "" {
		raw = append(raw, strings.Split(flagValue, ",")...)
	}

	seen := make(map[int64]struct{})
	var cids []int64
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		cid, err := strconv.ParseInt(s, 10, 64)
		if err != nil || cid <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidCID,
				fmt.Sprintf("%q is not a valid CID", s))
		}
		if _, dup := seen[cid]; dup {
			continue
		}
		seen[cid] = struct{}{}
		cids = append(cids, cid)
	}
	if len(cids) == 0 {
		return nil, errors.InvalidParam("no CIDs given; pass them as arguments or via --cids")
	}
	return cids, nil
}

// readCIDFile reads one CID per line; blank lines and # comments are skipped.
func readCIDFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidCID, "read CID file").WithDetail(path)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

func printFailures(failures map[int64]string) {
	cids := make([]int64, 0, len(failures))
	for cid := range failures {
		cids = append(cids, cid)
	}
	sort.Slice(cids, func(i, j int) bool { return cids[i] < cids[j] })

	table := tablewriter.NewWriter(os.Stderr)
	table.SetHeader([]string{"CID", "Error"})
	for _, cid := range cids {
		table.Append([]string{
			fmt.Sprintf("%d", cid),
			truncate(failures[cid], 80),
		})
	}
	table.Render()
}
