package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/robotu/molkit/internal/search"
)

var (
	searchTopK       int
	searchCandidateK int
	searchFilter     string
	searchThreshold  float64
	searchJSON       bool
)

// NewSearchCmd creates the search command with its semantic and structure
// subcommands.
func NewSearchCmd() *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Query the local molecule index",
	}

	semanticCmd := &cobra.Command{
		Use:   "semantic <query>",
		Short: "Semantic search over molecule summaries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSemanticSearch(cmd, strings.Join(args, " "))
		},
	}

	structureCmd := &cobra.Command{
		Use:   "structure <query>",
		Short: "Semantic search refined by chemical structure similarity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStructureSearch(cmd, strings.Join(args, " "))
		},
		Args: cobra.MinimumNArgs(1),
	}
	structureCmd.Flags().Float64Var(&searchThreshold, "threshold", 0,
		"minimum Tanimoto similarity against inferred references (default from config)")

	for _, c := range []*cobra.Command{semanticCmd, structureCmd} {
		c.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
		c.Flags().IntVar(&searchCandidateK, "candidate-k", 0, "candidate pool size before filtering (default from config)")
		c.Flags().StringVarP(&searchFilter, "filter", "f", "",
			`metadata filter as JSON, e.g. '{"mw": {"min": 0, "max": 300}, "hazard_tag": ["low hazard"]}'`)
		c.Flags().BoolVar(&searchJSON, "json", false, "emit raw JSON instead of a table")
	}

	searchCmd.AddCommand(semanticCmd, structureCmd)
	return searchCmd
}

func runSemanticSearch(cmd *cobra.Command, query string) error {
	cc := GetCLIContext(cmd.Context())
	engine, err := buildSearchEngine(cc, nil)
	if err != nil {
		return err
	}
	filter, err := search.ParseFilterJSON(searchFilter)
	if err != nil {
		return err
	}

	hits, err := engine.SearchBySemantics(cmd.Context(), query, search.Options{
		TopK:       searchTopK,
		CandidateK: searchCandidateK,
		Filter:     filter,
	})
	if err != nil {
		return err
	}
	if searchJSON {
		return printJSON(hits)
	}
	printSemanticTable(hits)
	return nil
}

func runStructureSearch(cmd *cobra.Command, query string) error {
	cc := GetCLIContext(cmd.Context())
	engine, err := buildSearchEngine(cc, nil)
	if err != nil {
		return err
	}
	filter, err := search.ParseFilterJSON(searchFilter)
	if err != nil {
		return err
	}

	hits, err := engine.SearchByStructure(cmd.Context(), query, search.StructureOptions{
		Options: search.Options{
			TopK:       searchTopK,
			CandidateK: searchCandidateK,
			Filter:     filter,
		},
		SimThreshold: searchThreshold,
	})
	if err != nil {
		return err
	}
	if searchJSON {
		return printJSON(hits)
	}
	printStructureTable(hits)
	return nil
}

func printSemanticTable(hits []search.Hit) {
	if len(hits) == 0 {
		fmt.Println("No results.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Rank", "Score", "CID", "Name", "SMILES"})
	for i, hit := range hits {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			formatScore(hit.Score),
			fmt.Sprintf("%d", hit.Record.CID),
			truncate(hit.Record.Name, 30),
			truncate(hit.Record.SMILES, 40),
		})
	}
	table.Render()
	fmt.Printf("\nTotal results: %d\n", len(hits))
}

func printStructureTable(hits []search.StructureHit) {
	if len(hits) == 0 {
		fmt.Println("No results. Structure search returns nothing when no reference compound could be resolved.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Rank", "Score", "Tanimoto", "CID", "Name", "SMILES"})
	for i, hit := range hits {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			formatScore(hit.Score),
			fmt.Sprintf("%.4f", hit.Similarity),
			fmt.Sprintf("%d", hit.Record.CID),
			truncate(hit.Record.Name, 30),
			truncate(hit.Record.SMILES, 40),
		})
	}
	table.Render()
	fmt.Printf("\nTotal results: %d\n", len(hits))
}

func formatScore(score float64) string {
	s := fmt.Sprintf("%.4f", score)
	switch {
	case score >= 0.8:
		return color.GreenString(s)
	case score >= 0.5:
		return color.YellowString(s)
	default:
		return s
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
