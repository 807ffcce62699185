// Package cli implements the molkit command tree: ingestion, local search,
// credential management, and the API server.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/robotu/molkit/internal/config"
	"github.com/robotu/molkit/internal/infrastructure/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	NoColor    bool
}

// CLIContext carries the loaded configuration and logger through the command
// tree.
type CLIContext struct {
	Config *config.Config
	Logger logging.Logger
}

// NewRootCommand creates the root command with global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "molkit",
		Short:   "Molecule ingestion and hybrid semantic search",
		Long:    "molkit ingests compound data from PubChem into a local vector index\nand answers natural-language queries with semantic, metadata-filtered,\nand structure-refined search.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initContext(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: user config dir)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		NewIngestCmd(),
		NewSearchCmd(),
		NewConfigCmd(),
		NewServeCmd(),
	)
	return cmd
}

func initContext(cmd *cobra.Command, opts *RootOptions) error {
	// A .env file in the working directory is a developer convenience, not a
	// requirement.
	_ = godotenv.Load()

	if opts.NoColor {
		color.NoColor = true
	}

	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, &CLIContext{
		Config: cfg,
		Logger: logger,
	}))
	return nil
}

// GetCLIContext extracts the CLIContext stored by the root command.
func GetCLIContext(ctx context.Context) *CLIContext {
	if c, ok := ctx.Value(cliContextKey{}).(*CLIContext); ok {
		return c
	}
	return &CLIContext{
		Config: &config.Config{},
		Logger: logging.NewNopLogger(),
	}
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// PrintSuccess writes a green confirmation line to stdout.
func PrintSuccess(format string, args ...interface{}) {
	color.Green("✓ "+format, args...)
}

// PrintError writes a red error line to stderr.
func PrintError(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, color.RedString("✗ "+format, args...))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
