package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/robotu/molkit/internal/config"
	"github.com/robotu/molkit/pkg/errors"
)

var configBaseURL string

// NewConfigCmd creates the config command for credential management.
func NewConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage stored configuration and credentials",
	}

	setKeyCmd := &cobra.Command{
		Use:   "set-api-key <key>",
		Short: "Store the AI API key in the user config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if args[0] == "" {
				return errors.New(errors.ErrCodeCredentialMissing, "API key must not be empty")
			}
			path, err := config.SaveCredentials(args[0], configBaseURL)
			if err != nil {
				return err
			}
			PrintSuccess("credentials saved to %s", path)
			return nil
		},
	}
	setKeyCmd.Flags().StringVar(&configBaseURL, "base-url", "",
		"OpenAI-compatible endpoint to use with the key")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the user config file location",
		RunE: func(*cobra.Command, []string) error {
			path, err := config.UserConfigPath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := GetCLIContext(cmd.Context())
			cfg := cc.Config

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Setting", "Value"})
			table.Append([]string{"server.port", fmt.Sprintf("%d", cfg.Server.Port)})
			table.Append([]string{"log.level", cfg.Log.Level})
			table.Append([]string{"pubchem.base_url", cfg.PubChem.BaseURL})
			table.Append([]string{"ai.base_url", cfg.AI.BaseURL})
			table.Append([]string{"ai.api_key", maskSecret(cfg.AI.APIKey)})
			table.Append([]string{"ai.embed_model", cfg.AI.EmbedModel})
			table.Append([]string{"ai.infer_model", cfg.AI.InferModel})
			table.Append([]string{"search.index_path", cfg.Search.IndexPath})
			table.Append([]string{"search.metric", cfg.Search.Metric})
			table.Append([]string{"search.top_k", fmt.Sprintf("%d", cfg.Search.TopK)})
			table.Append([]string{"search.sim_threshold", fmt.Sprintf("%.2f", cfg.Search.SimThreshold)})
			table.Append([]string{"redis.addr", cfg.Redis.Addr})
			table.Render()
			return nil
		},
	}

	configCmd.AddCommand(setKeyCmd, pathCmd, showCmd)
	return configCmd
}

// maskSecret keeps only the last four characters visible.
func maskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
