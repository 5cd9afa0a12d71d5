package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/rsspoll/config"
	"github.com/jpalmerr/rsspoll/internal/jitter"
)

// validateCmd validates a config file without polling.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an rsspoll configuration file without polling anything.

This command parses the YAML, expands environment variables, validates
all fields, and expands grids into feeds. It's useful for CI/CD pipelines
or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  rsspoll validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	feeds, err := config.BuildFeeds(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// names must be unique once grids are expanded
	seen := make(map[string]bool, len(feeds))
	for _, f := range feeds {
		if seen[f.Name()] {
			return fmt.Errorf("invalid config: duplicate feed name %q", f.Name())
		}
		seen[f.Name()] = true
	}

	direct := len(cfg.Feeds)
	fromGrids := len(feeds) - direct

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Status port: %s\n", statusPortString(cfg.StatusPort))
	lo, hi := jitter.Bounds(cfg.Backoff.Duration())
	fmt.Fprintf(out, "  Backoff:     %s (retries wait %s to %s)\n", cfg.Backoff.Duration(), lo, hi)
	fmt.Fprintf(out, "  Timeout:     %s\n", cfg.Timeout.Duration())
	fmt.Fprintf(out, "  Feeds:       %d direct + %d from grids = %d total\n",
		direct, fromGrids, len(feeds))

	return nil
}

func statusPortString(port int) string {
	if port == 0 {
		return "disabled"
	}
	return fmt.Sprintf("%d", port)
}
