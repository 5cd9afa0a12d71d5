// Package main is the entry point for the rsspoll CLI.
//
// rsspoll can be used as a library (SDK) or as a standalone binary with YAML
// configuration. This CLI provides the standalone binary.
//
// Usage:
//
//	rsspoll run -c config.yaml      # Poll feeds, bodies to stdout
//	rsspoll validate -c config.yaml # Validate configuration
//	rsspoll version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd only shows help; functionality lives in subcommands.
var rootCmd = &cobra.Command{
	Use:   "rsspoll",
	Short: "Poll news feeds forever and print their bodies",
	Long: `rsspoll fetches news feeds over HTTP in a loop.

Each feed is requested with a browser-like header set and a rotating
user agent. Successful bodies are written to stdout, one per line.
Failures are logged to stderr and retried after a randomized backoff
of 1.5x to 2x the feed's base backoff.

Quick start:
  1. Create a config file (rsspoll.yaml)
  2. Run: rsspoll run -c rsspoll.yaml > bodies.txt

Example config:
  backoff: 2s
  feeds:
    - name: bbc-world
      url: https://feeds.bbci.co.uk/news/world/rss.xml`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this rsspoll binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "rsspoll %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
