package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/rsspoll"
	"github.com/jpalmerr/rsspoll/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger on stderr so stdout carries only bodies.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}

// runCmd polls every configured feed until interrupted.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the configured feeds",
	Long: `Poll every configured feed until interrupted.

The command will:
  - Load configuration from the specified YAML file
  - Start one fetch-retry loop per feed (grids expand to many feeds)
  - Write each successful body to stdout, or to --output, followed by a newline
  - Log failed attempts to stderr as JSON
  - Serve the status API when status_port is set

The command runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  rsspoll run -c config.yaml
  rsspoll run -c config.yaml --output bodies.txt --log-level debug`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	runCmd.Flags().StringP("output", "o", "", "append bodies to this file instead of stdout")
	runCmd.Flags().String("log-level", "info", "log level: debug, info, warn, error")
	_ = runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	logger, err := newLogger(level)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"feeds", len(cfg.Feeds),
		"grids", len(cfg.Grids),
		"backoff", cfg.Backoff.Duration().String(),
		"status_port", cfg.StatusPort,
	)

	opts, err := config.PollerOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build feeds: %w", err)
	}
	opts = append(opts,
		rsspoll.WithLogger(logger),
		rsspoll.WithSink(rsspoll.NewSlogSink(logger)),
	)

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath != "" {
		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open output: %w", err)
		}
		defer f.Close()
		opts = append(opts, rsspoll.WithOutput(f))
	} else {
		opts = append(opts, rsspoll.WithOutput(cmd.OutOrStdout()))
	}

	p, err := rsspoll.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create poller: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- p.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("poller error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("poller error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
