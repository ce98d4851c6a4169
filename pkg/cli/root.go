// Package cli implements the reqtrace command-line harness.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/getmockd/reqtrace/pkg/config"
	"github.com/getmockd/reqtrace/pkg/logging"
)

var (
	cfgPath   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "reqtrace",
	Short:         "Trace the lifecycle of outbound network requests",
	Long:          "reqtrace instruments outbound HTTP calls and reports each request's\nlifecycle (DNS, connect, send, headers, body, completion) as\nNetwork-domain telemetry.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")
}

// loadConfig resolves the effective configuration: file values (if any) with
// command-line flags layered on top.
func loadConfig() (*config.File, error) {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg, nil
}

// newLogger builds the structured logger for server-side components.
func newLogger(cfg *config.File) *logging.Config {
	return &logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
	}
}
