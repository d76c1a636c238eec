package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/use-agent/shelfprobe/config"
)

var (
	configPath string
	verbose    bool
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "shelfprobe",
	Short:         "shelfprobe extracts price, rating and catalog data from grocery product pages.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file applied on top of the environment configuration.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every extraction step.")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", `Log format, "text" or "json" (default from SHELFPROBE_LOG_FORMAT).`)
}

// ExecuteContext runs the CLI and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment, applies --config and validates.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := cfg.ApplyFile(configPath); err != nil {
			return nil, err
		}
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// cliLogger logs to stderr. Step logs are Info, so without --verbose only
// warnings and errors come through.
func cliLogger(cfg config.LogConfig) *slog.Logger {
	level := "warn"
	if verbose {
		level = cfg.Level
		if level == "" || level == "warn" || level == "error" {
			level = "info"
		}
	}
	return initLogger(os.Stderr, level, cfg.Format)
}

// initLogger builds a slog logger and installs it as the default.
func initLogger(w io.Writer, levelName, format string) *slog.Logger {
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// validateURL enforces an absolute http(s) address.
func validateURL(raw string) error {
	if !strings.HasPrefix(raw, "http") {
		return fmt.Errorf("invalid URL %q: it must start with http or https", raw)
	}
	return nil
}
