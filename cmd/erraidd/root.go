// Command erraidd is the per-user job-scheduling daemon: it persists
// tasks, fires them on a calendar-mask schedule, and serves a
// request/response protocol over a pair of named pipes.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"erraid/internal/config"
	"erraid/internal/erlog"
	"erraid/internal/paths"
)

var (
	flagRoot      string
	flagConfig    string
	flagLog       string
	flagLogFormat string
	flagDebug     bool
)

var rootCmd = &cobra.Command{
	Use:   "erraidd",
	Short: "per-user job-scheduling daemon",
	Long: `erraidd persists user-defined tasks, fires them at minute granularity
according to a weekly calendar mask, captures their stdout/stderr, and
serves a control protocol over a pair of named pipes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "run directory (default: /tmp/<user>/erraid)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "optional YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagLog, "log", "", "log file path (default: stderr)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log output format, text or json (default: text)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
}

// resolveConfig preloads an optional .env file, then layers the built-in
// defaults, the optional YAML config file, environment overrides, and
// finally the command-line flags (which take precedence over everything
// else since the user passed them explicitly).
func resolveConfig() (config.Config, error) {
	_ = config.LoadEnvFile("")

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}

	if flagRoot != "" {
		cfg.Root = flagRoot
	}
	if flagLog != "" {
		cfg.LogPath = flagLog
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if flagDebug {
		cfg.Debug = true
	}

	if cfg.Root == "" {
		return config.Config{}, fmt.Errorf("no root directory configured and could not determine a default")
	}

	return cfg, nil
}

func setupLogging(cfg config.Config) (*slog.Logger, error) {
	w := io.Writer(os.Stderr)

	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), paths.DirMode); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, paths.FileMode)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	logger := erlog.New(erlog.Config{Level: level, Format: cfg.LogFormat, Output: w})
	erlog.SetDefault(logger)
	return logger, nil
}
