// Package config loads daemon configuration in layers: built-in
// defaults, an optional YAML file, then environment variable overrides,
// with an optional .env file preloaded before any of that is read.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"erraid/internal/paths"
)

const (
	envRoot      = "ERRAID_ROOT"
	envLogPath   = "ERRAID_LOG"
	envLogFormat = "ERRAID_LOG_FORMAT"
	envDebug     = "ERRAID_DEBUG"
)

// Config is the daemon's resolved runtime configuration.
type Config struct {
	// Root is the base directory for the task store and pipes.
	Root string
	// LogPath is the destination for log output; empty means stderr.
	LogPath string
	// LogFormat is "text" or "json".
	LogFormat string
	// Debug enables debug-level logging.
	Debug bool
}

// fileConfig mirrors the optional YAML config file's shape; pointer
// fields distinguish "absent" from "explicitly zero".
type fileConfig struct {
	Root      *string `yaml:"root"`
	LogPath   *string `yaml:"logPath"`
	LogFormat *string `yaml:"logFormat"`
	Debug     *bool   `yaml:"debug"`
}

// Default returns the built-in configuration defaults.
func Default() Config {
	root, err := paths.DefaultRoot()
	if err != nil {
		root = ""
	}
	return Config{
		Root:      root,
		LogPath:   "",
		LogFormat: "text",
		Debug:     false,
	}
}

// LoadEnvFile preloads a .env file's variables into the process
// environment without overriding variables already set. A missing file
// is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Load resolves a Config by layering defaults, an optional YAML file at
// filePath (ignored if empty or absent), and environment variable
// overrides, in that order.
func Load(filePath string) (Config, error) {
	cfg := Default()

	if trimmed := strings.TrimSpace(filePath); trimmed != "" {
		data, err := os.ReadFile(trimmed)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: read %q: %w", trimmed, err)
			}
		} else {
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return Config{}, fmt.Errorf("config: parse %q: %w", trimmed, err)
			}
			mergeFileConfig(&cfg, fc)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func mergeFileConfig(cfg *Config, fc fileConfig) {
	if fc.Root != nil {
		cfg.Root = strings.TrimSpace(*fc.Root)
	}
	if fc.LogPath != nil {
		cfg.LogPath = strings.TrimSpace(*fc.LogPath)
	}
	if fc.LogFormat != nil {
		cfg.LogFormat = strings.TrimSpace(*fc.LogFormat)
	}
	if fc.Debug != nil {
		cfg.Debug = *fc.Debug
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Root = envString(envRoot, cfg.Root)
	cfg.LogPath = envString(envLogPath, cfg.LogPath)
	cfg.LogFormat = envString(envLogFormat, cfg.LogFormat)
	cfg.Debug = envBool(envDebug, cfg.Debug)
}

func envString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func envBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}
