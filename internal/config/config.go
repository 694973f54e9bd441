// Package config provides environment-backed defaults for the CLI.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvLogLevel = "QAOASIM_LOG_LEVEL"
	EnvDataDir  = "QAOASIM_DATA_DIR"
	EnvDepth    = "QAOASIM_DEPTH"
	EnvSeed     = "QAOASIM_SEED"
)

// Config holds defaults that command-line flags may override.
type Config struct {
	LogLevel string
	DataDir  string // always absolute
	Depth    int
	Seed     int64
}

// Load reads a .env file from the working directory if present, then the
// process environment. Variables already set in the environment win over
// the file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// Default returns the built-in defaults. DataDir is relative here.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		DataDir:  "data",
		Depth:    3,
		Seed:     42,
	}
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	def := Default()
	dataDir, err := filepath.Abs(getEnv(EnvDataDir, def.DataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		LogLevel: strings.ToLower(getEnv(EnvLogLevel, def.LogLevel)),
		DataDir:  dataDir,
		Depth:    getEnvAsInt(EnvDepth, def.Depth),
		Seed:     getEnvAsInt64(EnvSeed, def.Seed),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configured values.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Depth < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", EnvDepth, c.Depth)
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		slog.Warn("Ignoring malformed integer", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
		slog.Warn("Ignoring malformed integer", "key", key, "value", value)
	}
	return defaultValue
}
