package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/qaoasim/internal/config"
)

var (
	logLevel string
	dataDir  string
	logger   *slog.Logger

	// defaults come from .env and QAOASIM_* variables. A bad value is
	// reported when a command runs, not at startup.
	defaults, configErr = loadDefaults()
)

var rootCmd = &cobra.Command{
	Use:   "qaoasim",
	Short: "State-vector QAOA simulation for MaxCut",
	Long: `qaoasim builds QAOA circuits for weighted MaxCut instances, optimizes their
angles with mayfly or gonum optimizers, and checkpoints the best angles so a run
can be resumed at the same or a greater depth.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}

		level, err := config.ParseLevel(logLevel)
		if err != nil {
			return err
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
		return nil
	},
}

func loadDefaults() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Default(), err
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaults.DataDir, "Base directory for checkpoints and traces")
}
