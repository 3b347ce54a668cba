package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ursinus-CS476-F2020/LoopDitty/logging"
	"github.com/Ursinus-CS476-F2020/LoopDitty/projection/config"
)

var (
	configPath string
	logLevel   string

	// cfg is loaded before any subcommand runs
	cfg *config.Config
)

// rootCmd is the base command of the LoopDitty projection CLI
var rootCmd = &cobra.Command{
	Use:   "loopditty",
	Short: "Project audio feature streams to a 3D point cloud",
	Long: `loopditty turns time-aligned audio features into the 3D point cloud shown
by the LoopDitty visualizer: per-feature normalization and weighting,
optional sliding-window embedding, joint normalization and PCA.

Settings come from an optional YAML file and LOOPDITTY_* environment
variables, e.g. LOOPDITTY_PCA_SEED=7.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug|info|warn|error)")
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Logging.Level = logLevel
	}
	level, err := logging.ParseLevel(loaded.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}

	// stdout carries data, so every log line goes to stderr.
	logger := logging.NewDefaultLoggerWithWriters(os.Stderr, os.Stderr)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	cfg = loaded
	return nil
}
