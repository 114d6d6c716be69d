// Command engine runs the gamification engine: schema migrations, event
// replays from YAML scenarios and the background worker.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/config"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/pkg/logger"
)

var (
	// Global flags
	envFiles  []string
	logLevel  string
	logFormat string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Progress, streak, achievement, leaderboard and challenge engine",
	Long: `engine tracks learner progress and turns learning events into points,
levels, streaks, achievements, leaderboard standings and challenge rewards.

Configuration is read from the environment and optional .env files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFiles...)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Observability.LogLevel = logLevel
		}
		if logFormat != "" {
			cfg.Observability.LogFormat = logFormat
		}

		opts := logger.DefaultOptions()
		opts.Level = cfg.Observability.LogLevel
		opts.Format = logger.Format(cfg.Observability.LogFormat)
		opts.Fields = map[string]string{
			"app":     cfg.App.Name,
			"env":     string(cfg.App.Environment),
			"version": cfg.App.Version,
		}
		log, err = logger.New(opts)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, ".env files to load (default .env if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override LOG_FORMAT (json, console)")

	rootCmd.AddCommand(migrateCmd, replayCmd, workerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
