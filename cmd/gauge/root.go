package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/phrazzld/gauge/internal/config"
	"github.com/phrazzld/gauge/internal/platform/logger"
)

var rootCmd = &cobra.Command{
	Use:           "gauge",
	Short:         "Adaptive diagnostic testing and learning plans",
	Long:          "gauge runs adaptive IRT diagnostic sessions, turns their results into personal learning plans and reminds learners to re-assess.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (defaults to ./config.yaml when present)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(tokenCmd)
}

// loadConfig reads the configuration named by --config and sets up the
// process logger from it.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(logger.LoggerConfig{
		Level:  cfg.Server.LogLevel,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, log.With(slog.String("command", cmd.Name())), nil
}
