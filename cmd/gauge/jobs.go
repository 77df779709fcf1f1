package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/phrazzld/gauge/internal/catalog"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Terminate diagnostic sessions that ran past their time limit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := instantFlag(cmd)
		if err != nil {
			return err
		}
		return withDatabase(cmd, func(ctx context.Context, app *application) error {
			ids, err := app.diagnostic.SweepTimedOut(ctx, at)
			if len(ids) > 0 {
				app.logger.Info("sessions terminated", slog.Int("count", len(ids)))
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]any{"terminated": ids})
		})
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send the re-assessment reminders that are due",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := instantFlag(cmd)
		if err != nil {
			return err
		}
		return withDatabase(cmd, func(ctx context.Context, app *application) error {
			counts, err := app.reminders.CheckReminders(ctx, at)
			if writeErr := writeJSON(cmd, counts); writeErr != nil {
				return errors.Join(err, writeErr)
			}
			return err
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load domains, items and learning paths from a catalog file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, func(ctx context.Context, app *application) error {
			path := app.config.Catalog.SeedFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no catalog file given and catalog.seed_file is not set")
			}

			cat, err := catalog.LoadFile(path)
			if err != nil {
				return err
			}
			summary, err := app.seeder().Seed(ctx, cat)
			if err != nil {
				return err
			}
			return writeJSON(cmd, summary)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{sweepCmd, remindCmd} {
		cmd.Flags().String("at", "", "Evaluate as of this RFC 3339 instant instead of now")
	}
}

// instantFlag returns the --at flag, or the current UTC time when unset.
func instantFlag(cmd *cobra.Command) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("at")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at value %q: %w", raw, err)
	}
	return at.UTC(), nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
