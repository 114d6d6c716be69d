package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/persistence/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down|status]",
	Short: "Apply, roll back or list PostgreSQL schema migrations",
	Long: `Manages the engine_records schema in the database named by DATABASE_URL.

  up      apply every pending migration (default)
  down    roll back the most recent migration
  status  list migrations and when they were applied`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down", "status"},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	action := "up"
	if len(args) == 1 {
		action = args[0]
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required for migrate")
	}

	ctx := cmd.Context()
	a := &app{cfg: cfg, logger: log}
	defer a.Close()
	if err := a.openPostgres(ctx); err != nil {
		return err
	}
	migrator := postgres.NewMigrator(a.pg, log)

	switch action {
	case "up":
		n, err := migrator.Migrate(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", zap.Int("count", n))
		return nil
	case "down":
		return migrator.Rollback(ctx)
	case "status":
		return printMigrationStatus(ctx, cmd, migrator)
	default:
		return fmt.Errorf("unknown migrate action %q", action)
	}
}

func printMigrationStatus(ctx context.Context, cmd *cobra.Command, migrator *postgres.Migrator) error {
	migrations, err := migrator.Status(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
	for _, m := range migrations {
		applied := "pending"
		if m.IsApplied {
			applied = m.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%03d\t%s\t%s\n", m.Version, m.Name, applied)
	}
	return w.Flush()
}
