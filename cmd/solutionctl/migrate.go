package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/solution-builder/internal/storage"
)

var (
	migrateDSN string
	migrateDir string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	RunE:  runMigrateStatus,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE:  runMigrateUp,
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrateDSN, "dsn", os.Getenv("DATABASE_DSN"), "PostgreSQL DSN (defaults to $DATABASE_DSN)")
	migrateCmd.PersistentFlags().StringVar(&migrateDir, "dir", "", "Migrations directory (defaults to the embedded migrations)")
	migrateCmd.AddCommand(migrateStatusCmd, migrateUpCmd)
	rootCmd.AddCommand(migrateCmd)
}

func openRepository(ctx context.Context) (*storage.PostgresRepository, error) {
	if migrateDSN == "" {
		return nil, fmt.Errorf("a DSN is required: pass --dsn or set DATABASE_DSN")
	}
	return storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: migrateDSN, MaxOpenConns: 2, MaxIdleConns: 1})
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	repo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	statuses, err := storage.PendingMigrations(ctx, repo.Pool(), storage.MigrationSource(migrateDir))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(out, "%-8s %s\n", state, s.Name)
	}
	return nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	repo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := storage.RunMigrations(ctx, repo.Pool(), storage.MigrationSource(migrateDir)); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}
