package cmd

import (
	"fmt"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/iocache"
	"github.com/crackerjack/gitmetrics/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeConnect returns the store connection string for store subcommands:
// the repository store when a path is given, the portfolio store otherwise.
func storeConnect(args []string) (string, error) {
	if cfg.StoreBackend != schema.SQLiteBackend || cfg.StoreDBConnect != "" {
		return cfg.StoreDBConnect, nil
	}
	if len(args) == 1 {
		if err := contract.RequireGitRepository(cfg.RepoPaths[0]); err != nil {
			return "", fmt.Errorf("cannot locate repository store: %w", err)
		}
		return contract.GetRepoDBFilePath(cfg.RepoPaths[0]), nil
	}
	return contract.GetPortfolioDBFilePath("."), nil
}

// openStoreFor opens the store selected by storeConnect.
func openStoreFor(args []string) (contract.MetricsStore, error) {
	connStr, err := storeConnect(args)
	if err != nil {
		return nil, err
	}
	store, err := iocache.NewMetricsStore(cfg.StoreBackend, connStr)
	if err != nil {
		return nil, fmt.Errorf("cannot open metrics store: %w", err)
	}
	return store, nil
}

// storeCmd focused on metrics store management.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the metrics store and export cached history",
	Long: `Manage the database where gitmetrics keeps raw commits, reflog events, merges,
dashboard snapshots and daily repository health.

Without a repository argument the subcommands act on the portfolio store
(.gitmetrics/git_metrics.db for SQLite). With one, they act on <repo>/.git/git_metrics.db.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show backend, connection and table sizes
  export  - Export cached commits and merges to Parquet
  migrate - Run database schema migrations

Examples:
  gitmetrics store status
  gitmetrics store export --output-file metrics
  gitmetrics store migrate --store-backend mysql --store-db-connect "user:pass@tcp(localhost:3306)/metrics"`,
}

var storeStatusCmd = &cobra.Command{
	Use:   "status [repo-path]",
	Short: "Display store statistics and connection details",
	Long: `Show the backend, whether it is reachable, the newest cached commit and the
number of rows in every metrics table.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStoreFor(args)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		status, err := store.GetStatus(rootCtx)
		if err != nil {
			return fmt.Errorf("failed to get store status: %w", err)
		}
		if err := writer.WriteStoreStatus(status, cfg); err != nil {
			return fmt.Errorf("error writing store status: %w", err)
		}
		return nil
	},
}

var storeExportCmd = &cobra.Command{
	Use:   "export [repo-path]",
	Short: "Export cached history to Parquet for BI tools and analytics",
	Long: `Export the cached commits and merges of every repository in the store to Parquet.

Writes two files next to --output-file:
  <output-file>.commits.parquet
  <output-file>.merges.parquet

--since and --until limit the exported window.

Examples:
  gitmetrics store export --output-file metrics
  duckdb -c "SELECT conventional_type, count(*) FROM 'metrics.commits.parquet' GROUP BY 1"`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStoreFor(args)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		result, err := iocache.ExportMetrics(rootCtx, store, cfg.OutputFile, cfg.StartTime, cfg.EndTime)
		if err != nil {
			return fmt.Errorf("failed to export metrics: %w", err)
		}
		fmt.Printf("Exported %d commits to: %s\n", result.Commits, result.CommitsFile)
		fmt.Printf("Exported %d merges to: %s\n", result.Merges, result.MergesFile)
		fmt.Printf("Repositories: %d\n", result.Repositories)
		return nil
	},
}

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate [repo-path]",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage schema versions of the metrics store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  gitmetrics store migrate

  # Roll everything back
  gitmetrics store migrate --target-version 0`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		connStr, err := storeConnect(args)
		if err != nil {
			return err
		}
		result, err := iocache.MigrateMetrics(cfg.StoreBackend, connStr, viper.GetInt("target-version"))
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if !result.Changed {
			fmt.Printf("Store (%s) already at version %d\n", result.Backend, result.ToVersion)
			return nil
		}
		fmt.Printf("Migrated store (%s) from version %d to %d\n", result.Backend, result.FromVersion, result.ToVersion)
		return nil
	},
}
