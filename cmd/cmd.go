// Package cmd defines the command-line interface for gitmetrics.
package cmd

import (
	"github.com/crackerjack/gitmetrics/core/portfolio"
	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(commitsCmd)
	rootCmd.AddCommand(branchesCmd)
	rootCmd.AddCommand(mergesCmd)
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the portfolio subcommands to the parent portfolio command
	portfolioCmd.AddCommand(portfolioHealthCmd)
	portfolioCmd.AddCommand(portfolioPatternsCmd)
	portfolioCmd.AddCommand(portfolioPracticesCmd)
	portfolioCmd.AddCommand(portfolioDiscoverCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("since", "", "Window start in ISO8601 or a phrase like '2 weeks ago'")
	rootCmd.PersistentFlags().String("until", "", "Window end in ISO8601 or a phrase like 'yesterday'")
	rootCmd.PersistentFlags().IntP("days", "d", contract.DefaultCommitWindowDays, "Number of days to analyze when --since is not set")
	rootCmd.PersistentFlags().String("timeout", contract.DefaultGitTimeout.String(), "Timeout of every git call (e.g. 30s, 2m)")
	rootCmd.PersistentFlags().String("conflict-detection", string(schema.TreeDetection), "Merge conflict detection: tree or parents")
	rootCmd.PersistentFlags().String("store-backend", string(schema.SQLiteBackend), "Metrics store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of repositories analyzed concurrently")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format on stderr: text or json")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all persistent flags of portfolioCmd to Viper
	portfolioCmd.PersistentFlags().Bool("from-cache", false, "Compute velocity from the metrics store instead of running git")
	if err := viper.BindPFlags(portfolioCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding portfolio flags", err)
	}

	// Bind all flags of portfolioDiscoverCmd to Viper
	portfolioDiscoverCmd.Flags().Int("depth", portfolio.DefaultDiscoverDepth, "How many directory levels to search")
	if err := viper.BindPFlags(portfolioDiscoverCmd.Flags()); err != nil {
		contract.LogFatal("Error binding discover flags", err)
	}

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
