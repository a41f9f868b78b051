package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/iocache"
	"github.com/crackerjack/gitmetrics/internal/logging"
	"github.com/crackerjack/gitmetrics/internal/outwriter"
	"github.com/crackerjack/gitmetrics/schema"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// writer renders every command result.
var writer = outwriter.NewOutWriter()

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "gitmetrics",
	Short: "Measure development velocity and repository health from Git history.",
	Long: `Gitmetrics reads commit, reflog and merge history to report how a team actually works:
commit velocity, Conventional Commits compliance, branch switching, merge conflicts,
and a health score that compares many repositories at once.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A missing .env is fine; anything else is worth a warning
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		contract.LogWarn("Cannot load .env file", err)
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("GITMETRICS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("days", contract.DefaultCommitWindowDays)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("timeout", contract.DefaultGitTimeout.String())
	viper.SetDefault("conflict-detection", schema.TreeDetection)
	viper.SetDefault("store-backend", schema.SQLiteBackend)
	viper.SetDefault("store-db-connect", "")
	viper.SetDefault("color", "yes")
	viper.SetDefault("log-level", "warn")
	viper.SetDefault("log-format", "text")
	viper.SetDefault("patterns.min-repos", contract.DefaultMinPatternRepos)
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".gitmetrics") // Name of config file (without extension)
		viper.SetConfigType("yaml")        // We'll use YAML format
		viper.AddConfigPath(".")           // Look in the current directory
		viper.AddConfigPath("$HOME")       // Look in the home directory
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	input.RepoPathStrs = args

	// 4. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	// 5. Logging and colors follow the validated config.
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	color.NoColor = !cfg.UseColors
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// repoStoreConnect returns the connection string of the store for one repository.
// SQLite defaults to <repo>/.git/git_metrics.db.
func repoStoreConnect(repoPath string) string {
	if cfg.StoreBackend == schema.SQLiteBackend && cfg.StoreDBConnect == "" {
		return contract.GetRepoDBFilePath(repoPath)
	}
	return cfg.StoreDBConnect
}

// openStore opens the configured metrics store. An empty repoPath selects the
// portfolio store, which for SQLite defaults to .gitmetrics/git_metrics.db.
func openStore(repoPath string) (contract.MetricsStore, error) {
	connStr := cfg.StoreDBConnect
	if repoPath != "" {
		// Checked first so a missing .git directory is never created for the SQLite file
		if err := contract.RequireGitRepository(repoPath); err != nil {
			return nil, err
		}
		connStr = repoStoreConnect(repoPath)
	}
	store, err := iocache.NewMetricsStore(cfg.StoreBackend, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics store: %w", err)
	}
	return store, nil
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Get().Close() }()
	return rootCmd.Execute()
}
