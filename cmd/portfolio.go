package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/crackerjack/gitmetrics/core"
	"github.com/crackerjack/gitmetrics/core/portfolio"
	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/outwriter"
	"github.com/crackerjack/gitmetrics/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// runPortfolio opens the portfolio store and analyzes cfg.RepoPaths with it.
func runPortfolio() (schema.PortfolioReport, time.Duration, error) {
	store, err := openStore("")
	if err != nil {
		return schema.PortfolioReport{}, 0, fmt.Errorf("cannot open metrics store: %w", err)
	}
	defer func() { _ = store.Close() }()

	report, duration, err := analyzePortfolio(rootCtx, store)
	if err != nil {
		return schema.PortfolioReport{}, 0, fmt.Errorf("cannot analyze portfolio: %w", err)
	}
	return report, duration, nil
}

// analyzePortfolio runs the aggregator over cfg.RepoPaths with the given store.
func analyzePortfolio(ctx context.Context, store contract.MetricsStore) (schema.PortfolioReport, time.Duration, error) {
	start := time.Now()
	opts := []portfolio.Option{
		portfolio.WithWeights(cfg.HealthWeights),
		portfolio.WithMinPatternRepos(cfg.MinPatternRepos),
		portfolio.WithWorkers(cfg.Workers),
		portfolio.WithStore(store),
		portfolio.WithFromCache(cfg.FromCache),
	}
	// The bar would corrupt piped stderr, so it is only shown on a terminal
	if term.IsTerminal(int(os.Stderr.Fd())) {
		opts = append(opts, portfolio.WithProgress(outwriter.NewBarProgressReporter(os.Stderr, "Analyzing repositories")))
	}

	var factory portfolio.CollectorFactory
	if !cfg.FromCache {
		factory = portfolio.NewCollectorFactory(nil, store,
			core.WithTimeout(cfg.Timeout),
			core.WithConflictDetection(cfg.ConflictDetection),
		)
	}
	agg, err := portfolio.NewAggregator(factory, opts...)
	if err != nil {
		return schema.PortfolioReport{}, 0, fmt.Errorf("invalid portfolio settings: %w", err)
	}
	report, err := agg.Analyze(ctx, cfg.RepoPaths, cfg.DaysBack)
	if err != nil {
		return schema.PortfolioReport{}, 0, err
	}
	return report, time.Since(start), nil
}

// portfolioCmd groups the cross-repository commands.
var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Compare the health of many repositories",
	Long: `Analyze several repositories at once and compare them.

Each repository gets a health score from 0 to 100:
  compliance x 30 + min(commits per day / 10, 1) x 30 + (1 - conflict rate) x 20 - 5 per breaking change

The weights can be changed in .gitmetrics.yaml under health.weights.

Subcommands:
  health    - Rank repositories by health score
  patterns  - Problems shared by several repositories
  practices - Practices the healthiest repositories share and the weakest lack
  discover  - Find repositories under a directory

Repositories that cannot be analyzed are listed as failures and never stop the scan.`,
}

var portfolioHealthCmd = &cobra.Command{
	Use:   "health <repo-path>...",
	Short: "Rank repositories by health score.",
	Long: `Collect commit and merge metrics of every repository in parallel and rank them by health.

With --from-cache the metrics come from the store filled by earlier runs instead of git.

Examples:
  # Rank every repository under ~/src
  gitmetrics portfolio health ~/src/*

  # Re-rank from cached history on a shared PostgreSQL store
  GITMETRICS_STORE_DB_CONNECT="host=db user=metrics dbname=metrics" \
    gitmetrics portfolio health --store-backend postgresql --from-cache ~/src/*`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		report, duration, err := runPortfolio()
		if err != nil {
			return err
		}
		if err := writer.WritePortfolioHealth(report, cfg, duration); err != nil {
			return fmt.Errorf("error writing portfolio health: %w", err)
		}
		return nil
	},
}

var portfolioPatternsCmd = &cobra.Command{
	Use:   "patterns <repo-path>...",
	Short: "Show problems shared by several repositories.",
	Long: `Report conditions found in at least patterns.min-repos repositories (default 2):

  declining_velocity  trend is decreasing and fewer than one commit per day
  high_conflicts      more than 10% of merges had conflicts
  poor_compliance     fewer than half the commits follow Conventional Commits

Severity is high when at least half of the analyzed repositories share the condition.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		report, _, err := runPortfolio()
		if err != nil {
			return err
		}
		if err := writer.WritePatterns(report.Patterns, cfg); err != nil {
			return fmt.Errorf("error writing patterns: %w", err)
		}
		return nil
	},
}

var portfolioPracticesCmd = &cobra.Command{
	Use:   "practices <repo-path>...",
	Short: "Suggest practices to propagate from the healthiest repositories.",
	Long: `Take the three healthiest repositories and the practices all of them share
(high_compliance, high_velocity, low_conflicts). Every repository below a health of 60
that lacks one of those practices gets a suggestion, unless most low performers already follow it.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		report, _, err := runPortfolio()
		if err != nil {
			return err
		}
		if err := writer.WritePractices(report.Propagations, cfg); err != nil {
			return fmt.Errorf("error writing practices: %w", err)
		}
		return nil
	},
}

var portfolioDiscoverCmd = &cobra.Command{
	Use:   "discover [dir]",
	Short: "List the git repositories under a directory.",
	Long: `Walk a directory tree and print every git repository found, one per line, so the
result can be fed to the other portfolio commands. Hidden directories and nested
repositories are skipped.

Examples:
  gitmetrics portfolio discover ~/src --depth 2
  gitmetrics portfolio discover ~/src --output json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		repos, err := portfolio.DiscoverRepositories(cfg.RepoPaths[0], viper.GetInt("depth"))
		if err != nil {
			return fmt.Errorf("cannot discover repositories: %w", err)
		}
		if err := writer.WriteRepositories(repos, cfg); err != nil {
			return fmt.Errorf("error writing repositories: %w", err)
		}
		return nil
	},
}
