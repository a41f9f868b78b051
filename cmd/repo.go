package cmd

import (
	"fmt"
	"time"

	"github.com/crackerjack/gitmetrics/core"
	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/spf13/cobra"
)

// newCollector opens the collector for the single repository of a command.
// The collector owns (and closes) the store.
func newCollector() (*core.Collector, error) {
	repoPath := cfg.RepoPaths[0]
	store, err := openStore(repoPath)
	if err != nil {
		return nil, err
	}
	c, err := core.NewCollector(repoPath, nil, store,
		core.WithTimeout(cfg.Timeout),
		core.WithConflictDetection(cfg.ConflictDetection),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return c, nil
}

// dashboardCmd shows every metric of one repository.
var dashboardCmd = &cobra.Command{
	Use:   "dashboard [repo-path]",
	Short: "Show the velocity dashboard of a repository.",
	Long: `Collect commit, branch and merge metrics in parallel and add a daily commit trend.

The dashboard combines:
- Commit velocity and Conventional Commits compliance
- Branch switching activity from the reflog
- Merge frequency and conflict rate
- One trend bar per day of the window

Every run stores the raw commits, reflog events, merges and a dashboard snapshot
in the metrics store. With the default SQLite backend that is <repo>/.git/git_metrics.db,
which portfolio runs do not read. To feed 'portfolio --from-cache', point every command
at one shared store with --store-backend and --store-db-connect.

Examples:
  # Last 30 days of the current repository
  gitmetrics dashboard

  # Last two weeks of another repository as JSON
  gitmetrics dashboard ~/src/api --days 14 --output json

  # Cache into a shared PostgreSQL store for later portfolio runs
  gitmetrics dashboard ~/src/api --store-backend postgresql --store-db-connect "host=db user=metrics dbname=metrics"`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		start := time.Now()
		c, err := newCollector()
		if err != nil {
			return fmt.Errorf("cannot open repository: %w", err)
		}
		defer func() { _ = c.Close() }()

		d, err := c.GetVelocityDashboard(rootCtx, cfg.DaysBack)
		if err != nil {
			return fmt.Errorf("cannot build velocity dashboard: %w", err)
		}
		if err := writer.WriteDashboard(d, cfg, time.Since(start)); err != nil {
			return fmt.Errorf("error writing dashboard: %w", err)
		}
		return nil
	},
}

// commitsCmd reports commit metrics.
var commitsCmd = &cobra.Command{
	Use:   "commits [repo-path]",
	Short: "Show commit velocity and Conventional Commits compliance.",
	Long: `Report commit counts, averages per hour/day/week, the most active hour and weekday,
the Conventional Commits compliance rate, breaking changes and the commit type breakdown.

The window defaults to the last 30 days and can be set with --since/--until
(ISO8601 or phrases such as "2 weeks ago") or --days.

Examples:
  # Compliance over the last quarter
  gitmetrics commits --days 90

  # A fixed release window as CSV
  gitmetrics commits --since 2024-01-01 --until 2024-03-31 --output csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		c, err := newCollector()
		if err != nil {
			return fmt.Errorf("cannot open repository: %w", err)
		}
		defer func() { _ = c.Close() }()

		since, until := cfg.Window(time.Now())
		m, err := c.CollectCommitMetrics(rootCtx, since, until)
		if err != nil {
			return fmt.Errorf("cannot collect commit metrics: %w", err)
		}
		if err := writer.WriteCommitMetrics(c.RepoPath(), m, cfg); err != nil {
			return fmt.Errorf("error writing commit metrics: %w", err)
		}
		return nil
	},
}

// branchesCmd reports reflog branch activity.
var branchesCmd = &cobra.Command{
	Use:   "branches [repo-path]",
	Short: "Show branch switching activity from the reflog.",
	Long: `Count checkouts recorded in the HEAD reflog, the branches they touched and the
branch switched to most often. Defaults to the last 7 days unless --since or --days is given.

Examples:
  gitmetrics branches
  gitmetrics branches --since "3 days ago"`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newCollector()
		if err != nil {
			return fmt.Errorf("cannot open repository: %w", err)
		}
		defer func() { _ = c.Close() }()

		since := cfg.StartTime
		if since.IsZero() && cmd.Flags().Changed("days") {
			since = contract.WindowStart(time.Now(), cfg.DaysBack, contract.DefaultBranchWindowDays)
		}
		m, err := c.CollectBranchActivity(rootCtx, since)
		if err != nil {
			return fmt.Errorf("cannot collect branch activity: %w", err)
		}
		if err := writer.WriteBranchMetrics(c.RepoPath(), m, cfg); err != nil {
			return fmt.Errorf("error writing branch activity: %w", err)
		}
		return nil
	},
}

// mergesCmd reports merge and conflict patterns.
var mergesCmd = &cobra.Command{
	Use:   "merges [repo-path]",
	Short: "Show merge frequency, conflict rate and the most conflicted files.",
	Long: `Read merge commits and re-merge their parents to find which ones had conflicts.

Conflict detection strategies (--conflict-detection):
  tree     re-merge the parents with 'git merge-tree' and compare the result (default)
  parents  flag every merge with two or more parents (cheap, noisy)

Examples:
  gitmetrics merges --days 60
  gitmetrics merges --output json --output-file merges.json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		c, err := newCollector()
		if err != nil {
			return fmt.Errorf("cannot open repository: %w", err)
		}
		defer func() { _ = c.Close() }()

		since, until := cfg.Window(time.Now())
		m, err := c.CollectMergePatterns(rootCtx, since, until)
		if err != nil {
			return fmt.Errorf("cannot collect merge patterns: %w", err)
		}
		if err := writer.WriteMergeMetrics(c.RepoPath(), m, cfg); err != nil {
			return fmt.Errorf("error writing merge patterns: %w", err)
		}
		return nil
	},
}
