// Package core turns the git history of a repository into velocity, branch and merge metrics.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/gitrepo"
	"github.com/crackerjack/gitmetrics/internal/logging"
	"github.com/crackerjack/gitmetrics/schema"
)

// Collector gathers metrics for one repository and persists the raw records it reads.
// Its methods are synchronous; GetVelocityDashboard fans out internally.
type Collector struct {
	repoPath  string
	exec      contract.SubprocessExecutor
	store     contract.MetricsStore
	git       *gitrepo.Accessor
	now       func() time.Time
	timeout   time.Duration
	detection schema.ConflictDetection
	log       *logging.Logger

	closeOnce sync.Once
	closeErr  error
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTimeout sets the per-git-call timeout.
func WithTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) { c.timeout = d }
}

// WithConflictDetection selects the merge conflict detection strategy.
func WithConflictDetection(d schema.ConflictDetection) CollectorOption {
	return func(c *Collector) { c.detection = d }
}

// WithLogger overrides the component logger.
func WithLogger(l *logging.Logger) CollectorOption {
	return func(c *Collector) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCollector creates a Collector for repoPath, which must contain a .git entry.
// A nil executor selects a LocalExecutor restricted to git; a nil store disables persistence.
func NewCollector(repoPath string, exec contract.SubprocessExecutor, store contract.MetricsStore, opts ...CollectorOption) (*Collector, error) {
	if err := contract.RequireGitRepository(repoPath); err != nil {
		return nil, err
	}
	if exec == nil {
		exec = contract.NewLocalExecutor()
	}

	c := &Collector{
		repoPath:  repoPath,
		exec:      exec,
		store:     store,
		now:       time.Now,
		timeout:   contract.DefaultGitTimeout,
		detection: schema.TreeDetection,
		log:       logging.Component("collector"),
	}
	for _, opt := range opts {
		opt(c)
	}

	gitOpts := []gitrepo.Option{gitrepo.WithConflictDetection(c.detection)}
	if c.log.Component() != "collector" {
		// A caller-supplied logger is shared with the accessor
		gitOpts = append(gitOpts, gitrepo.WithLogger(c.log))
	}
	c.git = gitrepo.New(repoPath, exec, c.timeout, gitOpts...)
	c.log = c.log.WithRepo(repoPath)
	return c, nil
}

// RepoPath returns the repository this collector reads.
func (c *Collector) RepoPath() string {
	return c.repoPath
}

// CollectCommitMetrics computes commit metrics for [since, until].
// A zero until means now; a zero since means 30 days before until.
func (c *Collector) CollectCommitMetrics(ctx context.Context, since, until time.Time) (schema.CommitMetrics, error) {
	since, until = c.window(since, until, contract.DefaultCommitWindowDays)
	commits, err := c.collectCommits(ctx, since, until)
	if err != nil {
		return schema.CommitMetrics{}, err
	}
	return ComputeCommitMetrics(commits, since, until), nil
}

// CollectBranchActivity computes branch switching metrics since the given time
// (default 7 days ago) and stores the reflog events it read.
func (c *Collector) CollectBranchActivity(ctx context.Context, since time.Time) (schema.BranchMetrics, error) {
	since, until := c.window(since, time.Time{}, contract.DefaultBranchWindowDays)
	return c.collectBranches(ctx, since, until)
}

// CollectMergePatterns computes merge and conflict metrics for [since, until] (default 30 days).
func (c *Collector) CollectMergePatterns(ctx context.Context, since, until time.Time) (schema.MergeMetrics, error) {
	since, until = c.window(since, until, contract.DefaultCommitWindowDays)
	merges, err := c.git.GetMergeHistory(ctx, since, until)
	if err != nil {
		return schema.MergeMetrics{}, fmt.Errorf("failed to read merge history: %w", err)
	}
	if c.store != nil {
		if _, err := c.store.StoreMergeEvents(ctx, c.repoPath, merges); err != nil {
			c.log.WarnErr(err).Msg("failed to store merge events")
		}
	}
	return ComputeMergeMetrics(merges, since, until), nil
}

// GetVelocityDashboard collects commit, branch and merge metrics over the last daysBack days
// in parallel, adds a zero-filled daily commit trend and stores the result as a snapshot.
func (c *Collector) GetVelocityDashboard(ctx context.Context, daysBack int) (schema.VelocityDashboard, error) {
	if daysBack <= 0 {
		daysBack = contract.DefaultCommitWindowDays
	}
	until := c.now()
	since := until.AddDate(0, 0, -daysBack)

	var (
		wg                          sync.WaitGroup
		commits                     []schema.CommitData
		branches                    schema.BranchMetrics
		merges                      schema.MergeMetrics
		commitErr, branchErr, mrErr error
	)
	wg.Go(func() {
		commits, commitErr = c.collectCommits(ctx, since, until)
	})
	wg.Go(func() {
		branches, branchErr = c.collectBranches(ctx, since, until)
	})
	wg.Go(func() {
		merges, mrErr = c.CollectMergePatterns(ctx, since, until)
	})
	wg.Wait()

	if err := errors.Join(commitErr, branchErr, mrErr); err != nil {
		return schema.VelocityDashboard{}, err
	}

	dashboard := schema.VelocityDashboard{
		RepoPath:      c.repoPath,
		GeneratedAt:   until,
		PeriodStart:   since,
		PeriodEnd:     until,
		CommitMetrics: ComputeCommitMetrics(commits, since, until),
		BranchMetrics: branches,
		MergeMetrics:  merges,
		Trend:         DailyTrend(commits, since, until, until.Location()),
	}
	if c.store != nil {
		if err := c.store.StoreSnapshot(ctx, dashboard); err != nil {
			c.log.WarnErr(err).Msg("failed to store dashboard snapshot")
		}
	}
	return dashboard, nil
}

// Close releases the store. It is safe to call more than once.
func (c *Collector) Close() error {
	c.closeOnce.Do(func() {
		if c.store != nil {
			c.closeErr = c.store.Close()
		}
	})
	return c.closeErr
}

func (c *Collector) collectCommits(ctx context.Context, since, until time.Time) ([]schema.CommitData, error) {
	commits, err := c.git.GetCommits(ctx, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to read commit history: %w", err)
	}
	if c.store != nil {
		n, err := c.store.StoreCommits(ctx, c.repoPath, commits)
		if err != nil {
			c.log.WarnErr(err).Msg("failed to store commits")
		} else {
			c.log.DebugCtx("stored commits", map[string]any{"read": len(commits), "new": n})
		}
	}
	return commits, nil
}

func (c *Collector) collectBranches(ctx context.Context, since, until time.Time) (schema.BranchMetrics, error) {
	events, err := c.git.GetReflogEvents(ctx, since)
	if err != nil {
		return schema.BranchMetrics{}, fmt.Errorf("failed to read reflog: %w", err)
	}
	branches, err := c.git.GetBranches(ctx)
	if err != nil {
		return schema.BranchMetrics{}, fmt.Errorf("failed to list branches: %w", err)
	}
	if c.store != nil {
		if _, err := c.store.StoreBranchEvents(ctx, c.repoPath, events); err != nil {
			c.log.WarnErr(err).Msg("failed to store branch events")
		}
	}
	return ComputeBranchMetrics(events, branches, since, until), nil
}

// window fills zero bounds: until defaults to now and since to defaultDays before until.
func (c *Collector) window(since, until time.Time, defaultDays int) (time.Time, time.Time) {
	if until.IsZero() {
		until = c.now()
	}
	if since.IsZero() {
		since = until.AddDate(0, 0, -defaultDays)
	}
	return since, until
}
