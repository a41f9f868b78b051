// Package portfolio aggregates velocity across repositories into health scores,
// cross-project patterns and best-practice suggestions.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/crackerjack/gitmetrics/core"
	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/logging"
	"github.com/crackerjack/gitmetrics/schema"
)

// VelocitySource is the part of core.Collector the aggregator needs.
type VelocitySource interface {
	CollectCommitMetrics(ctx context.Context, since, until time.Time) (schema.CommitMetrics, error)
	CollectMergePatterns(ctx context.Context, since, until time.Time) (schema.MergeMetrics, error)
	Close() error
}

var _ VelocitySource = &core.Collector{} // Compile-time check

// CollectorFactory opens a VelocitySource for one repository.
type CollectorFactory func(repoPath string) (VelocitySource, error)

// ProgressReporter receives one Increment per finished repository.
type ProgressReporter interface {
	SetTotal(total int)
	Increment()
}

// Aggregator analyzes a set of repositories.
type Aggregator struct {
	factory         CollectorFactory
	weights         schema.HealthWeights
	thresholds      schema.TrendThresholds
	minPatternRepos int
	workers         int
	store           contract.MetricsStore
	fromCache       bool
	progress        ProgressReporter
	now             func() time.Time
	log             *logging.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithWeights sets the health score weights.
func WithWeights(w schema.HealthWeights) Option {
	return func(a *Aggregator) { a.weights = w }
}

// WithThresholds sets the trend classification thresholds.
func WithThresholds(t schema.TrendThresholds) Option {
	return func(a *Aggregator) { a.thresholds = t }
}

// WithMinPatternRepos sets how many repositories must share a condition before it is reported.
func WithMinPatternRepos(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.minPatternRepos = n
		}
	}
}

// WithWorkers bounds the number of repositories analyzed concurrently.
func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithStore persists health rows and serves cached history in from-cache mode.
func WithStore(s contract.MetricsStore) Option {
	return func(a *Aggregator) { a.store = s }
}

// WithFromCache computes velocity from stored history instead of running git.
func WithFromCache(on bool) Option {
	return func(a *Aggregator) { a.fromCache = on }
}

// WithProgress reports per-repository progress.
func WithProgress(p ProgressReporter) Option {
	return func(a *Aggregator) { a.progress = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAggregator creates an Aggregator. The factory may be nil only in from-cache mode.
func NewAggregator(factory CollectorFactory, opts ...Option) (*Aggregator, error) {
	a := &Aggregator{
		factory:         factory,
		weights:         schema.DefaultHealthWeights(),
		thresholds:      schema.DefaultTrendThresholds(),
		minPatternRepos: contract.DefaultMinPatternRepos,
		workers:         contract.DefaultWorkers,
		now:             time.Now,
		log:             logging.Component("portfolio"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.workers < 1 {
		a.workers = 1
	}
	if a.fromCache && a.store == nil {
		return nil, errors.New("from-cache mode requires a metrics store. Set --store-backend to sqlite, mysql or postgresql")
	}
	if !a.fromCache && a.factory == nil {
		return nil, errors.New("a collector factory is required unless reading from cache")
	}
	return a, nil
}

// CollectVelocities computes a RepositoryVelocity for every repository over the last daysBack days.
// Repositories are processed by a bounded worker pool; failures are returned alongside the
// successes, in input order, and never stop the scan.
func (a *Aggregator) CollectVelocities(ctx context.Context, repos []string, daysBack int) ([]schema.RepositoryVelocity, []schema.RepositoryFailure) {
	if daysBack <= 0 {
		daysBack = contract.DefaultCommitWindowDays
	}
	until := a.now()
	since := until.AddDate(0, 0, -daysBack)

	type result struct {
		velocity schema.RepositoryVelocity
		err      error
	}
	results := make([]result, len(repos))
	if a.progress != nil {
		a.progress.SetTotal(len(repos))
	}

	idxCh := make(chan int, len(repos))
	var wg sync.WaitGroup
	for range min(a.workers, max(len(repos), 1)) {
		wg.Go(func() {
			for i := range idxCh {
				v, err := a.collectOne(ctx, repos[i], since, until)
				results[i] = result{velocity: v, err: err}
				if a.progress != nil {
					a.progress.Increment()
				}
			}
		})
	}
	for i := range repos {
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()

	var velocities []schema.RepositoryVelocity
	var failures []schema.RepositoryFailure
	for i, r := range results {
		if r.err != nil {
			a.log.WithRepo(repos[i]).WarnErr(r.err).Msg("repository analysis failed")
			failures = append(failures, schema.RepositoryFailure{RepoPath: repos[i], Error: r.err.Error()})
			continue
		}
		velocities = append(velocities, r.velocity)
	}
	return velocities, failures
}

func (a *Aggregator) collectOne(ctx context.Context, repo string, since, until time.Time) (schema.RepositoryVelocity, error) {
	if err := ctx.Err(); err != nil {
		return schema.RepositoryVelocity{}, err
	}
	if a.fromCache {
		return a.collectFromCache(ctx, repo, since, until)
	}

	src, err := a.factory(repo)
	if err != nil {
		return schema.RepositoryVelocity{}, err
	}
	defer func() { _ = src.Close() }()

	commits, err := src.CollectCommitMetrics(ctx, since, until)
	if err != nil {
		return schema.RepositoryVelocity{}, err
	}
	merges, err := src.CollectMergePatterns(ctx, since, until)
	if err != nil {
		return schema.RepositoryVelocity{}, err
	}
	return BuildVelocity(repo, commits, merges, a.thresholds), nil
}

func (a *Aggregator) collectFromCache(ctx context.Context, repo string, since, until time.Time) (schema.RepositoryVelocity, error) {
	latest, err := a.store.LatestCommitTime(ctx, repo)
	if err != nil {
		return schema.RepositoryVelocity{}, err
	}
	if latest.IsZero() {
		return schema.RepositoryVelocity{}, fmt.Errorf("no cached history for %s. Run without --from-cache first", repo)
	}

	commits, err := a.store.QueryCommits(ctx, repo, since, until)
	if err != nil {
		return schema.RepositoryVelocity{}, err
	}
	merges, err := a.store.QueryMergeEvents(ctx, repo, since, until)
	if err != nil {
		return schema.RepositoryVelocity{}, err
	}
	return BuildVelocity(repo,
		core.ComputeCommitMetrics(commits, since, until),
		core.ComputeMergeMetrics(merges, since, until),
		a.thresholds,
	), nil
}

// BuildVelocity condenses commit and merge metrics into a RepositoryVelocity.
func BuildVelocity(repo string, c schema.CommitMetrics, m schema.MergeMetrics, t schema.TrendThresholds) schema.RepositoryVelocity {
	return schema.RepositoryVelocity{
		RepoPath:                   repo,
		RepoName:                   schema.RepoName(repo),
		TotalCommits:               c.TotalCommits,
		AvgCommitsPerDay:           c.AvgCommitsPerDay,
		ConventionalComplianceRate: c.ConventionalComplianceRate,
		BreakingChanges:            c.BreakingChanges,
		TotalMerges:                m.TotalMerges,
		ConflictRate:               m.ConflictRate,
		TrendDirection:             ClassifyTrend(c.AvgCommitsPerDay, t),
		PeriodStart:                c.PeriodStart,
		PeriodEnd:                  c.PeriodEnd,
	}
}

// Healths scores each velocity and returns them healthiest first.
func (a *Aggregator) Healths(velocities []schema.RepositoryVelocity) []schema.RepositoryHealth {
	healths := make([]schema.RepositoryHealth, 0, len(velocities))
	for _, v := range velocities {
		healths = append(healths, AssessHealth(v, a.weights))
	}
	return sortByHealth(healths)
}

// CrossProjectPatterns reports conditions shared by at least the configured number of repositories.
func (a *Aggregator) CrossProjectPatterns(velocities []schema.RepositoryVelocity) []schema.CrossProjectPattern {
	return DetectPatterns(velocities, a.minPatternRepos)
}

// Analyze runs the full portfolio pipeline and, when a store is configured,
// records today's health for every analyzed repository.
func (a *Aggregator) Analyze(ctx context.Context, repos []string, daysBack int) (schema.PortfolioReport, error) {
	if daysBack <= 0 {
		daysBack = contract.DefaultCommitWindowDays
	}
	velocities, failures := a.CollectVelocities(ctx, repos, daysBack)
	if err := ctx.Err(); err != nil {
		return schema.PortfolioReport{}, err
	}

	healths := a.Healths(velocities)
	report := schema.PortfolioReport{
		GeneratedAt:  a.now(),
		DaysBack:     daysBack,
		Repositories: healths,
		Patterns:     a.CrossProjectPatterns(velocities),
		Propagations: BestPractices(healths),
		Failures:     failures,
	}
	if len(healths) > 0 {
		var sum float64
		for _, h := range healths {
			sum += h.HealthScore
		}
		report.AvgHealthScore = sum / float64(len(healths))
	}
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].RepoPath < report.Failures[j].RepoPath })

	if a.store != nil && !a.fromCache {
		for _, h := range healths {
			if err := a.store.StoreRepositoryHealth(ctx, h, report.GeneratedAt); err != nil {
				a.log.WithRepo(h.RepoPath).WarnErr(err).Msg("failed to store repository health")
			}
		}
	}
	return report, nil
}
