package iocache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/parquet"
)

// ExportResult describes the Parquet files written by ExportMetrics.
type ExportResult struct {
	Repositories int
	Commits      int
	Merges       int
	CommitsFile  string
	MergesFile   string
}

// ExportMetrics writes the cached commits and merges of every repository in
// the store to <outputPrefix>.commits.parquet and <outputPrefix>.merges.parquet.
// A zero since or until leaves that side of the window open.
func ExportMetrics(ctx context.Context, store contract.MetricsStore, outputPrefix string, since, until time.Time) (ExportResult, error) {
	if outputPrefix == "" {
		return ExportResult{}, errors.New("--output-file is required for export command")
	}

	repos, err := store.ListRepositories(ctx)
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to list cached repositories: %w", err)
	}
	if len(repos) == 0 {
		return ExportResult{}, errors.New("no cached metrics found to export. Run a dashboard or portfolio command with a store backend first")
	}

	var commitRows []parquet.CommitRow
	var mergeRows []parquet.MergeRow
	for _, repo := range repos {
		commits, err := store.QueryCommits(ctx, repo, since, until)
		if err != nil {
			return ExportResult{}, fmt.Errorf("failed to read commits of %s: %w", repo, err)
		}
		commitRows = append(commitRows, parquet.ConvertCommits(repo, commits)...)

		merges, err := store.QueryMergeEvents(ctx, repo, since, until)
		if err != nil {
			return ExportResult{}, fmt.Errorf("failed to read merges of %s: %w", repo, err)
		}
		mergeRows = append(mergeRows, parquet.ConvertMerges(repo, merges)...)
	}

	result := ExportResult{
		Repositories: len(repos),
		Commits:      len(commitRows),
		Merges:       len(mergeRows),
		CommitsFile:  outputPrefix + ".commits.parquet",
		MergesFile:   outputPrefix + ".merges.parquet",
	}
	if err := parquet.WriteCommitsParquet(commitRows, result.CommitsFile); err != nil {
		return ExportResult{}, fmt.Errorf("failed to write commits: %w", err)
	}
	if err := parquet.WriteMergesParquet(mergeRows, result.MergesFile); err != nil {
		return ExportResult{}, fmt.Errorf("failed to write merges: %w", err)
	}
	storeLogger().Infof("exported %d commits and %d merges from %d repositories",
		result.Commits, result.Merges, result.Repositories)
	return result, nil
}
