// Package contract provides interfaces and shared utilities for the gitmetrics internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/crackerjack/gitmetrics/schema"
)

// ExecOptions controls a single subprocess invocation.
type ExecOptions struct {
	Dir     string        // Working directory of the process
	Timeout time.Duration // Hard kill after this long (0 = only the context deadline applies)
	Check   bool          // If true, a non-zero exit is returned as a *GitCommandError
}

// CompletedProcess is the captured result of a finished subprocess.
type CompletedProcess struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// SubprocessExecutor spawns external processes on behalf of the metrics code.
// Nothing in gitmetrics shells out directly, so a host application can enforce
// its own sandboxing or allow-listing here.
type SubprocessExecutor interface {
	ExecuteSecure(ctx context.Context, command []string, opts ExecOptions) (*CompletedProcess, error)
}

// MetricsStore defines the interface for the durable metrics cache.
// Event writes are insert-or-ignore and return the number of newly inserted rows.
type MetricsStore interface {
	// StoreCommits persists commits keyed by repository and hash.
	StoreCommits(ctx context.Context, repoPath string, commits []schema.CommitData) (int, error)

	// StoreBranchEvents persists reflog-derived branch events.
	StoreBranchEvents(ctx context.Context, repoPath string, events []schema.BranchEvent) (int, error)

	// StoreMergeEvents persists merge events keyed by repository and merge hash.
	StoreMergeEvents(ctx context.Context, repoPath string, merges []schema.MergeEvent) (int, error)

	// StoreSnapshot records a dashboard for its repository, day and period.
	StoreSnapshot(ctx context.Context, dashboard schema.VelocityDashboard) error

	// StoreRepositoryHealth upserts the health of a repository for the day of recordedAt.
	StoreRepositoryHealth(ctx context.Context, health schema.RepositoryHealth, recordedAt time.Time) error

	// QueryCommits returns cached commits authored within [since, until], oldest first.
	QueryCommits(ctx context.Context, repoPath string, since, until time.Time) ([]schema.CommitData, error)

	// QueryMergeEvents returns cached merge events within [since, until], oldest first.
	QueryMergeEvents(ctx context.Context, repoPath string, since, until time.Time) ([]schema.MergeEvent, error)

	// LatestCommitTime returns the newest cached author timestamp (zero when none).
	LatestCommitTime(ctx context.Context, repoPath string) (time.Time, error)

	// ListRepositories returns every repository with cached commits or merges, sorted.
	ListRepositories(ctx context.Context) ([]string, error)

	// GetStatus returns status information about the store.
	GetStatus(ctx context.Context) (schema.StoreStatus, error)

	// Close closes the underlying connection.
	Close() error
}
