// Package gitrepo turns time-windowed queries into git invocations and parses
// their line-oriented output into commit, branch and merge records.
package gitrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/logging"
	"github.com/crackerjack/gitmetrics/schema"
)

// Git output formats. Fields are separated by '|', so a subject containing a
// literal '|' produces a malformed line that is logged and skipped.
const (
	commitFormat = "--format=%H|%ai|%an|%ae|%s"
	reflogFormat = "--format=%H|%gd|%gs"
	mergeFormat  = "--format=%H|%ai|%P|%T|%s"
	branchFormat = "--format=%(refname:short)|%(objectname)"

	// isoLayout matches git's %ai and --date=iso output.
	isoLayout = "2006-01-02 15:04:05 -0700"
)

// Accessor runs git against a single repository through an injected executor.
// It is safe for concurrent use when its executor is.
type Accessor struct {
	repoPath  string
	exec      contract.SubprocessExecutor
	timeout   time.Duration
	detection schema.ConflictDetection
	log       *logging.Logger
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithConflictDetection selects how merge conflicts are detected (default tree).
func WithConflictDetection(d schema.ConflictDetection) Option {
	return func(a *Accessor) {
		if d != "" {
			a.detection = d
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Accessor) {
		if l != nil {
			a.log = l
		}
	}
}

// New creates an Accessor. A non-positive timeout selects contract.DefaultGitTimeout.
func New(repoPath string, exec contract.SubprocessExecutor, timeout time.Duration, opts ...Option) *Accessor {
	if timeout <= 0 {
		timeout = contract.DefaultGitTimeout
	}
	a := &Accessor{
		repoPath:  repoPath,
		exec:      exec,
		timeout:   timeout,
		detection: schema.TreeDetection,
		log:       logging.Component("gitrepo"),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithRepo(repoPath)
	return a
}

// RepoPath returns the repository this accessor reads.
func (a *Accessor) RepoPath() string {
	return a.repoPath
}

// ConflictDetection returns the configured detection strategy.
func (a *Accessor) ConflictDetection() schema.ConflictDetection {
	return a.detection
}

// run executes git with the accessor's directory and timeout.
func (a *Accessor) run(ctx context.Context, check bool, args ...string) (*contract.CompletedProcess, error) {
	command := append([]string{"git"}, args...)
	proc, err := a.exec.ExecuteSecure(ctx, command, contract.ExecOptions{
		Dir:     a.repoPath,
		Timeout: a.timeout,
		Check:   check,
	})
	if err != nil {
		return nil, fmt.Errorf("git %s in %s: %w", args[0], a.repoPath, err)
	}
	return proc, nil
}

// windowArgs appends --since/--until for non-zero bounds.
func windowArgs(args []string, since, until time.Time) []string {
	if !since.IsZero() {
		args = append(args, "--since="+since.Format(time.RFC3339))
	}
	if !until.IsZero() {
		args = append(args, "--until="+until.Format(time.RFC3339))
	}
	return args
}

// splitLines returns the non-empty lines of git output.
func splitLines(out string) []string {
	var lines []string
	for line := range strings.SplitSeq(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
