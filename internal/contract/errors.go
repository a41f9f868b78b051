package contract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotGitRepository is returned when a path has no .git entry.
	ErrNotGitRepository = errors.New("not a git repository")

	// ErrGitTimeout is returned when a subprocess is killed after its timeout.
	ErrGitTimeout = errors.New("git command timed out")

	// ErrCommandNotAllowed is returned when a binary is outside the executor allow-list.
	ErrCommandNotAllowed = errors.New("command not allowed")

	// ErrCommandFailed is the sentinel wrapped by every *GitCommandError.
	ErrCommandFailed = errors.New("git command failed")
)

// GitCommandError reports a subprocess that exited with a non-zero status.
type GitCommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *GitCommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%q exited with status %d", strings.Join(e.Args, " "), e.ExitCode)
	}
	return fmt.Sprintf("%q exited with status %d: %s", strings.Join(e.Args, " "), e.ExitCode, stderr)
}

// Unwrap lets callers match any command failure with errors.Is(err, ErrCommandFailed).
func (e *GitCommandError) Unwrap() error {
	return ErrCommandFailed
}
