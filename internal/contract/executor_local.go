package contract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultGitTimeout is applied by callers that do not pick their own timeout.
const DefaultGitTimeout = 30 * time.Second

// LocalExecutor implements the SubprocessExecutor interface by spawning binaries
// installed on the machine. Only binaries in its allow-list may be run.
type LocalExecutor struct {
	allowed map[string]struct{}
}

var _ SubprocessExecutor = &LocalExecutor{} // Compile-time check

// NewLocalExecutor creates an executor that may run the given binaries.
// With no arguments only git is allowed.
func NewLocalExecutor(allowed ...string) *LocalExecutor {
	if len(allowed) == 0 {
		allowed = []string{"git"}
	}
	e := &LocalExecutor{allowed: make(map[string]struct{}, len(allowed))}
	for _, name := range allowed {
		e.allowed[name] = struct{}{}
	}
	return e
}

// Allows reports whether the binary may be executed.
func (e *LocalExecutor) Allows(binary string) bool {
	_, ok := e.allowed[binary]
	return ok
}

// ExecuteSecure implements the SubprocessExecutor interface.
func (e *LocalExecutor) ExecuteSecure(ctx context.Context, command []string, opts ExecOptions) (*CompletedProcess, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrCommandNotAllowed)
	}
	if !e.Allows(command[0]) {
		return nil, fmt.Errorf("%w: %q. Only bare names from the allow-list are accepted", ErrCommandNotAllowed, command[0])
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, command[0], command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	proc := &CompletedProcess{
		Args:   command,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if ctxErr := runCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s: %s", ErrGitTimeout, opts.Timeout, strings.Join(command, " "))
		}
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %w", ErrGitTimeout, strings.Join(command, " "), ctxErr)
		}
		return nil, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		proc.ExitCode = exitErr.ExitCode()
		if opts.Check {
			return proc, &GitCommandError{Args: command, ExitCode: proc.ExitCode, Stderr: proc.Stderr}
		}
		return proc, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w. Ensure it is installed and available on your PATH", command[0], err)
	}
	return proc, nil
}
