package contract

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockExecutor is a testify mock for the SubprocessExecutor type.
type MockExecutor struct {
	mock.Mock
}

var _ SubprocessExecutor = &MockExecutor{} // Compile-time check

// ExecuteSecure implements the SubprocessExecutor interface.
func (m *MockExecutor) ExecuteSecure(ctx context.Context, command []string, opts ExecOptions) (*CompletedProcess, error) {
	ret := m.Called(ctx, command, opts)
	proc, _ := ret.Get(0).(*CompletedProcess)
	return proc, ret.Error(1)
}

// ScriptedResponse is the canned outcome of a scripted command.
type ScriptedResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error // Returned as-is, before exit code handling
}

// ScriptedExecutor is a fake SubprocessExecutor that answers commands from a script.
// A command is answered by the longest registered prefix of its space-joined form.
// Unscripted commands behave like an unknown git subcommand (exit status 128).
type ScriptedExecutor struct {
	mu       sync.Mutex
	script   map[string]ScriptedResponse
	prefixes []string
	calls    [][]string
}

var _ SubprocessExecutor = &ScriptedExecutor{} // Compile-time check

// NewScriptedExecutor creates an empty scripted executor.
func NewScriptedExecutor() *ScriptedExecutor {
	return &ScriptedExecutor{script: make(map[string]ScriptedResponse)}
}

// On registers a response for every command starting with the given words.
func (s *ScriptedExecutor) On(resp ScriptedResponse, prefix ...string) *ScriptedExecutor {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.Join(prefix, " ")
	if _, ok := s.script[key]; !ok {
		s.prefixes = append(s.prefixes, key)
		sort.Slice(s.prefixes, func(i, j int) bool { return len(s.prefixes[i]) > len(s.prefixes[j]) })
	}
	s.script[key] = resp
	return s
}

// Calls returns a copy of every command executed so far.
func (s *ScriptedExecutor) Calls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsWithPrefix counts executed commands starting with the given words.
func (s *ScriptedExecutor) CallsWithPrefix(prefix ...string) int {
	want := strings.Join(prefix, " ")
	n := 0
	for _, c := range s.Calls() {
		if hasWordPrefix(strings.Join(c, " "), want) {
			n++
		}
	}
	return n
}

// ExecuteSecure implements the SubprocessExecutor interface.
func (s *ScriptedExecutor) ExecuteSecure(ctx context.Context, command []string, opts ExecOptions) (*CompletedProcess, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calls = append(s.calls, append([]string(nil), command...))
	joined := strings.Join(command, " ")
	resp := ScriptedResponse{ExitCode: 128, Stderr: "unscripted command: " + joined}
	for _, p := range s.prefixes {
		if hasWordPrefix(joined, p) {
			resp = s.script[p]
			break
		}
	}
	s.mu.Unlock()

	if resp.Err != nil {
		return nil, resp.Err
	}
	proc := &CompletedProcess{Args: command, ExitCode: resp.ExitCode, Stdout: resp.Stdout, Stderr: resp.Stderr}
	if resp.ExitCode != 0 && opts.Check {
		return proc, &GitCommandError{Args: command, ExitCode: resp.ExitCode, Stderr: resp.Stderr}
	}
	return proc, nil
}

func hasWordPrefix(s, prefix string) bool {
	return s == prefix || strings.HasPrefix(s, prefix+" ")
}
