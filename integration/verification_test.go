//go:build integration

// Package integration contains integration tests for gitmetrics.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
package integration

import (
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"
	"testing"

	"github.com/crackerjack/gitmetrics/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCommitsVerification compares the commit metrics of the CLI against git itself.
func TestCommitsVerification(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	repoDir := newRepo(t,
		"feat(api): add endpoint",
		"fix!: drop legacy flag",
		"update readme",
		"docs: explain setup",
	)

	out, err := runCommand(t, repoDir, "commits", "--output", "json", "--store-backend", "none")
	require.NoError(t, err)

	var m schema.CommitMetrics
	require.NoError(t, json.Unmarshal([]byte(out), &m))

	gitOut, err := exec.Command("git", "-C", repoDir, "rev-list", "--count", "HEAD").Output()
	require.NoError(t, err)
	gitCount, err := strconv.Atoi(strings.TrimSpace(string(gitOut)))
	require.NoError(t, err)

	assert.Equal(t, gitCount, m.TotalCommits)
	assert.Equal(t, 3, m.ConventionalCommits)
	assert.Equal(t, 1, m.BreakingChanges)
	assert.Equal(t, map[string]int{"feat": 1, "fix": 1, "docs": 1}, m.TypeBreakdown)
}

// TestDashboardStoresIntoRepository checks that the default SQLite store lands in .git.
func TestDashboardStoresIntoRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	repoDir := newRepo(t, "feat: one", "feat: two")

	_, err := runCommand(t, repoDir, "dashboard", "--days", "7")
	require.NoError(t, err)

	out, err := runCommand(t, repoDir, "store", "status", ".", "--output", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite,git_commits,2")
	assert.Contains(t, out, "sqlite,git_metrics_snapshots,1")
}
