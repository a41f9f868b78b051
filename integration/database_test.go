//go:build database

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crackerjack/gitmetrics/internal/iocache"
	"github.com/crackerjack/gitmetrics/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startMySQL starts a MySQL container and returns its connection string.
func startMySQL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "gitmetrics",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mysqlC.Terminate(ctx) })

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	return fmt.Sprintf("root:secret123@tcp(%s:%s)/gitmetrics", host, port.Port())
}

// startPostgres starts a PostgreSQL container and returns its connection string.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		// The server logs readiness twice: once for the init run, once for real
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
}

// runCLIAgainst drives the CLI through a full cycle on the given backend.
func runCLIAgainst(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	t.Setenv("GITMETRICS_STORE_BACKEND", string(backend))
	t.Setenv("GITMETRICS_STORE_DB_CONNECT", connStr)

	repoDir := newRepo(t, "feat(api): add endpoint", "fix: handle nil", "chore: bump deps")

	out, err := runCommand(t, repoDir, "store", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, string(backend))

	_, err = runCommand(t, repoDir, "dashboard", "--days", "7")
	require.NoError(t, err)

	// A second run must not duplicate cached rows
	_, err = runCommand(t, repoDir, "dashboard", "--days", "7")
	require.NoError(t, err)

	out, err = runCommand(t, repoDir, "store", "status", "--output", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("%s,git_commits,3", backend))
	assert.Contains(t, out, fmt.Sprintf("%s,git_metrics_snapshots,", backend))

	_, err = runCommand(t, repoDir, "portfolio", "health", ".", "--output", "json")
	require.NoError(t, err)

	prefix := filepath.Join(t.TempDir(), "metrics")
	_, err = runCommand(t, repoDir, "store", "export", "--output-file", prefix)
	require.NoError(t, err)
	_, err = os.Stat(prefix + ".commits.parquet")
	assert.NoError(t, err)
	_, err = os.Stat(prefix + ".merges.parquet")
	assert.NoError(t, err)
}

// exerciseStore checks idempotent writes and windowed reads on a live backend.
func exerciseStore(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	ctx := context.Background()
	store, err := iocache.NewMetricsStore(backend, connStr)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	commits := []schema.CommitData{
		{Hash: "aaa111", AuthorTimestamp: base, AuthorName: "Ada", AuthorEmail: "ada@example.com",
			Message: "feat(api): add endpoint", IsConventional: true, ConventionalType: "feat", ConventionalScope: "api"},
		{Hash: "bbb222", AuthorTimestamp: base.Add(48 * time.Hour), AuthorName: "Lin", AuthorEmail: "lin@example.com",
			Message: "fix!: drop legacy flag", IsConventional: true, ConventionalType: "fix", HasBreakingChange: true},
	}

	n, err := store.StoreCommits(ctx, "/direct/repo", commits)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = store.StoreCommits(ctx, "/direct/repo", commits)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := store.QueryCommits(ctx, "/direct/repo", base.Add(time.Hour), time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bbb222", got[0].Hash)
	assert.True(t, got[0].AuthorTimestamp.Equal(commits[1].AuthorTimestamp))
	assert.True(t, got[0].HasBreakingChange)

	latest, err := store.LatestCommitTime(ctx, "/direct/repo")
	require.NoError(t, err)
	assert.True(t, latest.Equal(commits[1].AuthorTimestamp))
}

// TestGitmetricsWithMySQL tests the gitmetrics CLI and store with a MySQL backend.
func TestGitmetricsWithMySQL(t *testing.T) {
	connStr := startMySQL(t)
	runCLIAgainst(t, schema.MySQLBackend, connStr)
	exerciseStore(t, schema.MySQLBackend, connStr)
}

// TestGitmetricsWithPostgres tests the gitmetrics CLI and store with a PostgreSQL backend.
func TestGitmetricsWithPostgres(t *testing.T) {
	connStr := startPostgres(t)
	runCLIAgainst(t, schema.PostgreSQLBackend, connStr)
	exerciseStore(t, schema.PostgreSQLBackend, connStr)
}
