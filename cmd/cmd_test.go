package cmd

import (
	"context"
	"testing"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/iocache"
	"github.com/crackerjack/gitmetrics/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfig(t *testing.T, c *contract.Config) {
	t.Helper()
	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
}

func TestRepoStoreConnect(t *testing.T) {
	dir := t.TempDir()

	withConfig(t, &contract.Config{StoreBackend: schema.SQLiteBackend})
	assert.Equal(t, contract.GetRepoDBFilePath(dir), repoStoreConnect(dir))
	assert.NotEqual(t, contract.GetPortfolioDBFilePath("."), repoStoreConnect(dir),
		"default SQLite stores are per repository")

	withConfig(t, &contract.Config{StoreBackend: schema.PostgreSQLBackend, StoreDBConnect: "host=db dbname=metrics"})
	assert.Equal(t, "host=db dbname=metrics", repoStoreConnect(dir), "a shared store serves repositories and portfolio")
}

func TestDashboardHelpNamesSharedStore(t *testing.T) {
	assert.Contains(t, dashboardCmd.Long, "--store-db-connect")
	assert.Contains(t, dashboardCmd.Long, "--from-cache")
}

func TestStoreConnect_NotARepository(t *testing.T) {
	dir := t.TempDir()
	withConfig(t, &contract.Config{StoreBackend: schema.SQLiteBackend, RepoPaths: []string{dir}})

	_, err := storeConnect([]string{dir})
	assert.ErrorIs(t, err, contract.ErrNotGitRepository)

	connStr, err := storeConnect(nil)
	require.NoError(t, err)
	assert.Equal(t, contract.GetPortfolioDBFilePath("."), connStr)
}

func TestRunPortfolio_StoreErrorIsReturned(t *testing.T) {
	withConfig(t, &contract.Config{StoreBackend: schema.DatabaseBackend("oracle"), RepoPaths: []string{t.TempDir()}})

	_, _, err := runPortfolio()
	assert.ErrorContains(t, err, "cannot open metrics store")
}

func TestAnalyzePortfolio_ErrorsAreReturned(t *testing.T) {
	store, err := iocache.NewMetricsStore(schema.NoneBackend, "")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	withConfig(t, &contract.Config{FromCache: true, Workers: 1, RepoPaths: []string{t.TempDir()}, DaysBack: 7})
	_, _, err = analyzePortfolio(context.Background(), nil)
	assert.ErrorContains(t, err, "invalid portfolio settings")

	withConfig(t, &contract.Config{Workers: 1, RepoPaths: []string{t.TempDir()}, DaysBack: 7})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = analyzePortfolio(ctx, store)
	assert.ErrorIs(t, err, context.Canceled)
}
