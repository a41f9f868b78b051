package portfolio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T, path string) {
	t.Helper()
	_, err := git.PlainInit(path, false)
	require.NoError(t, err)
}

func TestDiscoverRepositories(t *testing.T) {
	root := t.TempDir()
	initRepo(t, filepath.Join(root, "api"))
	initRepo(t, filepath.Join(root, "team", "web"))
	initRepo(t, filepath.Join(root, "api", "vendor", "nested"))
	initRepo(t, filepath.Join(root, ".cache", "hidden"))
	initRepo(t, filepath.Join(root, "a", "b", "c", "too-deep"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "broken", ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "plain", "dir"), 0o755))

	repos, err := DiscoverRepositories(root, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "api"),
		filepath.Join(root, "team", "web"),
	}, repos)
}

func TestDiscoverRepositories_DepthLimit(t *testing.T) {
	root := t.TempDir()
	initRepo(t, filepath.Join(root, "a", "b", "c", "deep"))

	repos, err := DiscoverRepositories(root, 3)
	require.NoError(t, err)
	assert.Empty(t, repos)

	repos, err = DiscoverRepositories(root, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a", "b", "c", "deep")}, repos)
}

func TestDiscoverRepositories_RootIsRepository(t *testing.T) {
	root := t.TempDir()
	initRepo(t, root)
	initRepo(t, filepath.Join(root, "sub"))

	repos, err := DiscoverRepositories(root, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{root}, repos)
}

func TestDiscoverRepositories_InvalidRoot(t *testing.T) {
	_, err := DiscoverRepositories(filepath.Join(t.TempDir(), "missing"), 3)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = DiscoverRepositories(file, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestNewCollectorFactory(t *testing.T) {
	root := t.TempDir()
	initRepo(t, root)
	factory := NewCollectorFactory(contract.NewScriptedExecutor(), nil)

	src, err := factory(root)
	require.NoError(t, err)
	assert.NoError(t, src.Close())

	_, err = factory(t.TempDir())
	assert.ErrorIs(t, err, contract.ErrNotGitRepository)
}
