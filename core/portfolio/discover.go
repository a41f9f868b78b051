package portfolio

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crackerjack/gitmetrics/core"
	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/logging"
	"github.com/go-git/go-git/v5"
)

// DefaultDiscoverDepth is how many directory levels below the root are searched.
const DefaultDiscoverDepth = 3

// DiscoverRepositories returns the absolute paths of git repositories under root, sorted.
// A directory counts only if go-git can open it; the search does not descend into a
// repository once found, into hidden directories, or deeper than maxDepth levels.
func DiscoverRepositories(root string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultDiscoverDepth
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", absRoot)
	}

	log := logging.Component("portfolio")
	var repos []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			log.WarnCtx("skipping unreadable path", map[string]any{"path": path, "error": walkErr.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != absRoot && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if depth(absRoot, path) > maxDepth {
			return fs.SkipDir
		}
		if !contract.IsGitRepository(path) {
			return nil
		}
		if _, err := git.PlainOpen(path); err != nil {
			log.WarnCtx("ignoring invalid repository", map[string]any{"path": path, "error": err.Error()})
			return nil
		}
		repos = append(repos, path)
		return fs.SkipDir
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %q: %w", absRoot, err)
	}
	sort.Strings(repos)
	return repos, nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// NewCollectorFactory builds core.Collectors sharing exec and store.
// Closing a collector leaves the shared store open; the caller owns it.
func NewCollectorFactory(exec contract.SubprocessExecutor, store contract.MetricsStore, opts ...core.CollectorOption) CollectorFactory {
	return func(repoPath string) (VelocitySource, error) {
		var s contract.MetricsStore
		if store != nil {
			s = sharedStore{store}
		}
		c, err := core.NewCollector(repoPath, exec, s, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// sharedStore ignores Close so one store can back many short-lived collectors.
type sharedStore struct {
	contract.MetricsStore
}

func (sharedStore) Close() error { return nil }
