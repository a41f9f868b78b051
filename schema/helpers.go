package schema

import (
	"path/filepath"
	"sort"
	"strings"
)

// RepoName derives a display name for a repository from its path.
// Trailing separators and a trailing ".git" suffix are ignored.
func RepoName(repoPath string) string {
	cleaned := filepath.Clean(strings.TrimSpace(repoPath))
	base := filepath.Base(cleaned)
	if base == ".git" {
		base = filepath.Base(filepath.Dir(cleaned))
	}
	base = strings.TrimSuffix(base, ".git")
	if base == "" || base == "." || base == string(filepath.Separator) {
		return repoPath
	}
	return base
}

// SortedKeys returns the keys of a count map in ascending order.
func SortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PracticesEqual compares two practice lists, considering them equal if they contain
// the same practices regardless of order.
func PracticesEqual(a, b []PracticeKey) bool {
	if len(a) != len(b) {
		return false
	}

	counts := make(map[PracticeKey]int, len(a))
	for _, p := range a {
		counts[p]++
	}
	for _, p := range b {
		counts[p]--
		if counts[p] < 0 {
			return false
		}
	}
	return true
}
