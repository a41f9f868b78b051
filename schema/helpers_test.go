package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepoName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/dev/projects/gitmetrics", "gitmetrics"},
		{"/home/dev/projects/gitmetrics/", "gitmetrics"}, // trailing separator
		{"/srv/mirrors/kernel.git", "kernel"},            // bare mirror
		{"/home/dev/projects/api/.git", "api"},           // pointed at the git dir
		{"relative/service", "service"},                  // relative path
		{"  /tmp/spaced  ", "spaced"},                    // surrounding whitespace
		{"/", "/"},                                       // root falls back to input
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, RepoName(tt.path))
		})
	}
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"docs", "feat", "fix"}, SortedKeys(map[string]int{"fix": 2, "feat": 5, "docs": 1}))
	assert.Empty(t, SortedKeys(nil))
}

func TestPracticesEqual(t *testing.T) {
	a := []PracticeKey{PracticeHighCompliance, PracticeLowConflicts}
	b := []PracticeKey{PracticeLowConflicts, PracticeHighCompliance}
	c := []PracticeKey{PracticeLowConflicts, PracticeHighVelocity}

	assert.True(t, PracticesEqual(a, b))
	assert.False(t, PracticesEqual(a, c))
	assert.False(t, PracticesEqual(a, a[:1]))
	assert.True(t, PracticesEqual(nil, nil))
}
