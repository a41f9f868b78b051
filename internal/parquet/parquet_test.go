package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crackerjack/gitmetrics/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitRowStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(CommitRow))
	require.NotNil(t, s)

	expectedColumns := []string{
		"repo_path", "commit_hash", "author_time", "author_name", "author_email",
		"message", "is_merge", "is_conventional", "conventional_type", "scope", "breaking",
	}
	for _, colName := range expectedColumns {
		col, ok := s.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
		require.NotNil(t, col, "Column %s should not be nil", colName)
	}
}

func TestMergeRowStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(MergeRow))
	require.NotNil(t, s)

	expectedColumns := []string{
		"repo_path", "merge_hash", "merge_time", "merge_type", "source_branch",
		"target_branch", "has_conflicts", "conflict_files", "parent_hashes", "detection_method",
	}
	for _, colName := range expectedColumns {
		_, ok := s.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
	}
}

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestWriteCommitsParquet(t *testing.T) {
	ts := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	commits := []schema.CommitData{
		{
			Hash: "aaa111", AuthorTimestamp: ts, AuthorName: "Ada", AuthorEmail: "ada@example.com",
			Message: "feat(api)!: new endpoint", IsConventional: true, ConventionalType: "feat",
			ConventionalScope: "api", HasBreakingChange: true,
		},
		{Hash: "bbb222", AuthorTimestamp: ts.Add(time.Hour), AuthorName: "Lin", Message: "tweak things"},
	}
	rows := ConvertCommits("/src/api", commits)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[1].ConventionalType)
	assert.Nil(t, rows[1].Scope)

	path := filepath.Join(t.TempDir(), "commits.parquet")
	require.NoError(t, WriteCommitsParquet(rows, path))

	got := readAll[CommitRow](t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "/src/api", got[0].RepoPath)
	assert.Equal(t, "aaa111", got[0].CommitHash)
	assert.True(t, got[0].AuthorTime.Equal(ts))
	require.NotNil(t, got[0].ConventionalType)
	assert.Equal(t, "feat", *got[0].ConventionalType)
	require.NotNil(t, got[0].Scope)
	assert.Equal(t, "api", *got[0].Scope)
	assert.True(t, got[0].Breaking)
	assert.False(t, got[1].IsConventional)
	assert.Nil(t, got[1].ConventionalType)
}

func TestWriteMergesParquet(t *testing.T) {
	ts := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	merges := []schema.MergeEvent{
		{
			MergeHash: "m1", MergeTimestamp: ts, MergeType: schema.MergeTypeMerge,
			SourceBranch: "topic", TargetBranch: "main", HasConflicts: true,
			ConflictFiles: []string{"a.go", "b.go"}, ParentHashes: []string{"p1", "p2"},
			DetectionMethod: schema.TreeDetection,
		},
		{MergeHash: "m2", MergeTimestamp: ts.Add(time.Hour), MergeType: schema.MergeTypeMerge},
	}
	path := filepath.Join(t.TempDir(), "merges.parquet")
	require.NoError(t, WriteMergesParquet(ConvertMerges("/src/api", merges), path))

	got := readAll[MergeRow](t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].MergeHash)
	require.NotNil(t, got[0].SourceBranch)
	assert.Equal(t, "topic", *got[0].SourceBranch)
	assert.Equal(t, []string{"a.go", "b.go"}, got[0].ConflictFiles)
	assert.Equal(t, []string{"p1", "p2"}, got[0].ParentHashes)
	assert.Equal(t, string(schema.TreeDetection), got[0].DetectionMethod)
	assert.Nil(t, got[1].SourceBranch)
	assert.Empty(t, got[1].ConflictFiles)
}

func TestWriteCommitsParquet_EmptyData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteCommitsParquet([]CommitRow{}, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "footer is written even without rows")
}

func TestWriteCommitsParquet_InvalidPath(t *testing.T) {
	err := WriteCommitsParquet(nil, filepath.Join(t.TempDir(), "missing", "dir", "out.parquet"))
	assert.ErrorContains(t, err, "failed to create output file")
}
