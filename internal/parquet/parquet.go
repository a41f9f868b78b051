// Package parquet exports cached commit and merge history to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/crackerjack/gitmetrics/schema"
	"github.com/parquet-go/parquet-go"
)

// CommitRow is one cached commit. It mirrors the commits table.
type CommitRow struct {
	// RepoPath is the absolute path of the repository the commit belongs to
	RepoPath string `parquet:"repo_path,snappy"`

	CommitHash string `parquet:"commit_hash,snappy"`

	// AuthorTime is stored as TIMESTAMP with nanosecond precision
	AuthorTime time.Time `parquet:"author_time,snappy"`

	AuthorName  string `parquet:"author_name,snappy"`
	AuthorEmail string `parquet:"author_email,snappy"`
	Message     string `parquet:"message,snappy"`
	IsMerge     bool   `parquet:"is_merge,snappy"`

	IsConventional bool `parquet:"is_conventional,snappy"`

	// ConventionalType is nil for non-conventional subjects
	ConventionalType *string `parquet:"conventional_type,optional,snappy"`

	// Scope is nil when the header carries no scope
	Scope *string `parquet:"scope,optional,snappy"`

	Breaking bool `parquet:"breaking,snappy"`
}

// MergeRow is one cached merge or rebase. It mirrors the merges table.
type MergeRow struct {
	RepoPath        string    `parquet:"repo_path,snappy"`
	MergeHash       string    `parquet:"merge_hash,snappy"`
	MergeTime       time.Time `parquet:"merge_time,snappy"`
	MergeType       string    `parquet:"merge_type,snappy"`
	SourceBranch    *string   `parquet:"source_branch,optional,snappy"`
	TargetBranch    *string   `parquet:"target_branch,optional,snappy"`
	HasConflicts    bool      `parquet:"has_conflicts,snappy"`
	ConflictFiles   []string  `parquet:"conflict_files,snappy"`
	ParentHashes    []string  `parquet:"parent_hashes,snappy"`
	DetectionMethod string    `parquet:"detection_method,snappy"`
}

// WriteCommitsParquet writes commit rows to a Parquet file.
func WriteCommitsParquet(data []CommitRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteMergesParquet writes merge rows to a Parquet file.
func WriteMergesParquet(data []MergeRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// writeRows infers the schema from T's struct tags.
func writeRows[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	// Close flushes the footer; a failure here leaves an unreadable file.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertCommits converts cached commits of one repository to Parquet rows.
func ConvertCommits(repoPath string, commits []schema.CommitData) []CommitRow {
	result := make([]CommitRow, len(commits))
	for i, c := range commits {
		result[i] = CommitRow{
			RepoPath:         repoPath,
			CommitHash:       c.Hash,
			AuthorTime:       c.AuthorTimestamp,
			AuthorName:       c.AuthorName,
			AuthorEmail:      c.AuthorEmail,
			Message:          c.Message,
			IsMerge:          c.IsMerge,
			IsConventional:   c.IsConventional,
			ConventionalType: optional(c.ConventionalType),
			Scope:            optional(c.ConventionalScope),
			Breaking:         c.HasBreakingChange,
		}
	}
	return result
}

// ConvertMerges converts cached merge events of one repository to Parquet rows.
func ConvertMerges(repoPath string, merges []schema.MergeEvent) []MergeRow {
	result := make([]MergeRow, len(merges))
	for i, m := range merges {
		result[i] = MergeRow{
			RepoPath:        repoPath,
			MergeHash:       m.MergeHash,
			MergeTime:       m.MergeTimestamp,
			MergeType:       string(m.MergeType),
			SourceBranch:    optional(m.SourceBranch),
			TargetBranch:    optional(m.TargetBranch),
			HasConflicts:    m.HasConflicts,
			ConflictFiles:   nonNil(m.ConflictFiles),
			ParentHashes:    nonNil(m.ParentHashes),
			DetectionMethod: string(m.DetectionMethod),
		}
	}
	return result
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
