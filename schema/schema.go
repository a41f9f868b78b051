// Package schema has the records, read models and constants shared by every part of gitmetrics.
package schema

import "time"

// CommitData is a single commit parsed from one `git log` line.
// It is never mutated after construction and is identified by Hash.
type CommitData struct {
	Hash              string    `json:"hash"`
	AuthorTimestamp   time.Time `json:"author_timestamp"`
	AuthorName        string    `json:"author_name"`
	AuthorEmail       string    `json:"author_email"`
	Message           string    `json:"message"`
	IsMerge           bool      `json:"is_merge"`
	IsConventional    bool      `json:"is_conventional"`
	ConventionalType  string    `json:"conventional_type,omitempty"`  // Empty when the header is not conventional
	ConventionalScope string    `json:"conventional_scope,omitempty"` // Empty when no scope is given
	HasBreakingChange bool      `json:"has_breaking_change"`
}

// BranchEvent is a single branch movement derived from the reflog.
type BranchEvent struct {
	BranchName string          `json:"branch_name"`
	EventType  BranchEventType `json:"event_type"`
	Timestamp  time.Time       `json:"timestamp"`
	CommitHash string          `json:"commit_hash,omitempty"`
}

// MergeEvent is a single merge commit and its conflict assessment.
type MergeEvent struct {
	MergeHash       string            `json:"merge_hash"`
	MergeTimestamp  time.Time         `json:"merge_timestamp"`
	MergeType       MergeType         `json:"merge_type"`
	SourceBranch    string            `json:"source_branch,omitempty"`
	TargetBranch    string            `json:"target_branch,omitempty"`
	HasConflicts    bool              `json:"has_conflicts"`
	ConflictFiles   []string          `json:"conflict_files"`
	ParentHashes    []string          `json:"parent_hashes"`
	DetectionMethod ConflictDetection `json:"detection_method"`
}

// IsMergeMessage reports whether a commit subject denotes a merge commit.
func IsMergeMessage(message string) bool {
	return len(message) >= 6 && message[:6] == "Merge "
}
