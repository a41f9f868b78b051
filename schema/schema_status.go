package schema

import "time"

// StoreStatus represents the status of the metrics store.
type StoreStatus struct {
	Backend        string           `json:"backend"`
	Connected      bool             `json:"connected"`
	TableSizes     map[string]int64 `json:"table_sizes"`
	LastCommitTime time.Time        `json:"last_commit_time"`
}

// SnapshotRecord represents a row from the git_metrics_snapshots table.
type SnapshotRecord struct {
	RepoPath     string
	SnapshotDate time.Time
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Payload      string // JSON encoded VelocityDashboard
}
