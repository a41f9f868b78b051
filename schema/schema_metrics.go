package schema

import "time"

// CommitMetrics summarizes commit velocity and message quality over a window.
type CommitMetrics struct {
	TotalCommits               int            `json:"total_commits"`
	ConventionalCommits        int            `json:"conventional_commits"`
	ConventionalComplianceRate float64        `json:"conventional_compliance_rate"` // 0-1
	BreakingChanges            int            `json:"breaking_changes"`
	AvgCommitsPerHour          float64        `json:"avg_commits_per_hour"`
	AvgCommitsPerDay           float64        `json:"avg_commits_per_day"`
	AvgCommitsPerWeek          float64        `json:"avg_commits_per_week"`
	MostActiveHour             int            `json:"most_active_hour"` // 0-23
	MostActiveDay              int            `json:"most_active_day"`  // 0=Monday ... 6=Sunday
	TypeBreakdown              map[string]int `json:"type_breakdown"`
	PeriodStart                time.Time      `json:"period_start"`
	PeriodEnd                  time.Time      `json:"period_end"`
}

// BranchMetrics summarizes branch switching activity over a window.
// BranchesCreated, BranchesDeleted and AvgBranchLifetimeHours are not derived
// from the reflog yet and are always zero.
type BranchMetrics struct {
	TotalBranches          int       `json:"total_branches"`
	ActiveBranches         int       `json:"active_branches"`
	BranchSwitches         int       `json:"branch_switches"`
	BranchesCreated        int       `json:"branches_created"`
	BranchesDeleted        int       `json:"branches_deleted"`
	AvgBranchLifetimeHours float64   `json:"avg_branch_lifetime_hours"`
	MostSwitchedBranch     string    `json:"most_switched_branch,omitempty"`
	PeriodStart            time.Time `json:"period_start"`
	PeriodEnd              time.Time `json:"period_end"`
}

// FileConflictCount is the number of conflicted merges that touched a file.
type FileConflictCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// MergeMetrics summarizes merge outcomes over a window.
type MergeMetrics struct {
	TotalMerges         int                 `json:"total_merges"`
	TotalRebases        int                 `json:"total_rebases"`
	TotalConflicts      int                 `json:"total_conflicts"`
	ConflictRate        float64             `json:"conflict_rate"`      // 0-1
	MergeSuccessRate    float64             `json:"merge_success_rate"` // 0-1
	AvgFilesPerConflict float64             `json:"avg_files_per_conflict"`
	MostConflictedFiles []FileConflictCount `json:"most_conflicted_files"`
	PeriodStart         time.Time           `json:"period_start"`
	PeriodEnd           time.Time           `json:"period_end"`
}

// TrendPoint is the number of commits authored on one local calendar day.
type TrendPoint struct {
	Date    time.Time `json:"date"`
	Commits int       `json:"commits"`
}

// VelocityDashboard is the top-level read model for a single repository.
type VelocityDashboard struct {
	RepoPath      string        `json:"repo_path"`
	GeneratedAt   time.Time     `json:"generated_at"`
	PeriodStart   time.Time     `json:"period_start"`
	PeriodEnd     time.Time     `json:"period_end"`
	CommitMetrics CommitMetrics `json:"commit_metrics"`
	BranchMetrics BranchMetrics `json:"branch_metrics"`
	MergeMetrics  MergeMetrics  `json:"merge_metrics"`
	Trend         []TrendPoint  `json:"trend"`
}
