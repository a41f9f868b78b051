package schema

import "time"

// RepositoryVelocity is the per-repository summary used by portfolio analysis.
type RepositoryVelocity struct {
	RepoPath                   string         `json:"repo_path"`
	RepoName                   string         `json:"repo_name"`
	TotalCommits               int            `json:"total_commits"`
	AvgCommitsPerDay           float64        `json:"avg_commits_per_day"`
	ConventionalComplianceRate float64        `json:"conventional_compliance_rate"`
	BreakingChanges            int            `json:"breaking_changes"`
	TotalMerges                int            `json:"total_merges"`
	ConflictRate               float64        `json:"conflict_rate"`
	TrendDirection             TrendDirection `json:"trend_direction"`
	PeriodStart                time.Time      `json:"period_start"`
	PeriodEnd                  time.Time      `json:"period_end"`
}

// RepositoryHealth is a repository velocity with its composite health score.
type RepositoryHealth struct {
	RepoPath    string             `json:"repo_path"`
	RepoName    string             `json:"repo_name"`
	HealthScore float64            `json:"health_score"` // 0-100
	Label       string             `json:"label"`
	Practices   []PracticeKey      `json:"practices"`
	Velocity    RepositoryVelocity `json:"velocity"`
}

// HasPractice reports whether the repository exhibits the given practice.
func (h RepositoryHealth) HasPractice(p PracticeKey) bool {
	for _, have := range h.Practices {
		if have == p {
			return true
		}
	}
	return false
}

// CrossProjectPattern is a condition observed independently in several repositories.
type CrossProjectPattern struct {
	Type         PatternType `json:"type"`
	Description  string      `json:"description"`
	Repositories []string    `json:"repositories"`
	Severity     string      `json:"severity"`
}

// PracticePropagation suggests practices a low performer could adopt from the top performers.
type PracticePropagation struct {
	TargetRepo       string        `json:"target_repo"`
	TargetHealth     float64       `json:"target_health"`
	SourceRepos      []string      `json:"source_repos"`
	MissingPractices []PracticeKey `json:"missing_practices"`
}

// RepositoryFailure records a repository that could not be analyzed.
type RepositoryFailure struct {
	RepoPath string `json:"repo_path"`
	Error    string `json:"error"`
}

// PortfolioReport is the top-level read model for a multi-repository scan.
type PortfolioReport struct {
	GeneratedAt    time.Time             `json:"generated_at"`
	DaysBack       int                   `json:"days_back"`
	AvgHealthScore float64               `json:"avg_health_score"`
	Repositories   []RepositoryHealth    `json:"repositories"`
	Patterns       []CrossProjectPattern `json:"patterns"`
	Propagations   []PracticePropagation `json:"propagations"`
	Failures       []RepositoryFailure   `json:"failures,omitempty"`
}

// HealthWeights are the coefficients of the composite health score.
// Compliance, Velocity and Conflicts are the maximum points each factor can contribute.
// BreakingPenalty is subtracted once per breaking change.
type HealthWeights struct {
	Compliance      float64 `json:"compliance"`
	Velocity        float64 `json:"velocity"`
	Conflicts       float64 `json:"conflicts"`
	BreakingPenalty float64 `json:"breaking_penalty"`
}

// DefaultHealthWeights returns the reference weights: 30/30/20 with a 5 point breaking penalty.
func DefaultHealthWeights() HealthWeights {
	return HealthWeights{Compliance: 30, Velocity: 30, Conflicts: 20, BreakingPenalty: 5}
}

// TrendThresholds are the commits-per-day boundaries used to classify a trend.
type TrendThresholds struct {
	Increasing float64 `json:"increasing"` // at or above
	Decreasing float64 `json:"decreasing"` // strictly below
}

// DefaultTrendThresholds returns the reference thresholds of 3 and 1 commits per day.
func DefaultTrendThresholds() TrendThresholds {
	return TrendThresholds{Increasing: 3.0, Decreasing: 1.0}
}
