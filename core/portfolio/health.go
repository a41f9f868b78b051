package portfolio

import (
	"fmt"
	"sort"

	"github.com/crackerjack/gitmetrics/schema"
)

// Practice thresholds.
const (
	highComplianceRate = 0.8
	highVelocityPerDay = 3.0
	lowConflictRate    = 0.05

	// lowPerformerHealth is the score below which a repository receives practice suggestions.
	lowPerformerHealth = 60.0
	// adoptionCeiling excludes practices that this share of low performers already follow.
	adoptionCeiling = 0.7
	topPerformers   = 3
)

// Pattern thresholds.
const (
	decliningVelocityPerDay = 1.0
	highConflictRate        = 0.10
	poorComplianceRate      = 0.50
)

// HealthScore combines compliance, velocity and conflict rate into a 0-100 score.
// With the default weights: compliance*30 + min(avg/10, 1)*30 + (1-conflict)*20 - 5*breaking.
func HealthScore(v schema.RepositoryVelocity, w schema.HealthWeights) float64 {
	compliance := clamp01(v.ConventionalComplianceRate)
	velocity := clamp01(v.AvgCommitsPerDay / 10)
	conflicts := clamp01(v.ConflictRate)

	score := compliance*w.Compliance +
		velocity*w.Velocity +
		(1-conflicts)*w.Conflicts -
		w.BreakingPenalty*float64(v.BreakingChanges)
	return min(max(score, 0), 100)
}

// ClassifyTrend maps an average daily commit count to a trend direction.
func ClassifyTrend(avgPerDay float64, t schema.TrendThresholds) schema.TrendDirection {
	switch {
	case avgPerDay >= t.Increasing:
		return schema.TrendIncreasing
	case avgPerDay < t.Decreasing:
		return schema.TrendDecreasing
	default:
		return schema.TrendStable
	}
}

// Practices returns the practices a repository exhibits, in schema.AllPractices order.
func Practices(v schema.RepositoryVelocity) []schema.PracticeKey {
	practices := []schema.PracticeKey{}
	if v.ConventionalComplianceRate > highComplianceRate {
		practices = append(practices, schema.PracticeHighCompliance)
	}
	if v.AvgCommitsPerDay > highVelocityPerDay {
		practices = append(practices, schema.PracticeHighVelocity)
	}
	if v.ConflictRate < lowConflictRate {
		practices = append(practices, schema.PracticeLowConflicts)
	}
	return practices
}

// AssessHealth scores a repository velocity and labels it.
func AssessHealth(v schema.RepositoryVelocity, w schema.HealthWeights) schema.RepositoryHealth {
	score := HealthScore(v, w)
	return schema.RepositoryHealth{
		RepoPath:    v.RepoPath,
		RepoName:    v.RepoName,
		HealthScore: score,
		Label:       schema.GetHealthLabel(score),
		Practices:   Practices(v),
		Velocity:    v,
	}
}

// DetectPatterns reports conditions shared by at least minRepos repositories.
// Severity grows with the share of the portfolio affected.
func DetectPatterns(velocities []schema.RepositoryVelocity, minRepos int) []schema.CrossProjectPattern {
	if minRepos < 1 {
		minRepos = 1
	}
	var declining, conflicts, compliance []string
	for _, v := range velocities {
		if v.TrendDirection == schema.TrendDecreasing && v.AvgCommitsPerDay < decliningVelocityPerDay {
			declining = append(declining, v.RepoPath)
		}
		if v.ConflictRate > highConflictRate {
			conflicts = append(conflicts, v.RepoPath)
		}
		if v.ConventionalComplianceRate < poorComplianceRate {
			compliance = append(compliance, v.RepoPath)
		}
	}

	total := len(velocities)
	patterns := []schema.CrossProjectPattern{}
	add := func(typ schema.PatternType, repos []string, description string) {
		if len(repos) < minRepos {
			return
		}
		patterns = append(patterns, schema.CrossProjectPattern{
			Type:         typ,
			Description:  fmt.Sprintf(description, len(repos)),
			Repositories: repos,
			Severity:     severity(len(repos), total),
		})
	}
	add(schema.PatternDecliningVelocity, declining, "%d repositories show declining velocity (under 1 commit per day)")
	add(schema.PatternHighConflicts, conflicts, "%d repositories have a merge conflict rate above 10%%")
	add(schema.PatternPoorCompliance, compliance, "%d repositories have conventional commit compliance below 50%%")
	return patterns
}

func severity(affected, total int) string {
	if total == 0 {
		return "low"
	}
	share := float64(affected) / float64(total)
	switch {
	case share >= 0.5:
		return "high"
	case share >= 0.25:
		return "medium"
	default:
		return "low"
	}
}

// BestPractices finds practices shared by the top three repositories that fewer than 70%
// of the low performers (health below 60) follow, and suggests the missing ones to each
// low performer.
func BestPractices(healths []schema.RepositoryHealth) []schema.PracticePropagation {
	propagations := []schema.PracticePropagation{}
	if len(healths) == 0 {
		return propagations
	}

	ranked := sortByHealth(healths)
	top := ranked[:min(topPerformers, len(ranked))]
	topSet := make(map[string]struct{}, len(top))
	sources := make([]string, 0, len(top))
	for _, h := range top {
		topSet[h.RepoPath] = struct{}{}
		sources = append(sources, h.RepoPath)
	}

	var low []schema.RepositoryHealth
	for _, h := range ranked {
		if _, isTop := topSet[h.RepoPath]; !isTop && h.HealthScore < lowPerformerHealth {
			low = append(low, h)
		}
	}
	if len(low) == 0 {
		return propagations
	}

	var candidates []schema.PracticeKey
	for _, p := range schema.AllPractices {
		shared := true
		for _, h := range top {
			if !h.HasPractice(p) {
				shared = false
				break
			}
		}
		if !shared {
			continue
		}
		adopters := 0
		for _, h := range low {
			if h.HasPractice(p) {
				adopters++
			}
		}
		if float64(adopters)/float64(len(low)) < adoptionCeiling {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return propagations
	}

	for _, h := range low {
		var missing []schema.PracticeKey
		for _, p := range candidates {
			if !h.HasPractice(p) {
				missing = append(missing, p)
			}
		}
		if len(missing) == 0 {
			continue
		}
		propagations = append(propagations, schema.PracticePropagation{
			TargetRepo:       h.RepoPath,
			TargetHealth:     h.HealthScore,
			SourceRepos:      sources,
			MissingPractices: missing,
		})
	}
	return propagations
}

// sortByHealth returns a copy ordered by score descending, then path.
func sortByHealth(healths []schema.RepositoryHealth) []schema.RepositoryHealth {
	ranked := append([]schema.RepositoryHealth(nil), healths...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].HealthScore != ranked[j].HealthScore {
			return ranked[i].HealthScore > ranked[j].HealthScore
		}
		return ranked[i].RepoPath < ranked[j].RepoPath
	})
	return ranked
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
