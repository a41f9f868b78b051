package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/schema"
)

// healthJSON is the JSON shape of a portfolio health report.
type healthJSON struct {
	GeneratedAt    time.Time                  `json:"generated_at"`
	DaysBack       int                        `json:"days_back"`
	AvgHealthScore float64                    `json:"avg_health_score"`
	Repositories   []schema.RankedRepository  `json:"repositories"`
	Failures       []schema.RepositoryFailure `json:"failures,omitempty"`
}

func writePortfolioHealth(report schema.PortfolioReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtPct := createFormatters(cfg.Precision)
	ranked := schema.RankRepositories(report.Repositories)
	data := healthJSON{
		GeneratedAt:    report.GeneratedAt,
		DaysBack:       report.DaysBack,
		AvgHealthScore: report.AvgHealthScore,
		Repositories:   ranked,
		Failures:       report.Failures,
	}
	header := []string{
		"rank", "repo_path", "repo_name", "health_score", "label", "trend",
		"total_commits", "avg_commits_per_day", "compliance_rate", "breaking_changes",
		"total_merges", "conflict_rate", "practices",
	}
	return dispatch(cfg, data, header,
		func(w *csv.Writer) error { return writeHealthCSV(w, ranked, fmtFloat) },
		func(w io.Writer) error { return writeHealthTable(w, report, ranked, cfg, fmtFloat, fmtPct, duration) })
}

func writeHealthCSV(w *csv.Writer, ranked []schema.RankedRepository, fmtFloat func(float64) string) error {
	for _, r := range ranked {
		practices := make([]string, len(r.Practices))
		for i, p := range r.Practices {
			practices[i] = string(p)
		}
		rec := []string{
			strconv.Itoa(r.Rank),
			r.RepoPath,
			r.RepoName,
			fmtFloat(r.HealthScore),
			r.Label,
			string(r.Velocity.TrendDirection),
			strconv.Itoa(r.Velocity.TotalCommits),
			fmtFloat(r.Velocity.AvgCommitsPerDay),
			fmtFloat(r.Velocity.ConventionalComplianceRate),
			strconv.Itoa(r.Velocity.BreakingChanges),
			strconv.Itoa(r.Velocity.TotalMerges),
			fmtFloat(r.Velocity.ConflictRate),
			joinPipe(practices),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	return nil
}

func writeHealthTable(w io.Writer, report schema.PortfolioReport, ranked []schema.RankedRepository, cfg *contract.Config,
	fmtFloat, fmtPct func(float64) string, duration time.Duration,
) error {
	// Rank + Score + Label + Trend + Commits/day + Compliance + Conflicts
	pathWidth := getMaxTablePathWidth(cfg, 70)
	headers := []string{"Rank", "Repository", "Score", "Label", "Trend", "Commits/day", "Compliance", "Conflicts"}
	data := make([][]string, 0, len(ranked))
	for _, r := range ranked {
		data = append(data, []string{
			strconv.Itoa(r.Rank),
			contract.TruncatePath(r.RepoPath, pathWidth),
			fmtFloat(r.HealthScore),
			contract.GetColorLabel(r.HealthScore),
			string(r.Velocity.TrendDirection),
			fmtFloat(r.Velocity.AvgCommitsPerDay),
			fmtPct(r.Velocity.ConventionalComplianceRate),
			fmtPct(r.Velocity.ConflictRate),
		})
	}
	if err := renderTable(w, headers, data); err != nil {
		return err
	}

	if len(report.Failures) > 0 {
		if _, err := fmt.Fprintf(w, "⚠️  %d repositories could not be analyzed:\n", len(report.Failures)); err != nil {
			return err
		}
		for _, f := range report.Failures {
			if _, err := fmt.Fprintf(w, "  - %s: %s\n", f.RepoPath, f.Error); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintf(w, "Showing %d repositories over %d days (average health: %s)\n",
		len(ranked), report.DaysBack, fmtFloat(report.AvgHealthScore)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Analysis completed in %v with %d workers. Store backend: %s\n", duration, cfg.Workers, cfg.StoreBackend)
	return err
}

func writePatterns(patterns []schema.CrossProjectPattern, cfg *contract.Config) error {
	header := []string{"type", "severity", "repositories", "description"}
	return dispatch(cfg, patterns, header,
		func(w *csv.Writer) error {
			for _, p := range patterns {
				if err := w.Write([]string{string(p.Type), p.Severity, joinPipe(p.Repositories), p.Description}); err != nil {
					return fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
			return nil
		},
		func(w io.Writer) error {
			if len(patterns) == 0 {
				_, err := fmt.Fprintln(w, "✅ No cross-project patterns detected.")
				return err
			}
			data := make([][]string, 0, len(patterns))
			for _, p := range patterns {
				data = append(data, []string{string(p.Type), p.Severity, strconv.Itoa(len(p.Repositories)), strings.Join(p.Repositories, "\n")})
			}
			if err := renderTable(w, []string{"Pattern", "Severity", "Count", "Repositories"}, data); err != nil {
				return err
			}
			for _, p := range patterns {
				if _, err := fmt.Fprintf(w, "• %s\n", p.Description); err != nil {
					return err
				}
			}
			return nil
		})
}

func writePractices(props []schema.PracticePropagation, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	header := []string{"target_repo", "target_health", "missing_practices", "source_repos"}
	return dispatch(cfg, props, header,
		func(w *csv.Writer) error {
			for _, p := range props {
				missing := make([]string, len(p.MissingPractices))
				for i, m := range p.MissingPractices {
					missing[i] = string(m)
				}
				rec := []string{p.TargetRepo, fmtFloat(p.TargetHealth), joinPipe(missing), joinPipe(p.SourceRepos)}
				if err := w.Write(rec); err != nil {
					return fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
			return nil
		},
		func(w io.Writer) error {
			if len(props) == 0 {
				_, err := fmt.Fprintln(w, "✅ No practice suggestions. Low performers already follow what the top repositories do.")
				return err
			}
			pathWidth := getMaxTablePathWidth(cfg, 60)
			data := make([][]string, 0, len(props))
			for _, p := range props {
				data = append(data, []string{
					contract.TruncatePath(p.TargetRepo, pathWidth),
					fmtFloat(p.TargetHealth),
					practiceList(p.MissingPractices),
				})
			}
			if err := renderTable(w, []string{"Repository", "Health", "Adopt"}, data); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Learn from: %s\n", strings.Join(props[0].SourceRepos, ", "))
			return err
		})
}

func writeRepositories(repos []string, cfg *contract.Config) error {
	type repoJSON struct {
		RepoPath string `json:"repo_path"`
		RepoName string `json:"repo_name"`
	}
	data := make([]repoJSON, len(repos))
	for i, r := range repos {
		data[i] = repoJSON{RepoPath: r, RepoName: schema.RepoName(r)}
	}
	return dispatch(cfg, data, []string{"repo_path", "repo_name"},
		func(w *csv.Writer) error {
			for _, r := range data {
				if err := w.Write([]string{r.RepoPath, r.RepoName}); err != nil {
					return fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
			return nil
		},
		func(w io.Writer) error {
			for _, r := range repos {
				if _, err := fmt.Fprintln(w, r); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintf(w, "Found %d repositories\n", len(repos))
			return err
		})
}
