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

// weekdayNames follows the Monday-first index used by CommitMetrics.MostActiveDay.
var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// metric is one labeled value of a summary table.
type metric struct {
	section string
	name    string
	value   string
}

func commitRows(m schema.CommitMetrics, fmtFloat, fmtPct func(float64) string) []metric {
	rows := []metric{
		{"commits", "Total commits", strconv.Itoa(m.TotalCommits)},
		{"commits", "Conventional commits", strconv.Itoa(m.ConventionalCommits)},
		{"commits", "Compliance rate", fmtPct(m.ConventionalComplianceRate)},
		{"commits", "Breaking changes", strconv.Itoa(m.BreakingChanges)},
		{"commits", "Avg commits/hour", fmtFloat(m.AvgCommitsPerHour)},
		{"commits", "Avg commits/day", fmtFloat(m.AvgCommitsPerDay)},
		{"commits", "Avg commits/week", fmtFloat(m.AvgCommitsPerWeek)},
	}
	if m.TotalCommits > 0 {
		rows = append(rows,
			metric{"commits", "Most active hour", fmt.Sprintf("%02d:00", m.MostActiveHour)},
			metric{"commits", "Most active day", weekdayName(m.MostActiveDay)},
		)
	}
	for _, typ := range schema.SortedKeys(m.TypeBreakdown) {
		rows = append(rows, metric{"types", typ, strconv.Itoa(m.TypeBreakdown[typ])})
	}
	return rows
}

func branchRows(m schema.BranchMetrics) []metric {
	mostSwitched := m.MostSwitchedBranch
	if mostSwitched == "" {
		mostSwitched = "-"
	}
	return []metric{
		{"branches", "Total branches", strconv.Itoa(m.TotalBranches)},
		{"branches", "Active branches", strconv.Itoa(m.ActiveBranches)},
		{"branches", "Branch switches", strconv.Itoa(m.BranchSwitches)},
		{"branches", "Most switched branch", mostSwitched},
	}
}

func mergeRows(m schema.MergeMetrics, fmtFloat, fmtPct func(float64) string) []metric {
	rows := []metric{
		{"merges", "Total merges", strconv.Itoa(m.TotalMerges)},
		{"merges", "Rebases", strconv.Itoa(m.TotalRebases)},
		{"merges", "Conflicts", strconv.Itoa(m.TotalConflicts)},
		{"merges", "Conflict rate", fmtPct(m.ConflictRate)},
		{"merges", "Merge success rate", fmtPct(m.MergeSuccessRate)},
		{"merges", "Avg files per conflict", fmtFloat(m.AvgFilesPerConflict)},
	}
	for _, f := range m.MostConflictedFiles {
		rows = append(rows, metric{"conflicted_files", f.Path, strconv.Itoa(f.Count)})
	}
	return rows
}

func weekdayName(i int) string {
	if i < 0 || i >= len(weekdayNames) {
		return "-"
	}
	return weekdayNames[i]
}

// writeMetricCSV writes section, metric, value rows.
func writeMetricCSV(w *csv.Writer, repoPath string, rows []metric) error {
	for _, r := range rows {
		if err := w.Write([]string{repoPath, r.section, r.name, r.value}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	return nil
}

var metricCSVHeader = []string{"repo_path", "section", "metric", "value"}

// writeMetricTables renders one table per section, in first-seen order.
func writeMetricTables(w io.Writer, rows []metric) error {
	var order []string
	bySection := make(map[string][][]string)
	for _, r := range rows {
		if _, ok := bySection[r.section]; !ok {
			order = append(order, r.section)
		}
		bySection[r.section] = append(bySection[r.section], []string{r.name, r.value})
	}
	for _, section := range order {
		header := []string{sectionTitle(section), "Value"}
		if err := renderTable(w, header, bySection[section]); err != nil {
			return err
		}
	}
	return nil
}

func sectionTitle(section string) string {
	switch section {
	case "types":
		return "Commit type"
	case "conflicted_files":
		return "Conflicted file"
	default:
		return strings.ToUpper(section[:1]) + section[1:]
	}
}

func writeHeading(w io.Writer, icon, title, repoPath string, start, end time.Time) error {
	if _, err := fmt.Fprintf(w, "%s %s: %s\n", icon, title, repoPath); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "📅 Period: %s\n", formatPeriod(start, end))
	return err
}

func writeCommitMetrics(repoPath string, m schema.CommitMetrics, cfg *contract.Config) error {
	fmtFloat, fmtPct := createFormatters(cfg.Precision)
	rows := commitRows(m, fmtFloat, fmtPct)
	return dispatch(cfg, m, metricCSVHeader,
		func(w *csv.Writer) error { return writeMetricCSV(w, repoPath, rows) },
		func(w io.Writer) error {
			if err := writeHeading(w, "📝", "Commit metrics", repoPath, m.PeriodStart, m.PeriodEnd); err != nil {
				return err
			}
			return writeMetricTables(w, rows)
		})
}

func writeBranchMetrics(repoPath string, m schema.BranchMetrics, cfg *contract.Config) error {
	rows := branchRows(m)
	return dispatch(cfg, m, metricCSVHeader,
		func(w *csv.Writer) error { return writeMetricCSV(w, repoPath, rows) },
		func(w io.Writer) error {
			if err := writeHeading(w, "🌿", "Branch activity", repoPath, m.PeriodStart, m.PeriodEnd); err != nil {
				return err
			}
			return writeMetricTables(w, rows)
		})
}

func writeMergeMetrics(repoPath string, m schema.MergeMetrics, cfg *contract.Config) error {
	fmtFloat, fmtPct := createFormatters(cfg.Precision)
	rows := mergeRows(m, fmtFloat, fmtPct)
	return dispatch(cfg, m, metricCSVHeader,
		func(w *csv.Writer) error { return writeMetricCSV(w, repoPath, rows) },
		func(w io.Writer) error {
			if err := writeHeading(w, "🔀", "Merge patterns", repoPath, m.PeriodStart, m.PeriodEnd); err != nil {
				return err
			}
			return writeMetricTables(w, rows)
		})
}

func dashboardRows(d schema.VelocityDashboard, precision int) []metric {
	fmtFloat, fmtPct := createFormatters(precision)
	var rows []metric
	rows = append(rows, commitRows(d.CommitMetrics, fmtFloat, fmtPct)...)
	rows = append(rows, branchRows(d.BranchMetrics)...)
	rows = append(rows, mergeRows(d.MergeMetrics, fmtFloat, fmtPct)...)
	for _, p := range d.Trend {
		rows = append(rows, metric{"trend", formatDate(p.Date), strconv.Itoa(p.Commits)})
	}
	return rows
}

func writeDashboard(d schema.VelocityDashboard, cfg *contract.Config, duration time.Duration) error {
	rows := dashboardRows(d, cfg.Precision)
	return dispatch(cfg, d, metricCSVHeader,
		func(w *csv.Writer) error { return writeMetricCSV(w, d.RepoPath, rows) },
		func(w io.Writer) error { return writeDashboardText(w, d, rows, cfg, duration) })
}

func writeDashboardText(w io.Writer, d schema.VelocityDashboard, rows []metric, cfg *contract.Config, duration time.Duration) error {
	if err := writeHeading(w, "📊", "Velocity dashboard", d.RepoPath, d.PeriodStart, d.PeriodEnd); err != nil {
		return err
	}
	var summary []metric
	for _, r := range rows {
		if r.section != "trend" {
			summary = append(summary, r)
		}
	}
	if err := writeMetricTables(w, summary); err != nil {
		return err
	}
	if err := writeTrend(w, d.Trend); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Analysis completed in %v. Store backend: %s\n", duration, cfg.StoreBackend)
	return err
}

// writeTrend draws one bar per day, scaled to the busiest day.
func writeTrend(w io.Writer, trend []schema.TrendPoint) error {
	if len(trend) == 0 {
		return nil
	}
	peak := 0
	for _, p := range trend {
		peak = max(peak, p.Commits)
	}
	const barWidth = 30
	data := make([][]string, 0, len(trend))
	for _, p := range trend {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("█", p.Commits*barWidth/peak)
		}
		data = append(data, []string{formatDate(p.Date), strconv.Itoa(p.Commits), bar})
	}
	return renderTable(w, []string{"Date", "Commits", "Trend"}, data)
}
