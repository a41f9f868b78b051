package core

import (
	"sort"
	"time"

	"github.com/crackerjack/gitmetrics/schema"
)

// maxConflictedFiles bounds MergeMetrics.MostConflictedFiles.
const maxConflictedFiles = 10

// ComputeCommitMetrics summarizes commits authored in [start, end].
// Averages divide by the elapsed window with floors of one hour, day and week.
// The most active hour and weekday use the author's own clock; ties go to the lowest value.
func ComputeCommitMetrics(commits []schema.CommitData, start, end time.Time) schema.CommitMetrics {
	m := schema.CommitMetrics{
		TotalCommits:  len(commits),
		TypeBreakdown: make(map[string]int),
		PeriodStart:   start,
		PeriodEnd:     end,
	}
	if len(commits) == 0 {
		return m
	}

	var hours [24]int
	var weekdays [7]int
	for _, c := range commits {
		if c.IsConventional {
			m.ConventionalCommits++
		}
		if c.HasBreakingChange {
			m.BreakingChanges++
		}
		if c.ConventionalType != "" {
			m.TypeBreakdown[c.ConventionalType]++
		}
		hours[c.AuthorTimestamp.Hour()]++
		weekdays[mondayIndex(c.AuthorTimestamp.Weekday())]++
	}

	total := float64(m.TotalCommits)
	m.ConventionalComplianceRate = clamp01(float64(m.ConventionalCommits) / total)

	elapsedHours := max(end.Sub(start).Hours(), 1)
	elapsedDays := max(elapsedHours/24, 1)
	elapsedWeeks := max(elapsedDays/7, 1)
	m.AvgCommitsPerHour = total / elapsedHours
	m.AvgCommitsPerDay = total / elapsedDays
	m.AvgCommitsPerWeek = total / elapsedWeeks

	m.MostActiveHour = argmax(hours[:])
	m.MostActiveDay = argmax(weekdays[:])
	return m
}

// ComputeBranchMetrics summarizes checkout events against the current branch list.
// Creation, deletion and lifetime are not derived from the reflog and stay zero.
func ComputeBranchMetrics(events []schema.BranchEvent, branches map[string]string, start, end time.Time) schema.BranchMetrics {
	m := schema.BranchMetrics{
		TotalBranches: len(branches),
		PeriodStart:   start,
		PeriodEnd:     end,
	}

	switches := make(map[string]int)
	for _, ev := range events {
		if ev.EventType != schema.BranchCheckout {
			continue
		}
		m.BranchSwitches++
		switches[ev.BranchName]++
	}
	m.ActiveBranches = len(switches)

	best := 0
	for name, n := range switches {
		if n > best || (n == best && name < m.MostSwitchedBranch) {
			best = n
			m.MostSwitchedBranch = name
		}
	}
	return m
}

// ComputeMergeMetrics summarizes merge outcomes. With no merges the conflict rate is 0
// and the success rate 1.
func ComputeMergeMetrics(merges []schema.MergeEvent, start, end time.Time) schema.MergeMetrics {
	m := schema.MergeMetrics{
		MostConflictedFiles: []schema.FileConflictCount{},
		MergeSuccessRate:    1.0,
		PeriodStart:         start,
		PeriodEnd:           end,
	}
	if len(merges) == 0 {
		return m
	}

	fileCounts := make(map[string]int)
	conflictedFiles := 0
	for _, mg := range merges {
		switch mg.MergeType {
		case schema.MergeTypeRebase:
			m.TotalRebases++
		default:
			m.TotalMerges++
		}
		if !mg.HasConflicts {
			continue
		}
		m.TotalConflicts++
		conflictedFiles += len(mg.ConflictFiles)
		for _, f := range mg.ConflictFiles {
			fileCounts[f]++
		}
	}

	m.ConflictRate = clamp01(float64(m.TotalConflicts) / float64(len(merges)))
	m.MergeSuccessRate = clamp01(1 - m.ConflictRate)
	if m.TotalConflicts > 0 {
		m.AvgFilesPerConflict = float64(conflictedFiles) / float64(m.TotalConflicts)
	}
	m.MostConflictedFiles = topConflictedFiles(fileCounts, maxConflictedFiles)
	return m
}

// DailyTrend buckets commits by calendar day in loc, with a zero-count point for
// every day from start to end inclusive.
func DailyTrend(commits []schema.CommitData, start, end time.Time, loc *time.Location) []schema.TrendPoint {
	if loc == nil {
		loc = time.Local
	}
	first := midnight(start, loc)
	last := midnight(end, loc)
	if last.Before(first) {
		return []schema.TrendPoint{}
	}

	counts := make(map[string]int)
	for _, c := range commits {
		counts[c.AuthorTimestamp.In(loc).Format(time.DateOnly)]++
	}

	var points []schema.TrendPoint
	for day := first; !day.After(last); day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc) {
		points = append(points, schema.TrendPoint{Date: day, Commits: counts[day.Format(time.DateOnly)]})
	}
	return points
}

func topConflictedFiles(counts map[string]int, limit int) []schema.FileConflictCount {
	files := make([]schema.FileConflictCount, 0, len(counts))
	for path, n := range counts {
		files = append(files, schema.FileConflictCount{Path: path, Count: n})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Count != files[j].Count {
			return files[i].Count > files[j].Count
		}
		return files[i].Path < files[j].Path
	})
	if len(files) > limit {
		files = files[:limit]
	}
	return files
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// mondayIndex maps time.Weekday (Sunday=0) to Monday=0 ... Sunday=6.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// argmax returns the index of the largest count, preferring the lowest index on ties.
func argmax(counts []int) int {
	best := 0
	for i, n := range counts {
		if n > counts[best] {
			best = i
		}
	}
	return best
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
