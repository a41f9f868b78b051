package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/crackerjack/gitmetrics/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitAt(ts time.Time, typ string, conventional, breaking bool) schema.CommitData {
	return schema.CommitData{
		Hash:              fmt.Sprintf("%x", ts.UnixNano()),
		AuthorTimestamp:   ts,
		IsConventional:    conventional,
		ConventionalType:  typ,
		HasBreakingChange: breaking,
	}
}

func TestComputeCommitMetrics_Empty(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m := ComputeCommitMetrics(nil, start, start)

	assert.Equal(t, 0, m.TotalCommits)
	assert.Equal(t, 0.0, m.ConventionalComplianceRate)
	assert.Equal(t, 0.0, m.AvgCommitsPerDay)
	assert.Equal(t, 0, m.MostActiveHour)
	assert.Equal(t, 0, m.MostActiveDay)
	assert.NotNil(t, m.TypeBreakdown)
}

func TestComputeCommitMetrics_HourTieGoesToLowest(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) // Monday
	commits := []schema.CommitData{
		commitAt(day.Add(14*time.Hour), "", false, false),
		commitAt(day.Add(9*time.Hour), "", false, false),
		commitAt(day.Add(14*time.Hour+time.Minute), "", false, false),
		commitAt(day.Add(9*time.Hour+time.Minute), "", false, false),
	}
	m := ComputeCommitMetrics(commits, day, day.AddDate(0, 0, 1))

	assert.Equal(t, 9, m.MostActiveHour)
	assert.Equal(t, 0, m.MostActiveDay, "Monday is 0")
}

func TestComputeCommitMetrics_Rates(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 14)
	sunday := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)
	commits := []schema.CommitData{
		commitAt(sunday, "feat", true, false),
		commitAt(sunday.Add(time.Minute), "fix", true, true),
		commitAt(sunday.Add(2*time.Minute), "feat", true, false),
		commitAt(sunday.Add(3*time.Minute), "wibble", false, false),
		commitAt(sunday.Add(4*time.Minute), "", false, false),
	}
	m := ComputeCommitMetrics(commits, start, end)

	assert.Equal(t, 5, m.TotalCommits)
	assert.Equal(t, 3, m.ConventionalCommits)
	assert.InDelta(t, 0.6, m.ConventionalComplianceRate, 1e-9)
	assert.Equal(t, 1, m.BreakingChanges)
	assert.InDelta(t, 5.0/14.0, m.AvgCommitsPerDay, 1e-9)
	assert.InDelta(t, 2.5, m.AvgCommitsPerWeek, 1e-9)
	assert.InDelta(t, 5.0/(14*24), m.AvgCommitsPerHour, 1e-9)
	assert.Equal(t, 18, m.MostActiveHour)
	assert.Equal(t, 6, m.MostActiveDay, "Sunday is 6")
	assert.Equal(t, map[string]int{"feat": 2, "fix": 1, "wibble": 1}, m.TypeBreakdown)
}

func TestComputeCommitMetrics_ElapsedFloors(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	commits := []schema.CommitData{
		commitAt(start, "", false, false),
		commitAt(start.Add(time.Minute), "", false, false),
	}
	m := ComputeCommitMetrics(commits, start, start.Add(10*time.Minute))

	assert.Equal(t, 2.0, m.AvgCommitsPerHour)
	assert.Equal(t, 2.0, m.AvgCommitsPerDay)
	assert.Equal(t, 2.0, m.AvgCommitsPerWeek)
}

func TestComputeCommitMetrics_UsesAuthorClock(t *testing.T) {
	zone := time.FixedZone("", -5*3600)
	ts := time.Date(2024, 3, 4, 22, 0, 0, 0, zone) // Tuesday 03:00 UTC
	m := ComputeCommitMetrics([]schema.CommitData{commitAt(ts, "", false, false)}, ts, ts)

	assert.Equal(t, 22, m.MostActiveHour)
	assert.Equal(t, 0, m.MostActiveDay)
}

func TestComputeBranchMetrics(t *testing.T) {
	ts := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	events := []schema.BranchEvent{
		{BranchName: "main", EventType: schema.BranchCheckout, Timestamp: ts},
		{BranchName: "topic", EventType: schema.BranchCheckout, Timestamp: ts},
		{BranchName: "main", EventType: schema.BranchCheckout, Timestamp: ts},
		{BranchName: "topic", EventType: schema.BranchCheckout, Timestamp: ts},
		{BranchName: "gone", EventType: schema.BranchDeleted, Timestamp: ts},
	}
	branches := map[string]string{"main": "a", "topic": "b", "old": "c"}
	m := ComputeBranchMetrics(events, branches, ts, ts)

	assert.Equal(t, 3, m.TotalBranches)
	assert.Equal(t, 4, m.BranchSwitches)
	assert.Equal(t, 2, m.ActiveBranches)
	assert.Equal(t, "main", m.MostSwitchedBranch, "ties go to the lexically lowest name")
	assert.Equal(t, 0, m.BranchesCreated)
	assert.Equal(t, 0, m.BranchesDeleted)
}

func TestComputeBranchMetrics_NoEvents(t *testing.T) {
	m := ComputeBranchMetrics(nil, nil, time.Time{}, time.Time{})
	assert.Equal(t, 0, m.BranchSwitches)
	assert.Empty(t, m.MostSwitchedBranch)
}

func TestComputeMergeMetrics_TenMergesTwoConflicts(t *testing.T) {
	ts := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	var merges []schema.MergeEvent
	for i := range 10 {
		mg := schema.MergeEvent{MergeHash: fmt.Sprintf("m%d", i), MergeTimestamp: ts, MergeType: schema.MergeTypeMerge}
		if i < 2 {
			mg.HasConflicts = true
			mg.ConflictFiles = []string{"shared.go", fmt.Sprintf("only%d.go", i)}
		}
		merges = append(merges, mg)
	}
	m := ComputeMergeMetrics(merges, ts, ts)

	assert.Equal(t, 10, m.TotalMerges)
	assert.Equal(t, 2, m.TotalConflicts)
	assert.InDelta(t, 0.2, m.ConflictRate, 1e-9)
	assert.InDelta(t, 0.8, m.MergeSuccessRate, 1e-9)
	assert.InDelta(t, 2.0, m.AvgFilesPerConflict, 1e-9)
	require.Len(t, m.MostConflictedFiles, 3)
	assert.Equal(t, schema.FileConflictCount{Path: "shared.go", Count: 2}, m.MostConflictedFiles[0])
	assert.Equal(t, "only0.go", m.MostConflictedFiles[1].Path)
	assert.Equal(t, "only1.go", m.MostConflictedFiles[2].Path)
}

func TestComputeMergeMetrics_NoMerges(t *testing.T) {
	m := ComputeMergeMetrics(nil, time.Time{}, time.Time{})
	assert.Equal(t, 0.0, m.ConflictRate)
	assert.Equal(t, 1.0, m.MergeSuccessRate)
	assert.Equal(t, 0.0, m.AvgFilesPerConflict)
	assert.Empty(t, m.MostConflictedFiles)
}

func TestComputeMergeMetrics_TopTenLimit(t *testing.T) {
	var files []string
	for i := range 15 {
		files = append(files, fmt.Sprintf("f%02d.go", i))
	}
	merges := []schema.MergeEvent{{MergeHash: "m", MergeType: schema.MergeTypeMerge, HasConflicts: true, ConflictFiles: files}}
	m := ComputeMergeMetrics(merges, time.Time{}, time.Time{})

	require.Len(t, m.MostConflictedFiles, 10)
	assert.Equal(t, "f00.go", m.MostConflictedFiles[0].Path)
	assert.Equal(t, "f09.go", m.MostConflictedFiles[9].Path)
	assert.Equal(t, 1.0, m.ConflictRate)
	assert.Equal(t, 0.0, m.MergeSuccessRate)
}

func TestDailyTrend_ZeroFilled(t *testing.T) {
	start := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	commits := []schema.CommitData{
		commitAt(time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC), "", false, false),
		commitAt(time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC), "", false, false),
		commitAt(time.Date(2024, 3, 3, 23, 30, 0, 0, time.FixedZone("", -3600)), "", false, false), // 4th in UTC
	}
	trend := DailyTrend(commits, start, end, time.UTC)

	require.Len(t, trend, 4)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), trend[0].Date)
	assert.Equal(t, []int{2, 0, 0, 1}, []int{trend[0].Commits, trend[1].Commits, trend[2].Commits, trend[3].Commits})
}

func TestDailyTrend_EmptyWindow(t *testing.T) {
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	assert.Empty(t, DailyTrend(nil, start, start.AddDate(0, 0, -2), time.UTC))
	assert.Len(t, DailyTrend(nil, start, start, time.UTC), 1)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(1.5))
	assert.Equal(t, 0.25, clamp01(0.25))
}
