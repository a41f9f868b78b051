package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	periodStart = time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
)

func testConfig(t *testing.T, output schema.OutputMode) *contract.Config {
	t.Helper()
	return &contract.Config{
		Output:       output,
		OutputFile:   filepath.Join(t.TempDir(), "out"),
		Precision:    1,
		Width:        120,
		Workers:      2,
		StoreBackend: schema.SQLiteBackend,
	}
}

func readOutput(t *testing.T, cfg *contract.Config) string {
	t.Helper()
	b, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	return string(b)
}

func sampleDashboard() schema.VelocityDashboard {
	return schema.VelocityDashboard{
		RepoPath:    "/src/api",
		GeneratedAt: periodEnd,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		CommitMetrics: schema.CommitMetrics{
			TotalCommits: 3, ConventionalCommits: 2, ConventionalComplianceRate: 2.0 / 3,
			BreakingChanges: 1, AvgCommitsPerDay: 0.43, MostActiveHour: 9, MostActiveDay: 4,
			TypeBreakdown: map[string]int{"feat": 1, "fix": 1},
			PeriodStart:   periodStart, PeriodEnd: periodEnd,
		},
		BranchMetrics: schema.BranchMetrics{TotalBranches: 2, ActiveBranches: 2, BranchSwitches: 2, MostSwitchedBranch: "main"},
		MergeMetrics: schema.MergeMetrics{
			TotalMerges: 2, TotalConflicts: 1, ConflictRate: 0.5, MergeSuccessRate: 0.5, AvgFilesPerConflict: 1,
			MostConflictedFiles: []schema.FileConflictCount{{Path: "src/app.go", Count: 1}},
		},
		Trend: []schema.TrendPoint{
			{Date: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), Commits: 2},
			{Date: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), Commits: 1},
			{Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), Commits: 0},
		},
	}
}

func sampleReport() schema.PortfolioReport {
	return schema.PortfolioReport{
		GeneratedAt:    periodEnd,
		DaysBack:       30,
		AvgHealthScore: 50,
		Repositories: []schema.RepositoryHealth{
			{RepoPath: "/src/api", RepoName: "api", HealthScore: 85, Label: "Excellent",
				Practices: []schema.PracticeKey{schema.PracticeHighCompliance, schema.PracticeLowConflicts},
				Velocity: schema.RepositoryVelocity{TotalCommits: 150, AvgCommitsPerDay: 5, ConventionalComplianceRate: 0.9,
					TrendDirection: schema.TrendIncreasing}},
			{RepoPath: "/src/web", RepoName: "web", HealthScore: 15, Label: "Poor", Practices: []schema.PracticeKey{},
				Velocity: schema.RepositoryVelocity{TotalCommits: 4, AvgCommitsPerDay: 0.1, ConflictRate: 0.5,
					TrendDirection: schema.TrendDecreasing}},
		},
		Failures: []schema.RepositoryFailure{{RepoPath: "/src/broken", Error: "not a git repository"}},
	}
}

func TestWriteDashboard_Text(t *testing.T) {
	cfg := testConfig(t, schema.TextOut)
	require.NoError(t, NewOutWriter().WriteDashboard(sampleDashboard(), cfg, 2*time.Second))

	out := readOutput(t, cfg)
	assert.Contains(t, out, "Velocity dashboard: /src/api")
	assert.Contains(t, out, "2024-03-03 → 2024-03-10")
	assert.Contains(t, out, "66.7%")
	assert.Contains(t, out, "09:00")
	assert.Contains(t, out, "Friday")
	assert.Contains(t, out, "src/app.go")
	assert.Contains(t, out, "2024-03-08")
	assert.Contains(t, out, strings.Repeat("█", 30), "busiest day gets the full bar")
	assert.Contains(t, out, "Store backend: sqlite")
}

func TestWriteDashboard_JSON(t *testing.T) {
	cfg := testConfig(t, schema.JSONOut)
	require.NoError(t, NewOutWriter().WriteDashboard(sampleDashboard(), cfg, time.Second))

	var got schema.VelocityDashboard
	require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &got))
	assert.Equal(t, "/src/api", got.RepoPath)
	assert.Equal(t, 3, got.CommitMetrics.TotalCommits)
	assert.Len(t, got.Trend, 3)
}

func TestWriteDashboard_CSV(t *testing.T) {
	cfg := testConfig(t, schema.CSVOut)
	require.NoError(t, NewOutWriter().WriteDashboard(sampleDashboard(), cfg, time.Second))

	records, err := csv.NewReader(strings.NewReader(readOutput(t, cfg))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"repo_path", "section", "metric", "value"}, records[0])

	found := map[string]string{}
	for _, r := range records[1:] {
		assert.Equal(t, "/src/api", r[0])
		found[r[1]+"/"+r[2]] = r[3]
	}
	assert.Equal(t, "3", found["commits/Total commits"])
	assert.Equal(t, "1", found["types/feat"])
	assert.Equal(t, "main", found["branches/Most switched branch"])
	assert.Equal(t, "50.0%", found["merges/Conflict rate"])
	assert.Equal(t, "1", found["conflicted_files/src/app.go"])
	assert.Equal(t, "2", found["trend/2024-03-08"])
}

func TestCommitRows_EmptyWindowOmitsActivity(t *testing.T) {
	fmtFloat, fmtPct := createFormatters(2)
	rows := commitRows(schema.CommitMetrics{TypeBreakdown: map[string]int{}}, fmtFloat, fmtPct)
	for _, r := range rows {
		assert.NotEqual(t, "Most active hour", r.name)
	}
	assert.Equal(t, "0.00%", rows[2].value)
}

func TestWriteBranchAndMergeMetrics(t *testing.T) {
	cfg := testConfig(t, schema.TextOut)
	require.NoError(t, NewOutWriter().WriteBranchMetrics("/src/api", schema.BranchMetrics{TotalBranches: 1}, cfg))
	out := readOutput(t, cfg)
	assert.Contains(t, out, "Branch activity: /src/api")
	assert.Contains(t, out, "Most switched branch")

	cfg = testConfig(t, schema.JSONOut)
	m := schema.MergeMetrics{TotalMerges: 10, TotalConflicts: 2, ConflictRate: 0.2, MergeSuccessRate: 0.8}
	require.NoError(t, NewOutWriter().WriteMergeMetrics("/src/api", m, cfg))
	var got schema.MergeMetrics
	require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &got))
	assert.Equal(t, 0.8, got.MergeSuccessRate)
}

func TestWriteCommitMetrics_CSV(t *testing.T) {
	cfg := testConfig(t, schema.CSVOut)
	m := schema.CommitMetrics{TotalCommits: 4, TypeBreakdown: map[string]int{"wip": 1}}
	require.NoError(t, NewOutWriter().WriteCommitMetrics("/src/api", m, cfg))
	assert.Contains(t, readOutput(t, cfg), "/src/api,types,wip,1")
}

func TestWritePortfolioHealth_Text(t *testing.T) {
	cfg := testConfig(t, schema.TextOut)
	require.NoError(t, NewOutWriter().WritePortfolioHealth(sampleReport(), cfg, time.Second))

	out := readOutput(t, cfg)
	assert.Contains(t, out, "/src/api")
	assert.Contains(t, out, "Excellent")
	assert.Contains(t, out, "decreasing")
	assert.Contains(t, out, "/src/broken: not a git repository")
	assert.Contains(t, out, "Showing 2 repositories over 30 days (average health: 50.0)")
	assert.Contains(t, out, "with 2 workers")
}

func TestWritePortfolioHealth_JSONAddsRank(t *testing.T) {
	cfg := testConfig(t, schema.JSONOut)
	require.NoError(t, NewOutWriter().WritePortfolioHealth(sampleReport(), cfg, time.Second))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &got))
	repos := got["repositories"].([]any)
	require.Len(t, repos, 2)
	first := repos[0].(map[string]any)
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, "/src/api", first["repo_path"])
	assert.Len(t, got["failures"], 1)
}

func TestWriteHealthCSV(t *testing.T) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	fmtFloat, _ := createFormatters(2)
	require.NoError(t, writeHealthCSV(w, schema.RankRepositories(sampleReport().Repositories), fmtFloat))
	w.Flush()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1,/src/api,api,85.00,Excellent,increasing,150,5.00,0.90,0,0,0.00,high_compliance|low_conflicts", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2,/src/web,web,15.00,Poor"))
}

func TestWritePatterns(t *testing.T) {
	patterns := []schema.CrossProjectPattern{{
		Type: schema.PatternHighConflicts, Severity: "high",
		Repositories: []string{"/src/a", "/src/b"},
		Description:  "2 repositories have a merge conflict rate above 10%",
	}}

	cfg := testConfig(t, schema.TextOut)
	require.NoError(t, NewOutWriter().WritePatterns(patterns, cfg))
	out := readOutput(t, cfg)
	assert.Contains(t, out, "high_conflicts")
	assert.Contains(t, out, "• 2 repositories have a merge conflict rate above 10%")

	cfg = testConfig(t, schema.CSVOut)
	require.NoError(t, NewOutWriter().WritePatterns(patterns, cfg))
	assert.Contains(t, readOutput(t, cfg), "high_conflicts,high,/src/a|/src/b,")

	cfg = testConfig(t, schema.TextOut)
	require.NoError(t, NewOutWriter().WritePatterns(nil, cfg))
	assert.Contains(t, readOutput(t, cfg), "No cross-project patterns")
}

func TestWritePractices(t *testing.T) {
	props := []schema.PracticePropagation{{
		TargetRepo: "/src/web", TargetHealth: 15,
		SourceRepos:      []string{"/src/api"},
		MissingPractices: []schema.PracticeKey{schema.PracticeHighCompliance, schema.PracticeLowConflicts},
	}}

	cfg := testConfig(t, schema.TextOut)
	require.NoError(t, NewOutWriter().WritePractices(props, cfg))
	out := readOutput(t, cfg)
	assert.Contains(t, out, "high_compliance, low_conflicts")
	assert.Contains(t, out, "Learn from: /src/api")

	cfg = testConfig(t, schema.CSVOut)
	require.NoError(t, NewOutWriter().WritePractices(props, cfg))
	assert.Contains(t, readOutput(t, cfg), "/src/web,15.0,high_compliance|low_conflicts,/src/api")
}

func TestWriteRepositories(t *testing.T) {
	cfg := testConfig(t, schema.JSONOut)
	require.NoError(t, NewOutWriter().WriteRepositories([]string{"/src/api", "/src/web"}, cfg))

	var got []map[string]string
	require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "web", got[1]["repo_name"])

	cfg = testConfig(t, schema.TextOut)
	require.NoError(t, NewOutWriter().WriteRepositories(nil, cfg))
	assert.Contains(t, readOutput(t, cfg), "Found 0 repositories")
}

func TestWriteStoreStatus(t *testing.T) {
	status := schema.StoreStatus{
		Backend:        "sqlite",
		Connected:      true,
		TableSizes:     map[string]int64{"git_merge_events": 2, "git_commits": 3},
		LastCommitTime: periodEnd,
	}

	cfg := testConfig(t, schema.TextOut)
	require.NoError(t, NewOutWriter().WriteStoreStatus(status, cfg))
	out := readOutput(t, cfg)
	assert.Contains(t, out, "Store Backend: sqlite")
	assert.Contains(t, out, "Newest Commit: 2024-03-10 12:00:00")
	assert.Less(t, strings.Index(out, "git_commits: 3 rows"), strings.Index(out, "git_merge_events: 2 rows"))

	cfg = testConfig(t, schema.CSVOut)
	require.NoError(t, NewOutWriter().WriteStoreStatus(status, cfg))
	assert.Equal(t, "backend,table,rows\nsqlite,git_commits,3\nsqlite,git_merge_events,2\n", readOutput(t, cfg))
}

func TestGetMaxTablePathWidth(t *testing.T) {
	assert.Equal(t, 15, getMaxTablePathWidth(&contract.Config{Width: 40}, 70))
	assert.Equal(t, 30, getMaxTablePathWidth(&contract.Config{Width: 120}, 70))
	assert.Equal(t, 70, getMaxTablePathWidth(&contract.Config{Width: 400}, 70))
}

func TestBarProgressReporter(t *testing.T) {
	var buf bytes.Buffer
	p := NewBarProgressReporter(&buf, "Analyzing")
	p.SetTotal(3)
	p.Increment()
	p.Increment()
	assert.Equal(t, 2, p.Count())
	assert.Contains(t, buf.String(), "Analyzing")
}
