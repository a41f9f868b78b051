package iocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/logging"
	"github.com/crackerjack/gitmetrics/schema"
)

const dateLayout = "2006-01-02"

// MetricsStoreImpl persists git metrics using one of the supported SQL backends.
// A NoneBackend store accepts every write and returns empty reads.
type MetricsStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	log     *logging.Logger
}

var _ contract.MetricsStore = &MetricsStoreImpl{} // Compile-time check

// NewMetricsStore opens the backend and migrates its schema to the latest version.
func NewMetricsStore(backend schema.DatabaseBackend, connStr string) (contract.MetricsStore, error) {
	if backend == "" {
		backend = schema.SQLiteBackend
	}
	if backend == schema.NoneBackend {
		return &MetricsStoreImpl{backend: backend, log: storeLogger()}, nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if err := migrateUp(db, backend, connStr); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s metrics schema: %w. Run 'gitmetrics store migrate' to inspect the schema version", backend, err)
	}

	return &MetricsStoreImpl{db: db, backend: backend, log: storeLogger()}, nil
}

func (s *MetricsStoreImpl) disabled() bool {
	return s.backend == schema.NoneBackend || s.db == nil
}

// StoreCommits implements contract.MetricsStore.
func (s *MetricsStoreImpl) StoreCommits(ctx context.Context, repoPath string, commits []schema.CommitData) (int, error) {
	if s.disabled() || len(commits) == 0 {
		return 0, nil
	}
	query := insertIgnoreQuery(CommitsTable, []string{
		"repo_path", "commit_hash", "author_time", "author_tz_offset", "author_name", "author_email",
		"message", "is_merge", "is_conventional", "conventional_type", "conventional_scope", "has_breaking_change",
	}, s.backend)

	return s.insertEach(ctx, query, len(commits), func(i int) ([]any, map[string]any) {
		c := commits[i]
		sec, offset := splitTime(c.AuthorTimestamp)
		return []any{
				repoPath, c.Hash, sec, offset, c.AuthorName, c.AuthorEmail,
				c.Message, c.IsMerge, c.IsConventional, c.ConventionalType, c.ConventionalScope, c.HasBreakingChange,
			}, map[string]any{
				"repo": repoPath, "commit": c.Hash,
			}
	})
}

// StoreBranchEvents implements contract.MetricsStore.
func (s *MetricsStoreImpl) StoreBranchEvents(ctx context.Context, repoPath string, events []schema.BranchEvent) (int, error) {
	if s.disabled() || len(events) == 0 {
		return 0, nil
	}
	query := insertIgnoreQuery(BranchEventsTable, []string{
		"repo_path", "branch_name", "event_type", "event_time", "event_tz_offset", "commit_hash",
	}, s.backend)

	return s.insertEach(ctx, query, len(events), func(i int) ([]any, map[string]any) {
		ev := events[i]
		sec, offset := splitTime(ev.Timestamp)
		return []any{repoPath, ev.BranchName, string(ev.EventType), sec, offset, ev.CommitHash},
			map[string]any{"repo": repoPath, "branch": ev.BranchName}
	})
}

// StoreMergeEvents implements contract.MetricsStore.
func (s *MetricsStoreImpl) StoreMergeEvents(ctx context.Context, repoPath string, merges []schema.MergeEvent) (int, error) {
	if s.disabled() || len(merges) == 0 {
		return 0, nil
	}
	query := insertIgnoreQuery(MergeEventsTable, []string{
		"repo_path", "merge_hash", "merge_time", "merge_tz_offset", "merge_type", "source_branch",
		"target_branch", "has_conflicts", "conflict_files", "parent_hashes", "detection_method",
	}, s.backend)

	return s.insertEach(ctx, query, len(merges), func(i int) ([]any, map[string]any) {
		m := merges[i]
		sec, offset := splitTime(m.MergeTimestamp)
		files := m.ConflictFiles
		if files == nil {
			files = []string{}
		}
		filesJSON, _ := json.Marshal(files)
		return []any{
				repoPath, m.MergeHash, sec, offset, string(m.MergeType), m.SourceBranch,
				m.TargetBranch, m.HasConflicts, string(filesJSON), strings.Join(m.ParentHashes, " "), string(m.DetectionMethod),
			}, map[string]any{
				"repo": repoPath, "merge": m.MergeHash,
			}
	})
}

// insertEach executes an insert-or-ignore statement once per row and counts new rows.
// A failing row is logged and skipped; only context cancellation aborts the batch.
func (s *MetricsStoreImpl) insertEach(ctx context.Context, query string, n int, row func(i int) ([]any, map[string]any)) (int, error) {
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for i := range n {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		args, fields := row(i)
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			s.log.Err(err).Fields(fields).Msg("failed to store row, skipping")
			continue
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// StoreSnapshot implements contract.MetricsStore.
func (s *MetricsStoreImpl) StoreSnapshot(ctx context.Context, dashboard schema.VelocityDashboard) error {
	if s.disabled() {
		return nil
	}
	payload, err := json.Marshal(dashboard)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard snapshot: %w", err)
	}
	query := insertIgnoreQuery(SnapshotsTable, []string{
		"repo_path", "snapshot_date", "period_start", "period_end", "generated_at", "payload",
	}, s.backend)

	_, err = s.db.ExecContext(ctx, query,
		dashboard.RepoPath,
		dashboard.GeneratedAt.Format(dateLayout),
		dashboard.PeriodStart.Unix(),
		dashboard.PeriodEnd.Unix(),
		dashboard.GeneratedAt.Unix(),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot for %s: %w", dashboard.RepoPath, err)
	}
	return nil
}

// StoreRepositoryHealth implements contract.MetricsStore.
func (s *MetricsStoreImpl) StoreRepositoryHealth(ctx context.Context, health schema.RepositoryHealth, recordedAt time.Time) error {
	if s.disabled() {
		return nil
	}
	practices := make([]string, 0, len(health.Practices))
	for _, p := range health.Practices {
		practices = append(practices, string(p))
	}
	v := health.Velocity

	_, err := s.db.ExecContext(ctx, s.healthUpsertQuery(),
		health.RepoPath,
		recordedAt.Format(dateLayout),
		recordedAt.Unix(),
		health.RepoName,
		health.HealthScore,
		health.Label,
		string(v.TrendDirection),
		v.TotalCommits,
		v.AvgCommitsPerDay,
		v.ConventionalComplianceRate,
		v.ConflictRate,
		v.BreakingChanges,
		v.TotalMerges,
		strings.Join(practices, ","),
	)
	if err != nil {
		return fmt.Errorf("failed to store health for %s: %w", health.RepoPath, err)
	}
	return nil
}

var healthColumns = []string{
	"repo_path", "recorded_date", "recorded_at", "repo_name", "health_score", "label", "trend_direction",
	"total_commits", "avg_commits_per_day", "compliance_rate", "conflict_rate", "breaking_changes",
	"total_merges", "practices",
}

// healthUpsertQuery returns the UPSERT query for the backend; one row per repository per day.
func (s *MetricsStoreImpl) healthUpsertQuery() string {
	table := quoteTableName(HealthTable, s.backend)
	cols := strings.Join(healthColumns, ", ")
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(healthColumns)), ", ")

	updates := make([]string, 0, len(healthColumns)-2)
	for _, c := range healthColumns[2:] {
		switch s.backend {
		case schema.MySQLBackend:
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", c, c))
		default:
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}

	var q string
	switch s.backend {
	case schema.MySQLBackend:
		q = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
			table, cols, marks, strings.Join(updates, ", "))
	default: // SQLite and PostgreSQL
		q = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (repo_path, recorded_date) DO UPDATE SET %s",
			table, cols, marks, strings.Join(updates, ", "))
	}
	return rebind(q, s.backend)
}

// QueryCommits implements contract.MetricsStore.
func (s *MetricsStoreImpl) QueryCommits(ctx context.Context, repoPath string, since, until time.Time) ([]schema.CommitData, error) {
	if s.disabled() {
		return nil, nil
	}
	where, args := windowClause("author_time", repoPath, since, until)
	query := rebind(fmt.Sprintf(`SELECT commit_hash, author_time, author_tz_offset, author_name, author_email, message,
		is_merge, is_conventional, conventional_type, conventional_scope, has_breaking_change
		FROM %s WHERE %s ORDER BY author_time ASC, commit_hash ASC`,
		quoteTableName(CommitsTable, s.backend), where), s.backend)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var commits []schema.CommitData
	for rows.Next() {
		var c schema.CommitData
		var sec int64
		var offset int
		if err := rows.Scan(&c.Hash, &sec, &offset, &c.AuthorName, &c.AuthorEmail, &c.Message,
			&c.IsMerge, &c.IsConventional, &c.ConventionalType, &c.ConventionalScope, &c.HasBreakingChange); err != nil {
			return nil, fmt.Errorf("failed to scan commit row: %w", err)
		}
		c.AuthorTimestamp = joinTime(sec, offset)
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commits: %w", err)
	}
	return commits, nil
}

// QueryMergeEvents implements contract.MetricsStore.
func (s *MetricsStoreImpl) QueryMergeEvents(ctx context.Context, repoPath string, since, until time.Time) ([]schema.MergeEvent, error) {
	if s.disabled() {
		return nil, nil
	}
	where, args := windowClause("merge_time", repoPath, since, until)
	query := rebind(fmt.Sprintf(`SELECT merge_hash, merge_time, merge_tz_offset, merge_type, source_branch, target_branch,
		has_conflicts, conflict_files, parent_hashes, detection_method
		FROM %s WHERE %s ORDER BY merge_time ASC, merge_hash ASC`,
		quoteTableName(MergeEventsTable, s.backend), where), s.backend)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query merge events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var merges []schema.MergeEvent
	for rows.Next() {
		var m schema.MergeEvent
		var sec int64
		var offset int
		var mergeType, files, parents, detection string
		if err := rows.Scan(&m.MergeHash, &sec, &offset, &mergeType, &m.SourceBranch, &m.TargetBranch,
			&m.HasConflicts, &files, &parents, &detection); err != nil {
			return nil, fmt.Errorf("failed to scan merge row: %w", err)
		}
		m.MergeTimestamp = joinTime(sec, offset)
		m.MergeType = schema.MergeType(mergeType)
		m.DetectionMethod = schema.ConflictDetection(detection)
		m.ParentHashes = strings.Fields(parents)
		m.ConflictFiles = []string{}
		if files != "" {
			if err := json.Unmarshal([]byte(files), &m.ConflictFiles); err != nil {
				return nil, fmt.Errorf("failed to decode conflict files of %s: %w", m.MergeHash, err)
			}
		}
		merges = append(merges, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating merge events: %w", err)
	}
	return merges, nil
}

// LatestCommitTime implements contract.MetricsStore.
func (s *MetricsStoreImpl) LatestCommitTime(ctx context.Context, repoPath string) (time.Time, error) {
	if s.disabled() {
		return time.Time{}, nil
	}
	query := rebind(fmt.Sprintf(
		"SELECT author_time, author_tz_offset FROM %s WHERE repo_path = ? ORDER BY author_time DESC LIMIT 1",
		quoteTableName(CommitsTable, s.backend)), s.backend)

	var sec int64
	var offset int
	err := s.db.QueryRowContext(ctx, query, repoPath).Scan(&sec, &offset)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest commit time: %w", err)
	}
	return joinTime(sec, offset), nil
}

// ListRepositories implements contract.MetricsStore.
func (s *MetricsStoreImpl) ListRepositories(ctx context.Context) ([]string, error) {
	if s.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT repo_path FROM %s UNION SELECT repo_path FROM %s ORDER BY repo_path",
		quoteTableName(CommitsTable, s.backend), quoteTableName(MergeEventsTable, s.backend))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var repos []string
	for rows.Next() {
		var repo string
		if err := rows.Scan(&repo); err != nil {
			return nil, fmt.Errorf("failed to scan repository row: %w", err)
		}
		repos = append(repos, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repositories: %w", err)
	}
	return repos, nil
}

// GetStatus implements contract.MetricsStore.
func (s *MetricsStoreImpl) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}
	if s.disabled() {
		return status, nil
	}

	for _, table := range AllTables {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, s.backend))
		if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to count rows in %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	if status.TableSizes[CommitsTable] > 0 {
		var sec sql.NullInt64
		query := fmt.Sprintf("SELECT MAX(author_time) FROM %s", quoteTableName(CommitsTable, s.backend))
		if err := s.db.QueryRowContext(ctx, query).Scan(&sec); err != nil {
			return status, fmt.Errorf("failed to get last commit time: %w", err)
		}
		if sec.Valid {
			status.LastCommitTime = time.Unix(sec.Int64, 0)
		}
	}
	return status, nil
}

// Close closes the underlying DB connection.
func (s *MetricsStoreImpl) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// windowClause filters a repository's rows by a unix-seconds column; zero bounds are open.
func windowClause(column, repoPath string, since, until time.Time) (string, []any) {
	clauses := []string{"repo_path = ?"}
	args := []any{repoPath}
	if !since.IsZero() {
		clauses = append(clauses, column+" >= ?")
		args = append(args, since.Unix())
	}
	if !until.IsZero() {
		clauses = append(clauses, column+" <= ?")
		args = append(args, until.Unix())
	}
	return strings.Join(clauses, " AND "), args
}

// splitTime stores an instant as unix seconds plus the author's UTC offset in seconds.
func splitTime(t time.Time) (int64, int) {
	_, offset := t.Zone()
	return t.Unix(), offset
}

func joinTime(sec int64, offset int) time.Time {
	return time.Unix(sec, 0).In(time.FixedZone("", offset))
}
