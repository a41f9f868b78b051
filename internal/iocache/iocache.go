// Package iocache persists git metrics records in a SQL database.
package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/logging"
	"github.com/crackerjack/gitmetrics/schema"
	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names managed by the metrics migrations.
const (
	CommitsTable      = "git_commits"
	BranchEventsTable = "git_branch_events"
	MergeEventsTable  = "git_merge_events"
	SnapshotsTable    = "git_metrics_snapshots"
	HealthTable       = "repository_health"
)

// AllTables lists the metrics tables in creation order.
var AllTables = []string{CommitsTable, BranchEventsTable, MergeEventsTable, SnapshotsTable, HealthTable}

// sqlitePragmas are appended to SQLite paths that carry no query string of their own.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// openDB opens and pings a connection pool for the backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = contract.GetPortfolioDBFilePath(".")
		}
		if err := ensureParentDir(dbPath); err != nil {
			return nil, err
		}
		db, err = sql.Open("sqlite", sqliteDSN(dbPath))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store at %q: %w. Ensure the directory is writable", dbPath, err)
		}
		// A single connection avoids "database is locked" errors between writers of the same file
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname
		db, err = sql.Open("mysql", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL store: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=mysecretpassword dbname=postgres
		db, err = sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL store: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	default:
		return nil, fmt.Errorf("unsupported store backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}
	return db, nil
}

// sqliteDSN adds the WAL and busy-timeout pragmas unless the caller supplied parameters.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?" + sqlitePragmas
}

func ensureParentDir(dbPath string) error {
	if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file:") {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory %q: %w", dir, err)
	}
	return nil
}

// quoteTableName quotes a table name for the backend.
func quoteTableName(tableName string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return "`" + tableName + "`"
	default: // SQLite and PostgreSQL
		return `"` + tableName + `"`
	}
}

// rebind rewrites '?' placeholders to '$n' for PostgreSQL.
func rebind(query string, backend schema.DatabaseBackend) string {
	if backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// insertIgnoreQuery builds an insert that silently skips rows violating a unique key.
func insertIgnoreQuery(tableName string, columns []string, backend schema.DatabaseBackend) string {
	table := quoteTableName(tableName, backend)
	cols := strings.Join(columns, ", ")
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	var q string
	switch backend {
	case schema.MySQLBackend:
		q = fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", table, cols, marks)
	case schema.PostgreSQLBackend:
		q = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING", table, cols, marks)
	default: // SQLite
		q = fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", table, cols, marks)
	}
	return rebind(q, backend)
}

func storeLogger() *logging.Logger {
	return logging.Component("iocache")
}
