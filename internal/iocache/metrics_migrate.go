package iocache

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/crackerjack/gitmetrics/schema"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

const migrationsDatabaseName = "gitmetrics"

// MigrationResult describes the outcome of a MigrateMetrics call.
type MigrationResult struct {
	Backend     schema.DatabaseBackend `json:"backend"`
	FromVersion uint                   `json:"from_version"`
	ToVersion   uint                   `json:"to_version"`
	Changed     bool                   `json:"changed"`
}

// MigrateMetrics runs database migrations for the metrics store.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations.
// - If targetVersion > 0, it migrates to the specified version.
func MigrateMetrics(backend schema.DatabaseBackend, connStr string, targetVersion int) (MigrationResult, error) {
	result := MigrationResult{Backend: backend}
	if backend == schema.NoneBackend {
		return result, errors.New("migrations are not supported for the none backend")
	}

	db, err := openMigrationDB(backend, connStr)
	if err != nil {
		return result, err
	}
	m, err := newMigrator(db, backend)
	if err != nil {
		_ = db.Close()
		return result, err
	}
	// Closing the migrator also closes db
	defer func() { _, _ = m.Close() }()

	return applyMigrations(m, backend, targetVersion)
}

// migrateUp brings the store schema to the latest version as part of NewMetricsStore.
// SQLite migrates over the store's own pool (an in-memory database exists only there);
// MySQL and PostgreSQL use a dedicated pool because their drivers pin a connection.
func migrateUp(storeDB *sql.DB, backend schema.DatabaseBackend, connStr string) error {
	if backend == schema.SQLiteBackend {
		m, src, err := newMigratorWithSource(storeDB, backend)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()
		_, err = applyMigrations(m, backend, -1)
		return err
	}

	db, err := openMigrationDB(backend, connStr)
	if err != nil {
		return err
	}
	m, err := newMigrator(db, backend)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() { _, _ = m.Close() }()
	_, err = applyMigrations(m, backend, -1)
	return err
}

// openMigrationDB opens a pool suitable for running multi-statement migration files.
func openMigrationDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	if backend == schema.MySQLBackend {
		cfg, err := gomysql.ParseDSN(connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse MySQL connection string: %w", err)
		}
		cfg.MultiStatements = true
		connStr = cfg.FormatDSN()
	}
	return openDB(backend, connStr)
}

func newMigrator(db *sql.DB, backend schema.DatabaseBackend) (*migrate.Migrate, error) {
	m, _, err := newMigratorWithSource(db, backend)
	return m, err
}

func newMigratorWithSource(db *sql.DB, backend schema.DatabaseBackend) (*migrate.Migrate, source.Driver, error) {
	var driver database.Driver
	var err error

	switch backend {
	case schema.SQLiteBackend:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{DatabaseName: migrationsDatabaseName})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create SQLite migrate driver: %w", err)
		}

	case schema.MySQLBackend:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create MySQL migrate driver: %w", err)
		}

	case schema.PostgreSQLBackend:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{MultiStatementEnabled: true})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create PostgreSQL migrate driver: %w", err)
		}

	default:
		return nil, nil, fmt.Errorf("unsupported backend: %s", backend)
	}

	// Each backend has its own dialect directory
	migrationFS, err := fs.Sub(migrationsFS, "migrations/"+string(backend))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to access migrations directory: %w", err)
	}

	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, migrationsDatabaseName, driver)
	if err != nil {
		_ = sourceDriver.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, sourceDriver, nil
}

func applyMigrations(m *migrate.Migrate, backend schema.DatabaseBackend, targetVersion int) (MigrationResult, error) {
	result := MigrationResult{Backend: backend}

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return result, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return result, fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}
	result.FromVersion = currentVersion

	switch {
	case targetVersion < 0:
		err = m.Up()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return result, fmt.Errorf("failed to migrate to latest version: %w", err)
		}
	case targetVersion == 0:
		err = m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return result, fmt.Errorf("failed to roll back to version 0: %w", err)
		}
	default:
		err = m.Migrate(uint(targetVersion))
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return result, fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
		}
	}
	result.Changed = !errors.Is(err, migrate.ErrNoChange)

	newVersion, _, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return result, fmt.Errorf("failed to read migration version: %w", verr)
	}
	result.ToVersion = newVersion
	return result, nil
}
