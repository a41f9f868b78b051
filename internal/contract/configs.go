package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/crackerjack/gitmetrics/schema"
)

// Default values for configuration.
const (
	DefaultCommitWindowDays = 30
	DefaultBranchWindowDays = 7
	DefaultPrecision        = 1
	DefaultMinPatternRepos  = 2
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// HealthWeightsRaw holds the optional health score coefficients from the YAML config file.
type HealthWeightsRaw struct {
	Compliance      *float64 `mapstructure:"compliance"`
	Velocity        *float64 `mapstructure:"velocity"`
	Conflicts       *float64 `mapstructure:"conflicts"`
	BreakingPenalty *float64 `mapstructure:"breaking_penalty"`
}

// HealthRawInput holds the health section of the YAML config file.
type HealthRawInput struct {
	Weights HealthWeightsRaw `mapstructure:"weights"`
}

// PatternsRawInput holds the patterns section of the YAML config file.
type PatternsRawInput struct {
	MinRepos int `mapstructure:"min-repos"`
}

// Config holds the runtime configuration for a gitmetrics invocation.
// This struct is the "final, validated" config.
type Config struct {
	RepoPaths []string // Absolute repository paths from positional args

	StartTime time.Time // Explicit window start (zero = use DaysBack)
	EndTime   time.Time // Explicit window end (zero = now)
	DaysBack  int       // Window length when no explicit start is given

	Timeout           time.Duration
	ConflictDetection schema.ConflictDetection

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	Workers    int
	UseColors  bool
	FromCache  bool

	LogLevel  string
	LogFormat string

	HealthWeights   schema.HealthWeights
	MinPatternRepos int
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	RepoPathStrs []string

	// --- Fields from rootCmd.PersistentFlags() ---
	Since             string `mapstructure:"since"`
	Until             string `mapstructure:"until"`
	Days              int    `mapstructure:"days"`
	Timeout           string `mapstructure:"timeout"`
	ConflictDetection string `mapstructure:"conflict-detection"`
	StoreBackend      string `mapstructure:"store-backend"`
	StoreDBConnect    string `mapstructure:"store-db-connect"`
	Output            string `mapstructure:"output"`
	OutputFile        string `mapstructure:"output-file"`
	Precision         int    `mapstructure:"precision"`
	Width             int    `mapstructure:"width"`
	Workers           int    `mapstructure:"workers"`
	LogLevel          string `mapstructure:"log-level"`
	LogFormat         string `mapstructure:"log-format"`
	Color             string `mapstructure:"color"`

	// --- Fields from portfolioCmd.PersistentFlags() ---
	FromCache bool `mapstructure:"from-cache"`

	// --- Sections from config file ---
	Health   HealthRawInput   `mapstructure:"health"`
	Patterns PatternsRawInput `mapstructure:"patterns"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.RepoPaths != nil {
		clone.RepoPaths = make([]string, len(c.RepoPaths))
		copy(clone.RepoPaths, c.RepoPaths)
	}
	return &clone
}

// Window returns the effective [start, end] analysis window relative to now.
func (c *Config) Window(now time.Time) (time.Time, time.Time) {
	end := c.EndTime
	if end.IsZero() {
		end = now
	}
	start := c.StartTime
	if start.IsZero() {
		days := c.DaysBack
		if days <= 0 {
			days = DefaultCommitWindowDays
		}
		start = end.AddDate(0, 0, -days)
	}
	return start, end
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input, time.Now()); err != nil {
		return err
	}
	if err := processHealthSettings(cfg, input); err != nil {
		return err
	}
	return resolveRepoPaths(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all non-path, non-time fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.FromCache = input.FromCache
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(input.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(input.LogFormat))

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	if input.Width < 0 {
		return fmt.Errorf("width must not be negative (received %d)", input.Width)
	}
	cfg.Width = input.Width

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	cfg.ConflictDetection = schema.ConflictDetection(strings.ToLower(input.ConflictDetection))
	if cfg.ConflictDetection == "" {
		cfg.ConflictDetection = schema.TreeDetection
	}
	if _, ok := schema.ValidConflictDetections[cfg.ConflictDetection]; !ok {
		return fmt.Errorf("invalid conflict detection '%s'. must be tree, parents", input.ConflictDetection)
	}

	cfg.Timeout = DefaultGitTimeout
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout '%s'. Expected a duration such as 30s or 2m: %w", input.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive (received %s)", input.Timeout)
		}
		cfg.Timeout = d
	}

	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	return ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect)
}

// processTimeRange resolves --since, --until and --days into the window fields.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	if input.Days < 0 {
		return fmt.Errorf("days must not be negative (received %d)", input.Days)
	}
	cfg.DaysBack = input.Days
	if cfg.DaysBack == 0 {
		cfg.DaysBack = DefaultCommitWindowDays
	}

	if input.Since != "" {
		t, err := ParseTimeInput(input.Since, now)
		if err != nil {
			return fmt.Errorf("invalid since value '%s'. Expected ISO8601 or a phrase like '2 weeks ago': %w", input.Since, err)
		}
		cfg.StartTime = t
	}
	if input.Until != "" {
		t, err := ParseTimeInput(input.Until, now)
		if err != nil {
			return fmt.Errorf("invalid until value '%s'. Expected ISO8601 or a phrase like 'yesterday': %w", input.Until, err)
		}
		cfg.EndTime = t
	}

	if !cfg.StartTime.IsZero() && !cfg.EndTime.IsZero() && cfg.StartTime.After(cfg.EndTime) {
		return fmt.Errorf("since (%s) cannot be after until (%s)", cfg.StartTime.Format(DateTimeFormat), cfg.EndTime.Format(DateTimeFormat))
	}
	return nil
}

// processHealthSettings merges custom health weights over the defaults.
func processHealthSettings(cfg *Config, input *ConfigRawInput) error {
	w := schema.DefaultHealthWeights()
	raw := input.Health.Weights
	if raw.Compliance != nil {
		w.Compliance = *raw.Compliance
	}
	if raw.Velocity != nil {
		w.Velocity = *raw.Velocity
	}
	if raw.Conflicts != nil {
		w.Conflicts = *raw.Conflicts
	}
	if raw.BreakingPenalty != nil {
		w.BreakingPenalty = *raw.BreakingPenalty
	}
	if w.Compliance < 0 || w.Velocity < 0 || w.Conflicts < 0 || w.BreakingPenalty < 0 {
		return fmt.Errorf("health weights must not be negative (received %+v)", w)
	}
	if sum := w.Compliance + w.Velocity + w.Conflicts; sum > 100 {
		return fmt.Errorf("health weights compliance+velocity+conflicts cannot exceed 100, got %.1f", sum)
	}
	cfg.HealthWeights = w

	cfg.MinPatternRepos = input.Patterns.MinRepos
	if cfg.MinPatternRepos == 0 {
		cfg.MinPatternRepos = DefaultMinPatternRepos
	}
	if cfg.MinPatternRepos < 1 {
		return fmt.Errorf("patterns.min-repos must be at least 1 (received %d)", cfg.MinPatternRepos)
	}
	return nil
}

// resolveRepoPaths turns positional arguments into absolute repository paths.
// Existence of .git is checked later by the collector.
func resolveRepoPaths(cfg *Config, input *ConfigRawInput) error {
	paths := input.RepoPathStrs
	if len(paths) == 0 {
		paths = []string{"."}
	}
	cfg.RepoPaths = make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("cannot resolve repository path %q: %w", p, err)
		}
		abs = filepath.Clean(abs)
		if _, dup := seen[abs]; dup {
			continue
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			return fmt.Errorf("repository path %q is not a directory", p)
		}
		seen[abs] = struct{}{}
		cfg.RepoPaths = append(cfg.RepoPaths, abs)
	}
	return nil
}
