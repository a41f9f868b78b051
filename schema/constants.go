package schema

// Custom string types for type safety.
type (
	// BranchEventType represents the kind of branch movement seen in the reflog.
	BranchEventType string

	// MergeType represents how a line of history was integrated.
	MergeType string

	// TrendDirection represents the velocity direction of a repository.
	TrendDirection string

	// PatternType represents a condition shared by several repositories.
	PatternType string

	// PracticeKey represents a healthy habit observed in a repository.
	PracticeKey string

	// ConflictDetection represents the strategy used to flag merge conflicts.
	ConflictDetection string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for metrics storage.
	DatabaseBackend string
)

// All branch event types.
const (
	BranchCreated  BranchEventType = "created"
	BranchDeleted  BranchEventType = "deleted"
	BranchCheckout BranchEventType = "checkout"
)

// All merge types.
const (
	MergeTypeMerge      MergeType = "merge"
	MergeTypeRebase     MergeType = "rebase"
	MergeTypeCherryPick MergeType = "cherry-pick"
)

// All trend directions.
const (
	TrendIncreasing TrendDirection = "increasing"
	TrendStable     TrendDirection = "stable"
	TrendDecreasing TrendDirection = "decreasing"
)

// All cross-project pattern types.
const (
	PatternDecliningVelocity PatternType = "declining_velocity"
	PatternHighConflicts     PatternType = "high_conflicts"
	PatternPoorCompliance    PatternType = "poor_compliance"
)

// All practices tracked for propagation.
const (
	PracticeHighCompliance PracticeKey = "high_compliance"
	PracticeHighVelocity   PracticeKey = "high_velocity"
	PracticeLowConflicts   PracticeKey = "low_conflicts"
)

// All conflict detection strategies.
const (
	// TreeDetection re-merges the parents and compares against the recorded merge tree.
	TreeDetection ConflictDetection = "tree" // default
	// ParentsDetection flags every merge with two or more parents.
	ParentsDetection ConflictDetection = "parents"
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
	CSVOut  OutputMode = "csv"
)

// All storage backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// AllPractices lists every practice in display order.
var AllPractices = []PracticeKey{PracticeHighCompliance, PracticeHighVelocity, PracticeLowConflicts}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	JSONOut: {},
	CSVOut:  {},
}

// ValidDatabaseBackends lists all valid storage backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidConflictDetections lists all valid conflict detection strategies.
var ValidConflictDetections = map[ConflictDetection]struct{}{
	TreeDetection:    {},
	ParentsDetection: {},
}
