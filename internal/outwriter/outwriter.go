// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/schema"
)

// OutWriter provides a unified interface for all output operations.
// Every method honors cfg.Output (text, json, csv), cfg.OutputFile and cfg.Precision.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteDashboard prints a single-repository velocity dashboard.
func (ow *OutWriter) WriteDashboard(d schema.VelocityDashboard, cfg *contract.Config, duration time.Duration) error {
	return writeDashboard(d, cfg, duration)
}

// WriteCommitMetrics prints commit velocity and compliance for one repository.
func (ow *OutWriter) WriteCommitMetrics(repoPath string, m schema.CommitMetrics, cfg *contract.Config) error {
	return writeCommitMetrics(repoPath, m, cfg)
}

// WriteBranchMetrics prints branch switching activity for one repository.
func (ow *OutWriter) WriteBranchMetrics(repoPath string, m schema.BranchMetrics, cfg *contract.Config) error {
	return writeBranchMetrics(repoPath, m, cfg)
}

// WriteMergeMetrics prints merge outcomes for one repository.
func (ow *OutWriter) WriteMergeMetrics(repoPath string, m schema.MergeMetrics, cfg *contract.Config) error {
	return writeMergeMetrics(repoPath, m, cfg)
}

// WritePortfolioHealth prints ranked repository health and any failures.
func (ow *OutWriter) WritePortfolioHealth(report schema.PortfolioReport, cfg *contract.Config, duration time.Duration) error {
	return writePortfolioHealth(report, cfg, duration)
}

// WritePatterns prints cross-project patterns.
func (ow *OutWriter) WritePatterns(patterns []schema.CrossProjectPattern, cfg *contract.Config) error {
	return writePatterns(patterns, cfg)
}

// WritePractices prints best-practice propagation suggestions.
func (ow *OutWriter) WritePractices(props []schema.PracticePropagation, cfg *contract.Config) error {
	return writePractices(props, cfg)
}

// WriteRepositories prints discovered repository paths.
func (ow *OutWriter) WriteRepositories(repos []string, cfg *contract.Config) error {
	return writeRepositories(repos, cfg)
}

// WriteStoreStatus prints metrics store statistics.
func (ow *OutWriter) WriteStoreStatus(status schema.StoreStatus, cfg *contract.Config) error {
	return writeStoreStatus(status, cfg)
}
