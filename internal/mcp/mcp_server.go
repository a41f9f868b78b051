// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"
	"time"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/logging"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StoreOpener opens the metrics store used for a repository. An empty
// repoPath asks for the portfolio store. A nil store disables persistence.
type StoreOpener func(repoPath string) (contract.MetricsStore, error)

// Deps are the collaborators every tool handler uses.
type Deps struct {
	Exec      contract.SubprocessExecutor
	OpenStore StoreOpener
	Now       func() time.Time // Defaults to time.Now
}

// NewMCPServer initializes and configures the gitmetrics MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Git Metrics Server",
		version,
		server.WithLogging(),
	)

	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.OpenStore == nil {
		deps.OpenStore = func(string) (contract.MetricsStore, error) { return nil, nil }
	}
	h := &toolHandler{
		baseCfg: baseCfg,
		deps:    deps,
		log:     logging.Component("mcp"),
	}

	daysOption := mcp.WithNumber("days", mcp.Description("Number of days to analyze, counted back from now. Defaults to the server --days setting (30)."))

	s.AddTool(mcp.NewTool("get_velocity_dashboard",
		mcp.WithDescription("Collect commit, branch and merge metrics of a repository plus a daily commit trend."),
		mcp.WithString("repo_path", mcp.Description("Path to the Git repository (defaults to the server's first repository).")),
		daysOption,
	), h.handleVelocityDashboard)

	s.AddTool(mcp.NewTool("get_commit_metrics",
		mcp.WithDescription("Commit velocity, conventional commit compliance and commit type breakdown of a repository."),
		mcp.WithString("repo_path", mcp.Description("Path to the Git repository.")),
		daysOption,
	), h.handleCommitMetrics)

	s.AddTool(mcp.NewTool("get_branch_activity",
		mcp.WithDescription("Branch switching activity read from the reflog."),
		mcp.WithString("repo_path", mcp.Description("Path to the Git repository.")),
		mcp.WithNumber("days", mcp.Description("Number of days to analyze. Defaults to 7.")),
	), h.handleBranchActivity)

	s.AddTool(mcp.NewTool("get_merge_patterns",
		mcp.WithDescription("Merge frequency, conflict rate and the most conflicted files of a repository."),
		mcp.WithString("repo_path", mcp.Description("Path to the Git repository.")),
		daysOption,
	), h.handleMergePatterns)

	s.AddTool(mcp.NewTool("get_portfolio_health",
		mcp.WithDescription("Rank several repositories by health score."),
		mcp.WithString("repo_paths", mcp.Description("Comma-separated repository paths."), mcp.Required()),
		daysOption,
	), h.handlePortfolioHealth)

	s.AddTool(mcp.NewTool("get_cross_project_patterns",
		mcp.WithDescription("Problems shared by several repositories and practices worth propagating from the healthiest ones."),
		mcp.WithString("repo_paths", mcp.Description("Comma-separated repository paths."), mcp.Required()),
		daysOption,
	), h.handleCrossProjectPatterns)

	return s
}

// StartMCPServer serves the tools over stdio until the client disconnects.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, deps Deps, version string) error {
	s := NewMCPServer(baseCfg, deps, version)
	return server.ServeStdio(s)
}
