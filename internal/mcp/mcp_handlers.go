package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/crackerjack/gitmetrics/core"
	"github.com/crackerjack/gitmetrics/core/portfolio"
	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/internal/logging"
	"github.com/crackerjack/gitmetrics/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	deps    Deps
	log     *logging.Logger
}

func (h *toolHandler) handleVelocityDashboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days, err := h.days(request, h.baseCfg.DaysBack)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.withCollector(request, func(c *core.Collector) (any, error) {
		return c.GetVelocityDashboard(ctx, days)
	})
}

func (h *toolHandler) handleCommitMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	since, err := h.since(request, h.baseCfg.DaysBack)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.withCollector(request, func(c *core.Collector) (any, error) {
		return c.CollectCommitMetrics(ctx, since, time.Time{})
	})
}

func (h *toolHandler) handleBranchActivity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	since, err := h.since(request, contract.DefaultBranchWindowDays)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.withCollector(request, func(c *core.Collector) (any, error) {
		return c.CollectBranchActivity(ctx, since)
	})
}

func (h *toolHandler) handleMergePatterns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	since, err := h.since(request, h.baseCfg.DaysBack)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.withCollector(request, func(c *core.Collector) (any, error) {
		return c.CollectMergePatterns(ctx, since, time.Time{})
	})
}

func (h *toolHandler) handlePortfolioHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, errResult := h.analyzePortfolio(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(struct {
		GeneratedAt    time.Time                  `json:"generated_at"`
		DaysBack       int                        `json:"days_back"`
		AvgHealthScore float64                    `json:"avg_health_score"`
		Repositories   []schema.RankedRepository  `json:"repositories"`
		Failures       []schema.RepositoryFailure `json:"failures,omitempty"`
	}{report.GeneratedAt, report.DaysBack, report.AvgHealthScore, schema.RankRepositories(report.Repositories), report.Failures})
}

func (h *toolHandler) handleCrossProjectPatterns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, errResult := h.analyzePortfolio(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(struct {
		Patterns     []schema.CrossProjectPattern `json:"patterns"`
		Propagations []schema.PracticePropagation `json:"propagations"`
		Failures     []schema.RepositoryFailure   `json:"failures,omitempty"`
	}{report.Patterns, report.Propagations, report.Failures})
}

// withCollector opens a collector for the requested repository, runs fn and
// returns its result as JSON. Failures become tool errors, not protocol errors.
func (h *toolHandler) withCollector(request mcp.CallToolRequest, fn func(c *core.Collector) (any, error)) (*mcp.CallToolResult, error) {
	repoPath, err := h.repoPath(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := contract.RequireGitRepository(repoPath); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	store, err := h.deps.OpenStore(repoPath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open metrics store: %v", err)), nil
	}
	c, err := core.NewCollector(repoPath, h.deps.Exec, store, h.collectorOptions()...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	defer func() { _ = c.Close() }()

	result, err := fn(c)
	if err != nil {
		h.log.WithRepo(repoPath).WarnErr(err).Msg("tool call failed")
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	return jsonResult(result)
}

// analyzePortfolio runs the portfolio pipeline over the repo_paths argument.
func (h *toolHandler) analyzePortfolio(ctx context.Context, request mcp.CallToolRequest) (schema.PortfolioReport, *mcp.CallToolResult) {
	repos := splitPaths(request.GetString("repo_paths", ""))
	if len(repos) == 0 {
		return schema.PortfolioReport{}, mcp.NewToolResultError("repo_paths is required: pass a comma-separated list of repository paths")
	}
	days, err := h.days(request, h.baseCfg.DaysBack)
	if err != nil {
		return schema.PortfolioReport{}, mcp.NewToolResultError(err.Error())
	}

	store, err := h.deps.OpenStore("")
	if err != nil {
		return schema.PortfolioReport{}, mcp.NewToolResultError(fmt.Sprintf("failed to open metrics store: %v", err))
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	agg, err := portfolio.NewAggregator(
		portfolio.NewCollectorFactory(h.deps.Exec, store, h.collectorOptions()...),
		portfolio.WithWeights(h.baseCfg.HealthWeights),
		portfolio.WithMinPatternRepos(h.baseCfg.MinPatternRepos),
		portfolio.WithWorkers(h.baseCfg.Workers),
		portfolio.WithStore(store),
		portfolio.WithFromCache(h.baseCfg.FromCache),
		portfolio.WithClock(h.deps.Now),
	)
	if err != nil {
		return schema.PortfolioReport{}, mcp.NewToolResultError(fmt.Sprintf("invalid portfolio settings: %v", err))
	}
	report, err := agg.Analyze(ctx, repos, days)
	if err != nil {
		return schema.PortfolioReport{}, mcp.NewToolResultError(fmt.Sprintf("portfolio analysis failed: %v", err))
	}
	return report, nil
}

func (h *toolHandler) collectorOptions() []core.CollectorOption {
	return []core.CollectorOption{
		core.WithClock(h.deps.Now),
		core.WithTimeout(h.baseCfg.Timeout),
		core.WithConflictDetection(h.baseCfg.ConflictDetection),
	}
}

// repoPath resolves repo_path, falling back to the first configured repository.
func (h *toolHandler) repoPath(request mcp.CallToolRequest) (string, error) {
	p := request.GetString("repo_path", "")
	if p == "" {
		if len(h.baseCfg.RepoPaths) == 0 {
			return "", errors.New("repo_path is required: no default repository is configured")
		}
		return h.baseCfg.RepoPaths[0], nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("cannot resolve repo_path %q: %w", p, err)
	}
	return abs, nil
}

// days reads the days argument, using fallback when it is absent.
func (h *toolHandler) days(request mcp.CallToolRequest, fallback int) (int, error) {
	d := request.GetInt("days", 0)
	if d < 0 {
		return 0, fmt.Errorf("days must be positive (received %d)", d)
	}
	if d == 0 {
		d = fallback
	}
	if d <= 0 {
		d = contract.DefaultCommitWindowDays
	}
	return d, nil
}

// since converts the days argument into a window start relative to the server clock.
func (h *toolHandler) since(request mcp.CallToolRequest, fallback int) (time.Time, error) {
	d, err := h.days(request, fallback)
	if err != nil {
		return time.Time{}, err
	}
	return h.deps.Now().AddDate(0, 0, -d), nil
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
			out = append(out, p)
		}
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
