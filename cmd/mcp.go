package cmd

import (
	"github.com/crackerjack/gitmetrics/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp [repo-path]",
	Short: "Start the gitmetrics MCP server",
	Long: `Launch an MCP server over stdio so AI agents can query velocity dashboards,
commit, branch and merge metrics, and portfolio health through standard tools.

The optional repository becomes the default for tools called without repo_path.
Logs go to stderr; stdout carries only the protocol.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		deps := mcp.Deps{OpenStore: openStore}
		return mcp.StartMCPServer(rootCtx, cfg, deps, version)
	},
}
