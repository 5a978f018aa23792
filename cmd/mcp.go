package cmd

import (
	"github.com/ctran-hive/pipeline/internal/hive"
	"github.com/ctran-hive/pipeline/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the pipeline MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents inspect flags, read the
checkpoint and process ranges of service days via standard tools.

Logs go to stderr so stdout stays reserved for the protocol.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, hive.Manager, logger)
	},
}
