package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/faersight/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The analysis tools are always available. Literature and insight tools are
registered only when the embedding and LLM providers respond at startup.

By default, the server communicates over stdio using JSON-RPC. Use --port to
serve the streamable HTTP transport instead.

Examples:
  # Stdio mode (default, for desktop assistants)
  faersight mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  faersight mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "faersight": {
        "command": "/path/to/faersight",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

// newMCPServer builds the server from the current services.
func newMCPServer() (*mcp.Server, error) {
	return mcp.NewServer(&mcp.Ports{
		Analysis:  analysisService,
		Retrieval: retrievalService,
		Insight:   insightService,
		Progress:  progressService,
	}, version)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := newMCPServer()
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
