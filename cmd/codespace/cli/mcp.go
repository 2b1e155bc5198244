package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmcp "github.com/faucetdb/codespace/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes codespace operations
as tools for AI agents. Supports stdio (default) and HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC.
Logs go to stderr so they never interleave with protocol messages.

In HTTP mode, the server listens on the specified port for streamable HTTP
connections.`,
		Example: `  codespace mcp                             # stdio mode
  codespace mcp --transport http --port 8001  # HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(context.Background())
		},
	}

	cmd.Flags().String("transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().Int("port", 8001, "HTTP port (only used with --transport http)")
	viper.BindPFlag("mcp.transport", cmd.Flags().Lookup("transport"))
	viper.BindPFlag("mcp.port", cmd.Flags().Lookup("port"))

	return cmd
}

func runMCP(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.MCP.Enabled {
		return fmt.Errorf("mcp is disabled (set mcp.enabled: true)")
	}
	logger := newLogger(cfg)

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := cmcp.NewMCPServer(a.codespaces, a.ephemeral, a.share, versionString(), logger)

	switch cfg.MCP.Transport {
	case "stdio":
		return srv.ServeStdio()
	case "http":
		addr := fmt.Sprintf(":%d", cfg.MCP.Port)
		logger.Info("starting MCP HTTP server", "addr", addr)
		return srv.ServeHTTP(addr)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", cfg.MCP.Transport)
	}
}
