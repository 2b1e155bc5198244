package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/codespace/internal/codespace"
	"github.com/faucetdb/codespace/internal/service"
)

// MCPServer wraps the mcp-go server with codespace tool and resource
// registrations. It gives operators and agents direct access to live
// codespaces: reading them, editing code, flushing to the database and
// checking share tokens.
type MCPServer struct {
	codespaces *codespace.Service
	ephemeral  *codespace.EphemeralStore
	share      *service.ShareService
	logger     *slog.Logger
	server     *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all codespace tools and
// resources. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(codespaces *codespace.Service, ephemeral *codespace.EphemeralStore, share *service.ShareService, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &MCPServer{
		codespaces: codespaces,
		ephemeral:  ephemeral,
		share:      share,
		logger:     logger,
	}

	mcpServer := server.NewMCPServer(
		"Codespace",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, for clients that launch
// the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":8001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
