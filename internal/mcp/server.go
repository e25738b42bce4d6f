package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/exmap/exmap-mcp/internal/repomap"
)

const (
	// ServerName is the MCP server name
	ServerName = "exmap-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp *server.MCPServer
	svc *repomap.Service
	log *slog.Logger
}

// NewServer creates a new MCP server instance over an already-constructed
// map service. Ownership of the service (and its cache and store) stays with
// the caller.
func NewServer(svc *repomap.Service, log *slog.Logger) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			ServerVersion,
		),
		svc: svc,
		log: log,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until the transport closes.
// stdout carries the protocol; all logging goes to stderr.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("mcp server starting", "name", ServerName, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(mapRepositoryTool(), s.handleMapRepository)
	s.mcp.AddTool(findEntitiesTool(), s.handleFindEntities)
	s.mcp.AddTool(getRelatedTool(), s.handleGetRelated)
	s.mcp.AddTool(getContextTool(), s.handleGetContext)
	s.mcp.AddTool(cacheStatsTool(), s.handleCacheStats)
}
