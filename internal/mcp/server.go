package mcpserver

import (
	"encoding/json"
	"fmt"
	"log"

	"tabular/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the app. It exposes the saved connections
// and the query engine so AI agents can inspect and query databases.
type Server struct {
	mcp *server.MCPServer

	// Services (injected from app layer)
	connections *service.ConnectionService
	profiles    *service.SSHProfileService
	queries     *service.QueryService
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Connections *service.ConnectionService
	Profiles    *service.SSHProfileService
	Queries     *service.QueryService
}

// New creates and configures a new MCP server with all tools.
func New(deps Deps) *Server {
	s := &Server{
		connections: deps.Connections,
		profiles:    deps.Profiles,
		queries:     deps.Queries,
	}

	s.mcp = server.NewMCPServer(
		"tabular-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerConnectionTools()
	s.registerQueryTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
