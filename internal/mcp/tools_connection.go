package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerConnectionTools() {
	s.mcp.AddTool(mcp.NewTool("list_connections",
		mcp.WithDescription("List the saved database connections (without credentials)"),
	), s.handleListConnections)

	s.mcp.AddTool(mcp.NewTool("list_ssh_profiles",
		mcp.WithDescription("List the saved SSH profiles used for tunneled connections"),
	), s.handleListSSHProfiles)

	s.mcp.AddTool(mcp.NewTool("list_databases",
		mcp.WithDescription("List the databases on a saved connection's server"),
		mcp.WithString("connectionId", mcp.Description("ID of the saved connection"), mcp.Required()),
	), s.handleListDatabases)

	s.mcp.AddTool(mcp.NewTool("list_tables",
		mcp.WithDescription("List the tables of a saved connection's database"),
		mcp.WithString("connectionId", mcp.Description("ID of the saved connection"), mcp.Required()),
	), s.handleListTables)

	s.mcp.AddTool(mcp.NewTool("table_columns",
		mcp.WithDescription("Describe the columns of one table (type, nullability, primary key)"),
		mcp.WithString("connectionId", mcp.Description("ID of the saved connection"), mcp.Required()),
		mcp.WithString("table", mcp.Description("Table name"), mcp.Required()),
	), s.handleTableColumns)
}

func (s *Server) handleListConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conns, err := s.connections.List()
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return jsonResult(conns)
}

func (s *Server) handleListSSHProfiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profiles, err := s.profiles.List()
	if err != nil {
		return nil, fmt.Errorf("list ssh profiles: %w", err)
	}
	return jsonResult(profiles)
}

func (s *Server) handleListDatabases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	connectionID, _ := args["connectionId"].(string)
	if connectionID == "" {
		return nil, fmt.Errorf("connectionId is required")
	}

	names, err := s.queries.ListDatabases(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	return jsonResult(names)
}

func (s *Server) handleListTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	connectionID, _ := args["connectionId"].(string)
	if connectionID == "" {
		return nil, fmt.Errorf("connectionId is required")
	}

	tables, err := s.queries.ListTables(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return jsonResult(tables)
}

func (s *Server) handleTableColumns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	connectionID, _ := args["connectionId"].(string)
	table, _ := args["table"].(string)
	if connectionID == "" || table == "" {
		return nil, fmt.Errorf("connectionId and table are required")
	}

	cols, err := s.queries.TableColumns(ctx, connectionID, table)
	if err != nil {
		return nil, fmt.Errorf("table columns: %w", err)
	}
	return jsonResult(cols)
}
