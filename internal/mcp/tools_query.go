package mcpserver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerQueryTools() {
	s.mcp.AddTool(mcp.NewTool("run_query",
		mcp.WithDescription("Run a SQL statement against a saved connection. SELECTs are paginated; other reads are row-capped; writes report affected rows."),
		mcp.WithString("connectionId", mcp.Description("ID of the saved connection"), mcp.Required()),
		mcp.WithString("query", mcp.Description("SQL statement to execute"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Rows per page (default 100)")),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
		mcp.WithString("queryId", mcp.Description("Execution id for cancel_query (defaults to a fresh id)")),
	), s.handleRunQuery)

	s.mcp.AddTool(mcp.NewTool("cancel_query",
		mcp.WithDescription("Cancel a running query by its execution id"),
		mcp.WithString("queryId", mcp.Description("Execution id passed to run_query"), mcp.Required()),
	), s.handleCancelQuery)
}

func (s *Server) handleRunQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	connectionID, _ := args["connectionId"].(string)
	query, _ := args["query"].(string)
	if connectionID == "" || query == "" {
		return nil, fmt.Errorf("connectionId and query are required")
	}

	limit := intArg(args, "limit", 100)
	page := intArg(args, "page", 1)
	queryID, _ := args["queryId"].(string)
	if queryID == "" {
		queryID = uuid.NewString()
	}

	result, err := s.queries.ExecuteQuery(ctx, queryID, connectionID, query, limit, page)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	return jsonResult(map[string]any{
		"queryId": queryID,
		"result":  result,
	})
}

func (s *Server) handleCancelQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	queryID, _ := args["queryId"].(string)
	if queryID == "" {
		return nil, fmt.Errorf("queryId is required")
	}
	if err := s.queries.CancelQuery(queryID); err != nil {
		return nil, err
	}
	return textResult("cancelled"), nil
}

// intArg reads a numeric tool argument, which arrives as float64 from
// JSON, falling back to def when absent or non-positive.
func intArg(args map[string]any, key string, def int) int {
	if f, ok := args[key].(float64); ok && int(f) > 0 {
		return int(f)
	}
	return def
}
