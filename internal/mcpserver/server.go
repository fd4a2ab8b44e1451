// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the chart editing session as tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/orgboard/internal/apperr"
	"github.com/starford/orgboard/internal/parser"
	"github.com/starford/orgboard/internal/session"
)

// ChartFormatURI is the resource URI of the chart format contract.
const ChartFormatURI = "orgboard://chart-format"

// Server wraps the MCP server with Orgboard tools.
type Server struct {
	mcp   *server.MCPServer
	store *session.Store
}

// New creates a new MCP server with all Orgboard tools registered.
func New(store *session.Store, version string) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"Orgboard",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_chart",
		mcp.WithDescription("Return the current org chart as JSON, including unsaved edits. "+
			"Slot keys for move_role are \"<department id>:<level id>\"."),
	), s.getChart)

	s.mcp.AddTool(mcp.NewTool("add_department",
		mcp.WithDescription("Append a department with one empty level. Names may repeat. Not saved until save_chart."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Department display name")),
	), s.addDepartment)

	s.mcp.AddTool(mcp.NewTool("add_level",
		mcp.WithDescription("Append an empty level to a department. Not saved until save_chart."),
		mcp.WithString("department_id", mcp.Required(), mcp.Description("Department id from get_chart")),
	), s.addLevel)

	s.mcp.AddTool(mcp.NewTool("add_role",
		mcp.WithDescription("Register a new role at the end of Available Roles. Role names are unique "+
			"ignoring case. The whole chart is saved immediately."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Role name, stored with its casing")),
	), s.addRole)

	s.mcp.AddTool(mcp.NewTool("move_role",
		mcp.WithDescription("Move a role from one slot to another. to_index is the role's final position "+
			"in the target level. Fails if the role is no longer at from_key/from_index."),
		mcp.WithString("role", mcp.Required(), mcp.Description("Role name exactly as shown in the chart")),
		mcp.WithString("from_key", mcp.Required(), mcp.Description("Source slot key \"departmentId:levelId\"")),
		mcp.WithNumber("from_index", mcp.Required(), mcp.Description("Zero-based index of the role in the source level")),
		mcp.WithString("to_key", mcp.Required(), mcp.Description("Target slot key \"departmentId:levelId\"")),
		mcp.WithNumber("to_index", mcp.Required(), mcp.Description("Zero-based final index in the target level")),
	), s.moveRole)

	s.mcp.AddTool(mcp.NewTool("save_chart",
		mcp.WithDescription("Persist the current chart, overwriting the stored snapshot."),
	), s.saveChart)

	s.mcp.AddTool(mcp.NewTool("reload_chart",
		mcp.WithDescription("Discard unsaved edits and load the stored chart again."),
	), s.reloadChart)

	s.mcp.AddTool(mcp.NewTool("find_role",
		mcp.WithDescription("Find roles whose name contains the query, ignoring case, with their department and level."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Part of a role name")),
	), s.findRole)

	s.mcp.AddTool(mcp.NewTool("get_chart_contract",
		mcp.WithDescription("Returns the chart format and editing rules. "+
			"Call this before editing to learn slot keys and move semantics."),
	), s.getChartContract)

	// Resource: chart format contract.
	s.mcp.AddResource(
		mcp.NewResource(ChartFormatURI, "Chart Format Contract",
			mcp.WithResourceDescription("Org chart JSON format and editing rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readChartFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) getChart(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.store.Snapshot()
	if err != nil {
		return toolError(err), nil
	}
	data, err := parser.EncodeSnapshot(c)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) addDepartment(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.store.AddDepartment(name)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("department created: %s", id)), nil
}

func (s *Server) addLevel(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deptID, err := req.RequireString("department_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.store.AddLevel(deptID)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("level created: %s:%s", deptID, id)), nil
}

func (s *Server) addRole(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.AddRole(ctx, name); err != nil {
		if errors.Is(err, apperr.ErrUnavailable) {
			return mcp.NewToolResultError("role added but not saved, call save_chart to retry: " + err.Error()), nil
		}
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("role created: %s", name)), nil
}

func (s *Server) moveRole(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	role, err := req.RequireString("role")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fromKey, err := req.RequireString("from_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fromIndex, err := req.RequireInt("from_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	toKey, err := req.RequireString("to_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	toIndex, err := req.RequireInt("to_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	from, err := parser.ParseLocation(fromKey, fromIndex)
	if err != nil {
		return toolError(err), nil
	}
	to, err := parser.ParseLocation(toKey, toIndex)
	if err != nil {
		return toolError(err), nil
	}
	if _, err := s.store.MoveRole(role, from, to); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved %s to %s[%d]", role, to.Key(), to.Index)), nil
}

func (s *Server) saveChart(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.store.Save(ctx); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("saved"), nil
}

func (s *Server) reloadChart(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.store.Reload(ctx); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("reloaded"), nil
}

func (s *Server) findRole(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.store.Search(query, 20)
	if err != nil {
		return toolError(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no roles found"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getChartContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ChartFormatContract), nil
}

func (s *Server) readChartFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ChartFormatURI,
			MIMEType: "text/markdown",
			Text:     ChartFormatContract,
		},
	}, nil
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
