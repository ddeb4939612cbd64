package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"threadscout/backend/internal/engine"
	"threadscout/backend/internal/repository"
)

// Server exposes the engine's trigger surface as MCP tools so agent clients
// can start and poll runs.
type Server struct {
	mcpServer   *server.MCPServer
	pool        *engine.Pool
	runs        repository.RunStore
	definitions repository.DefinitionStore
	workspaces  repository.WorkspaceStore
}

// NewServer creates a new MCP Server.
func NewServer(pool *engine.Pool, runs repository.RunStore, defs repository.DefinitionStore, workspaces repository.WorkspaceStore) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Threadscout",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		pool:        pool,
		runs:        runs,
		definitions: defs,
		workspaces:  workspaces,
	}

	s.registerTools()
	return s
}

// GetMCPServer returns the underlying MCP server.
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"start_run",
			mcp.WithDescription("Start a workflow run and return its run id"),
			mcp.WithString("workflow_id", mcp.Required(), mcp.Description("The workflow definition to execute")),
			mcp.WithBoolean("dry_run", mcp.Description("Produce drafts without posting or recording")),
		),
		s.handleStartRun,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_run",
			mcp.WithDescription("Get a run's status and result summary"),
			mcp.WithString("run_id", mcp.Required(), mcp.Description("The ID of the run")),
		),
		s.handleGetRun,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List workflow definitions for a workspace"),
			mcp.WithString("workspace_id", mcp.Required(), mcp.Description("The ID of the workspace")),
		),
		s.handleListWorkflows,
	)
}

func (s *Server) handleStartRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	workflowID, ok := args["workflow_id"].(string)
	if !ok || workflowID == "" {
		return mcp.NewToolResultError("Missing required parameter: workflow_id"), nil
	}
	dryRun, _ := args["dry_run"].(bool)

	def, err := s.definitions.GetDefinition(ctx, workflowID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load workflow: %v", err)), nil
	}
	ws, err := s.workspaces.GetWorkspace(ctx, def.WorkspaceID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load workspace: %v", err)), nil
	}

	runID, err := s.pool.Submit(ctx, def, ws, dryRun)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start run: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(`{"run_id": %q}`, runID)), nil
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	runID, ok := args["run_id"].(string)
	if !ok || runID == "" {
		return mcp.NewToolResultError("Missing required parameter: run_id"), nil
	}

	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get run: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(run)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	workspaceID, ok := args["workspace_id"].(string)
	if !ok || workspaceID == "" {
		return mcp.NewToolResultError("Missing required parameter: workspace_id"), nil
	}

	defs, err := s.definitions.ListDefinitions(ctx, workspaceID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list workflows: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(defs)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MountHTTPHandlers mounts the MCP endpoints on the given mux.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
