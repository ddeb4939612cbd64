package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// StartRunRequest is the body for POST /runs.
type StartRunRequest struct {
	WorkflowID string `json:"workflow_id"`
	DryRun     bool   `json:"dry_run"`
}

// StartRunResponse acknowledges an accepted run.
type StartRunResponse struct {
	RunID string `json:"run_id"`
}

// StartRun accepts a run request, submits it to the worker pool, and returns
// the run id immediately. Completion is observed by polling GetRun.
// (POST /api/v1/runs)
func (s *Server) StartRun(c echo.Context) error {
	ctx := c.Request().Context()

	var req StartRunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.WorkflowID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "workflow_id is required")
	}

	def, err := s.Definitions.GetDefinition(ctx, req.WorkflowID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "Workflow not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	ws, err := s.Workspaces.GetWorkspace(ctx, def.WorkspaceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "Workspace not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	runID, err := s.Pool.Submit(ctx, def, ws, req.DryRun)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Failed to start run: "+err.Error())
	}

	return c.JSON(http.StatusAccepted, StartRunResponse{RunID: runID})
}

// GetRun returns a run's status and, once completed, its result summary.
// (GET /api/v1/runs/:id)
func (s *Server) GetRun(c echo.Context) error {
	ctx := c.Request().Context()

	run, err := s.Runs.GetRun(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "Run not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, run)
}
