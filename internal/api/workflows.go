package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"threadscout/backend/pkg/models"
)

// ListWorkflows returns all workflow definitions for a workspace.
// (GET /api/v1/workflows?workspace_id=...)
func (s *Server) ListWorkflows(c echo.Context) error {
	ctx := c.Request().Context()

	workspaceID := c.QueryParam("workspace_id")
	if workspaceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "workspace_id is required")
	}

	defs, err := s.Definitions.ListDefinitions(ctx, workspaceID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, defs)
}

// PutWorkflow creates or updates a workflow definition.
// (PUT /api/v1/workflows)
func (s *Server) PutWorkflow(c echo.Context) error {
	ctx := c.Request().Context()

	var def models.WorkflowDefinition
	if err := c.Bind(&def); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if def.WorkspaceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "workspace_id is required")
	}
	if err := def.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid definition: "+err.Error())
	}

	// New definition concepts get an id; an existing id replaces that
	// definition in place.
	if def.ID == "" {
		def.ID = uuid.New().String()
	}

	if err := s.Definitions.PutDefinition(ctx, &def); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save workflow: "+err.Error())
	}

	return c.JSON(http.StatusOK, def)
}
