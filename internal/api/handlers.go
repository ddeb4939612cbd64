// Package api contains the HTTP handlers for the engagement engine.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"threadscout/backend/internal/engine"
	"threadscout/backend/internal/logging"
	"threadscout/backend/internal/repository"
)

// Server holds the dependencies for the API server.
type Server struct {
	Runs        repository.RunStore
	Definitions repository.DefinitionStore
	Workspaces  repository.WorkspaceStore
	Pool        *engine.Pool
	Logger      *logging.Logger
}

// NewServer creates a new Server.
func NewServer(runs repository.RunStore, defs repository.DefinitionStore, workspaces repository.WorkspaceStore, pool *engine.Pool, logger *logging.Logger) *Server {
	return &Server{
		Runs:        runs,
		Definitions: defs,
		Workspaces:  workspaces,
		Pool:        pool,
		Logger:      logger,
	}
}

// RegisterRoutes mounts all API routes on the given group.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.POST("/runs", s.StartRun)
	g.GET("/runs/:id", s.GetRun)
	g.GET("/workflows", s.ListWorkflows)
	g.PUT("/workflows", s.PutWorkflow)
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK).
func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "threadscout",
		Version:   "1.0.0",
	})
}
