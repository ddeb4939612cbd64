package repository

import (
	"context"
	"errors"

	"threadscout/backend/pkg/models"
)

// ErrRunFinalized is returned when a terminal transition is attempted on a
// run that is no longer in the running state.
var ErrRunFinalized = errors.New("run already finalized")

// RunStore persists runs and their terminal transitions.
type RunStore interface {
	// CreateRun inserts a new run in the running state.
	CreateRun(ctx context.Context, run *models.Run) error
	// GetRun retrieves a run by its ID.
	GetRun(ctx context.Context, id string) (*models.Run, error)
	// CompleteRun transitions a running run to completed and stores its
	// summary. Returns ErrRunFinalized if the run is not running.
	CompleteRun(ctx context.Context, id string, summary *models.ResultSummary) error
	// FailRun transitions a running run to failed with an error message.
	// Returns ErrRunFinalized if the run is not running.
	FailRun(ctx context.Context, id string, message string) error
}

// ProcessedStore tracks which external posts have already been processed
// per workspace.
type ProcessedStore interface {
	// FilterProcessed returns the subset of ids already recorded for the
	// workspace.
	FilterProcessed(ctx context.Context, workspaceID string, ids []string) (map[string]struct{}, error)
	// InsertBatch inserts records, skipping keys that already exist, and
	// returns how many rows were actually written. Existing rows are never
	// updated; the first write wins.
	InsertBatch(ctx context.Context, records []models.ProcessedRecord) (int, error)
}

// DefinitionStore persists workflow definitions.
type DefinitionStore interface {
	// GetDefinition retrieves a workflow definition by its ID.
	GetDefinition(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	// ListDefinitions returns all definitions for a workspace.
	ListDefinitions(ctx context.Context, workspaceID string) ([]*models.WorkflowDefinition, error)
	// PutDefinition creates or replaces a workflow definition.
	PutDefinition(ctx context.Context, def *models.WorkflowDefinition) error
}

// WorkspaceStore persists workspaces.
type WorkspaceStore interface {
	// GetWorkspace retrieves a workspace by its ID.
	GetWorkspace(ctx context.Context, id string) (*models.Workspace, error)
	// CreateWorkspace inserts a new workspace.
	CreateWorkspace(ctx context.Context, ws *models.Workspace) error
}
