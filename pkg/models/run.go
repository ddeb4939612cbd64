package models

import (
	"time"
)

// RunStatus is the lifecycle state of a run. A run starts as running and
// transitions exactly once to completed or failed.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// PostResult joins a candidate with its evaluation and optional draft for
// the run summary. Order matches the search stage's output order.
type PostResult struct {
	Candidate  Candidate   `json:"candidate"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	Draft      *Draft      `json:"draft,omitempty"`
}

// ResultSummary is the aggregate outcome of a completed run.
type ResultSummary struct {
	Found             int          `json:"found"`
	Evaluated         int          `json:"evaluated"`
	Approved          int          `json:"approved"`
	DraftsGenerated   int          `json:"drafts_generated"`
	DuplicatesSkipped int          `json:"duplicates_skipped"`
	Posts             []PostResult `json:"posts"`
}

// Run is one execution of a workflow definition with a durable terminal
// outcome. The run row is the single source of truth for what happened;
// callers observe completion by polling it, never via an exception.
type Run struct {
	ID           string         `json:"id"`
	DefinitionID string         `json:"definition_id"`
	WorkspaceID  string         `json:"workspace_id"`
	Status       RunStatus      `json:"status"`
	DryRun       bool           `json:"dry_run"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Summary      *ResultSummary `json:"result_summary,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}
