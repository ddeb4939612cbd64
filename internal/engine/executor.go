package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"threadscout/backend/internal/logging"
	"threadscout/backend/internal/repository"
	"threadscout/backend/internal/services"
	"threadscout/backend/pkg/models"
)

// Options tunes executor behavior.
type Options struct {
	// MaxConcurrentCalls bounds concurrent scoring/generation calls within a
	// stage. 1 reproduces strictly sequential execution.
	MaxConcurrentCalls int
	// RecordDryRuns makes trial runs persist processed records too.
	RecordDryRuns bool
}

// Executor owns a run's lifecycle: it creates the run row, executes the
// stage pipeline against a frozen definition snapshot, and transitions the
// run exactly once to a terminal state. The run row is the durable record of
// what happened; no error ever escapes to the caller that started the run.
type Executor struct {
	runs      repository.RunStore
	source    services.ContentSource
	processed repository.ProcessedStore
	scorer    services.Scorer
	generator services.Generator
	logger    *logging.Logger
	opts      Options
}

// NewExecutor creates a new Executor.
func NewExecutor(
	runs repository.RunStore,
	processed repository.ProcessedStore,
	source services.ContentSource,
	scorer services.Scorer,
	generator services.Generator,
	logger *logging.Logger,
	opts Options,
) *Executor {
	if opts.MaxConcurrentCalls <= 0 {
		opts.MaxConcurrentCalls = 1
	}
	return &Executor{
		runs:      runs,
		source:    source,
		processed: processed,
		scorer:    scorer,
		generator: generator,
		logger:    logger,
		opts:      opts,
	}
}

// Begin validates the definition and creates the run row in the running
// state. The returned run id is the caller's handle for polling.
func (e *Executor) Begin(ctx context.Context, def *models.WorkflowDefinition, ws *models.Workspace, dryRun bool) (*models.Run, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}
	run := &models.Run{
		ID:           uuid.New().String(),
		DefinitionID: def.ID,
		WorkspaceID:  ws.ID,
		Status:       models.RunRunning,
		DryRun:       dryRun,
		StartedAt:    time.Now().UTC(),
	}
	if err := e.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// Execute runs the stage pipeline for a run created by Begin and writes the
// terminal state. The returned summary is nil when the run failed.
func (e *Executor) Execute(ctx context.Context, run *models.Run, def *models.WorkflowDefinition, ws *models.Workspace) (*models.ResultSummary, error) {
	ec := NewContext(run.ID, ws, def, run.DryRun)

	for _, stage := range e.pipeline(def) {
		if err := stage.Run(ctx, ec); err != nil {
			wrapped := fmt.Errorf("%s stage: %w", stage.Kind(), err)
			e.finalizeFailed(ctx, run.ID, wrapped)
			return nil, wrapped
		}
	}

	summary := ec.Summary()
	if err := e.runs.CompleteRun(detach(ctx), run.ID, summary); err != nil {
		e.logger.Error("failed to complete run %s: %v", run.ID, err)
		// Pollers must still observe a terminal state; a run stuck in
		// running is worse than a failed one.
		if !errors.Is(err, repository.ErrRunFinalized) {
			e.finalizeFailed(ctx, run.ID, fmt.Errorf("failed to store result: %w", err))
		}
		return nil, fmt.Errorf("failed to complete run: %w", err)
	}
	e.logger.Info("run %s completed: found=%d evaluated=%d approved=%d drafts=%d duplicates=%d",
		run.ID, summary.Found, summary.Evaluated, summary.Approved,
		summary.DraftsGenerated, summary.DuplicatesSkipped)
	return summary, nil
}

// pipeline builds the typed stage sequence from the definition's stage
// specs, in declared order. The set of kinds is fixed; this is not a DAG
// scheduler.
func (e *Executor) pipeline(def *models.WorkflowDefinition) []Stage {
	stages := make([]Stage, 0, len(def.Stages))
	for _, spec := range def.Stages {
		switch spec.Kind {
		case models.StageSearch:
			stages = append(stages, NewSearchStage(e.source, e.processed, e.logger))
		case models.StageEvaluate:
			stages = append(stages, NewEvaluateStage(e.scorer, e.opts.MaxConcurrentCalls, e.logger))
		case models.StageReply:
			stages = append(stages, NewReplyStage(e.generator, e.opts.MaxConcurrentCalls, e.logger))
		case models.StageRecord:
			stages = append(stages, NewRecordStage(e.processed, e.opts.RecordDryRuns, e.logger))
		}
	}
	return stages
}

func (e *Executor) finalizeFailed(ctx context.Context, runID string, cause error) {
	e.logger.Error("run %s failed: %v", runID, cause)
	if err := e.runs.FailRun(detach(ctx), runID, cause.Error()); err != nil {
		e.logger.Error("failed to mark run %s failed: %v", runID, err)
	}
}

// detach strips cancellation so terminal-state writes succeed even when the
// run itself was canceled.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
