package engine

import (
	"context"
	"fmt"
	"sync"

	"threadscout/backend/internal/logging"
	"threadscout/backend/internal/services"
	"threadscout/backend/pkg/models"
)

const defaultThreshold = 7.0

// EvaluateStage scores every candidate against the workspace context. A
// failed scoring call is absorbed as a zero-score evaluation for that
// candidate only; the stage itself fails only on missing workspace context
// or run cancellation.
type EvaluateStage struct {
	scorer  services.Scorer
	workers int
	logger  *logging.Logger
}

// NewEvaluateStage creates a new EvaluateStage. workers bounds how many
// scoring calls run at once; 1 means strictly sequential.
func NewEvaluateStage(scorer services.Scorer, workers int, logger *logging.Logger) *EvaluateStage {
	if workers <= 0 {
		workers = 1
	}
	return &EvaluateStage{scorer: scorer, workers: workers, logger: logger}
}

func (s *EvaluateStage) Kind() models.StageKind { return models.StageEvaluate }

func (s *EvaluateStage) Run(ctx context.Context, ec *Context) error {
	if ec.Workspace == nil || ec.Workspace.ID == "" {
		return fmt.Errorf("workspace context missing")
	}

	threshold := defaultThreshold
	if cfg := ec.Definition.EvaluateSpec(); cfg != nil && cfg.Threshold > 0 {
		threshold = cfg.Threshold
	}

	// Index-addressed results keep summary order equal to candidate order
	// regardless of completion order.
	results := make([]models.Evaluation, len(ec.Candidates))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i, cand := range ec.Candidates {
		// Cooperative cancellation, checked before each per-candidate call.
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, cand models.Candidate) {
			defer func() {
				<-sem
				wg.Done()
			}()
			results[i] = s.evaluateOne(ctx, ec.Workspace, cand, threshold)
		}(i, cand)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("evaluation canceled: %w", err)
	}

	ec.Evaluations = results
	return nil
}

func (s *EvaluateStage) evaluateOne(ctx context.Context, ws *models.Workspace, cand models.Candidate, threshold float64) models.Evaluation {
	result, err := s.scorer.Score(ctx, services.ScoreRequest{Workspace: ws, Candidate: cand})
	if err != nil {
		// Item-level failure: absorbed, never aborts the run.
		s.logger.Warn("evaluate stage: scoring failed for post %s: %v", cand.ID, err)
		return models.Evaluation{
			CandidateID: cand.ID,
			Score:       0,
			Recommend:   false,
			Rationale:   fmt.Sprintf("evaluation error: %v", err),
		}
	}
	return models.Evaluation{
		CandidateID: cand.ID,
		Score:       result.Overall,
		Recommend:   result.Recommend && result.Overall >= threshold,
		Rationale:   result.Rationale,
	}
}
