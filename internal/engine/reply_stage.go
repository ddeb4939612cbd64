package engine

import (
	"context"
	"fmt"
	"sync"

	"threadscout/backend/internal/logging"
	"threadscout/backend/internal/services"
	"threadscout/backend/pkg/models"
)

// ReplyStage drafts replies for candidates the evaluator recommended. A
// failed generation call yields a failed draft for that candidate only.
// Drafts are produced in trial mode too; they just never get recorded or
// posted.
type ReplyStage struct {
	generator services.Generator
	workers   int
	logger    *logging.Logger
}

// NewReplyStage creates a new ReplyStage.
func NewReplyStage(generator services.Generator, workers int, logger *logging.Logger) *ReplyStage {
	if workers <= 0 {
		workers = 1
	}
	return &ReplyStage{generator: generator, workers: workers, logger: logger}
}

func (s *ReplyStage) Kind() models.StageKind { return models.StageReply }

func (s *ReplyStage) Run(ctx context.Context, ec *Context) error {
	var maxLength int
	var tone string
	if cfg := ec.Definition.ReplySpec(); cfg != nil {
		maxLength = cfg.MaxLength
		tone = cfg.Tone
	}

	type target struct {
		candidate  models.Candidate
		evaluation models.Evaluation
	}
	var targets []target
	for i, cand := range ec.Candidates {
		if i < len(ec.Evaluations) && ec.Evaluations[i].Recommend {
			targets = append(targets, target{candidate: cand, evaluation: ec.Evaluations[i]})
		}
	}

	drafts := make([]*models.Draft, len(targets))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, t target) {
			defer func() {
				<-sem
				wg.Done()
			}()
			drafts[i] = s.draftOne(ctx, ec.Workspace, t.candidate, t.evaluation, maxLength, tone)
		}(i, t)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("drafting canceled: %w", err)
	}

	for _, d := range drafts {
		if d != nil {
			ec.Drafts[d.CandidateID] = d
		}
	}
	return nil
}

func (s *ReplyStage) draftOne(ctx context.Context, ws *models.Workspace, cand models.Candidate, ev models.Evaluation, maxLength int, tone string) *models.Draft {
	text, err := s.generator.Draft(ctx, services.DraftRequest{
		Workspace: ws,
		Candidate: cand,
		Rationale: ev.Rationale,
		MaxLength: maxLength,
		Tone:      tone,
	})
	if err != nil {
		s.logger.Warn("reply stage: draft failed for post %s: %v", cand.ID, err)
		return &models.Draft{CandidateID: cand.ID, Succeeded: false, Error: err.Error()}
	}
	return &models.Draft{CandidateID: cand.ID, Text: text, Succeeded: true}
}
