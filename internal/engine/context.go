// Package engine implements the workflow execution engine: a fixed pipeline
// of typed stages that searches for candidate posts, scores them, drafts
// replies, and records outcomes against a durable run.
package engine

import (
	"threadscout/backend/pkg/models"
)

// Context is the mutable execution context threaded through a run's stages.
// Earlier stages populate it, later stages read it; stages never call each
// other directly.
type Context struct {
	RunID      string
	Workspace  *models.Workspace
	Definition *models.WorkflowDefinition
	DryRun     bool

	// Candidates is the search stage's output, in upstream order. All
	// downstream slices and the result summary follow this order.
	Candidates []models.Candidate
	// Evaluations holds exactly one entry per candidate, same order.
	Evaluations []models.Evaluation
	// Drafts holds at most one draft per recommended candidate.
	Drafts map[string]*models.Draft
	// DuplicatesSkipped counts matched posts dropped by deduplication.
	DuplicatesSkipped int
}

// NewContext creates the execution context for one run.
func NewContext(runID string, ws *models.Workspace, def *models.WorkflowDefinition, dryRun bool) *Context {
	return &Context{
		RunID:      runID,
		Workspace:  ws,
		Definition: def,
		DryRun:     dryRun,
		Drafts:     make(map[string]*models.Draft),
	}
}

// EvaluationFor returns the evaluation for a candidate id, or nil.
func (c *Context) EvaluationFor(candidateID string) *models.Evaluation {
	for i := range c.Evaluations {
		if c.Evaluations[i].CandidateID == candidateID {
			return &c.Evaluations[i]
		}
	}
	return nil
}

// Summary assembles the aggregate result in candidate order.
func (c *Context) Summary() *models.ResultSummary {
	summary := &models.ResultSummary{
		Found:             len(c.Candidates),
		Evaluated:         len(c.Evaluations),
		DuplicatesSkipped: c.DuplicatesSkipped,
		Posts:             make([]models.PostResult, 0, len(c.Candidates)),
	}
	for _, cand := range c.Candidates {
		post := models.PostResult{Candidate: cand}
		if ev := c.EvaluationFor(cand.ID); ev != nil {
			post.Evaluation = ev
			if ev.Recommend {
				summary.Approved++
			}
		}
		if draft, ok := c.Drafts[cand.ID]; ok {
			post.Draft = draft
			if draft.Succeeded {
				summary.DraftsGenerated++
			}
		}
		summary.Posts = append(summary.Posts, post)
	}
	return summary
}
