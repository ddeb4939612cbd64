package services

import (
	"context"

	"threadscout/backend/pkg/models"
)

// ContentSource fetches raw candidate posts from the external content API.
type ContentSource interface {
	// Search exchanges the workspace credential for an access token and
	// returns posts for the configured channel, in upstream order.
	Search(ctx context.Context, credential string, cfg models.SearchConfig) ([]models.Candidate, error)
}

// ScoreRequest is the input to the scoring capability.
type ScoreRequest struct {
	Workspace *models.Workspace
	Candidate models.Candidate
}

// ScoreResult is the structured verdict returned by the scoring capability.
// The engine consumes Overall, Recommend and Rationale; the sub-scores are
// returned for inspection but carry no engine semantics.
type ScoreResult struct {
	Relevance           float64 `json:"relevance_score"`
	EngagementPotential float64 `json:"engagement_potential_score"`
	BrandAlignment      float64 `json:"brand_alignment_score"`
	Overall             float64 `json:"overall_score"`
	Recommend           bool    `json:"recommend"`
	Rationale           string  `json:"rationale"`
}

// Scorer scores a candidate against workspace context.
type Scorer interface {
	// Score returns a validated score result or an error. Schema-invalid
	// model output is an error, never silently coerced.
	Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error)
}

// DraftRequest is the input to the generation capability.
type DraftRequest struct {
	Workspace *models.Workspace
	Candidate models.Candidate
	Rationale string
	MaxLength int
	Tone      string
}

// Generator drafts a reply for a recommended candidate.
type Generator interface {
	// Draft returns the generated reply text.
	Draft(ctx context.Context, req DraftRequest) (string, error)
}
