package engine

import (
	"context"
	"fmt"
	"strings"

	"threadscout/backend/internal/logging"
	"threadscout/backend/internal/repository"
	"threadscout/backend/internal/services"
	"threadscout/backend/pkg/models"
)

// SearchStage fetches candidates from the content source, applies keyword
// filtering, and drops posts already processed for the workspace. Any error
// here is run-fatal: a search that cannot run produces no meaningful result.
type SearchStage struct {
	source    services.ContentSource
	processed repository.ProcessedStore
	logger    *logging.Logger
}

// NewSearchStage creates a new SearchStage.
func NewSearchStage(source services.ContentSource, processed repository.ProcessedStore, logger *logging.Logger) *SearchStage {
	return &SearchStage{source: source, processed: processed, logger: logger}
}

func (s *SearchStage) Kind() models.StageKind { return models.StageSearch }

func (s *SearchStage) Run(ctx context.Context, ec *Context) error {
	cfg := ec.Definition.SearchSpec()
	if cfg == nil {
		return fmt.Errorf("definition has no search config")
	}

	raw, err := s.source.Search(ctx, ec.Workspace.Credential, *cfg)
	if err != nil {
		return fmt.Errorf("content source search: %w", err)
	}

	matched := make([]models.Candidate, 0, len(raw))
	for _, cand := range raw {
		if matchesKeywords(cand, cfg.Keywords) {
			matched = append(matched, cand)
		}
	}

	ids := make([]string, 0, len(matched))
	for _, cand := range matched {
		ids = append(ids, cand.ID)
	}
	seen, err := s.processed.FilterProcessed(ctx, ec.Workspace.ID, ids)
	if err != nil {
		return fmt.Errorf("dedup lookup: %w", err)
	}

	fresh := make([]models.Candidate, 0, len(matched))
	for _, cand := range matched {
		if _, dup := seen[cand.ID]; dup {
			continue
		}
		fresh = append(fresh, cand)
	}

	ec.Candidates = fresh
	ec.DuplicatesSkipped = len(matched) - len(fresh)
	s.logger.Info("search stage: run=%s fetched=%d matched=%d duplicates=%d candidates=%d",
		ec.RunID, len(raw), len(matched), ec.DuplicatesSkipped, len(fresh))
	return nil
}

// matchesKeywords reports whether any keyword appears in the candidate's
// title or body, case-insensitively. An empty keyword list matches everything.
func matchesKeywords(cand models.Candidate, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(cand.Title + " " + cand.Body)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
